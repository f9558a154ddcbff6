package payments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sportac/backoffice/app/models"
	"gorm.io/gorm"
)

// fakeRepository is an in-memory Repository whose conditional update has the
// same atomicity as the SQL it stands in for, so concurrent reconciles can be
// exercised for real.
type fakeRepository struct {
	mu       sync.Mutex
	nextID   uint
	subs     map[uint]*models.Subscription
	payments map[string]*models.Payment

	// hideSeen makes PaymentSeen report false regardless of state, to force
	// the pipeline onto the unique-index fallback path.
	hideSeen bool
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		subs:     make(map[uint]*models.Subscription),
		payments: make(map[string]*models.Payment),
	}
}

func (r *fakeRepository) FindActiveSubscription(athleteID string) (*models.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *models.Subscription
	for _, sub := range r.subs {
		if sub.AthleteID != athleteID || sub.Status != models.SubscriptionStatusActive {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeRepository) CreateSubscription(sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	sub.ID = r.nextID
	sub.CreatedAt = time.Now()
	cp := *sub
	r.subs[sub.ID] = &cp
	return nil
}

func (r *fakeRepository) ExtendSubscriptionEndDate(id uint, prevEnd, newEnd time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok || !sub.EndDate.Equal(prevEnd) {
		return false, nil
	}
	sub.EndDate = newEnd
	return true, nil
}

func (r *fakeRepository) PaymentSeen(paymentID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hideSeen {
		return false, nil
	}
	_, ok := r.payments[paymentID]
	return ok, nil
}

func (r *fakeRepository) CreatePaymentIfNotExists(payment *models.Payment) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[payment.PaymentID]; ok {
		return false, nil
	}
	r.nextID++
	payment.ID = r.nextID
	cp := *payment
	r.payments[payment.PaymentID] = &cp
	return true, nil
}

func (r *fakeRepository) subscriptionByID(id uint) *models.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[id]
	if !ok {
		return nil
	}
	cp := *sub
	return &cp
}

func (r *fakeRepository) seedActiveSubscription(athleteID string, start, end time.Time) *models.Subscription {
	sub := &models.Subscription{
		AthleteID: athleteID,
		StartDate: start,
		EndDate:   end,
		Status:    models.SubscriptionStatusActive,
	}
	_ = r.CreateSubscription(sub)
	return sub
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TestReconcileCreatesFirstSubscription(t *testing.T) {
	repo := newFakeRepository()
	ledger := NewLedger(repo)

	ref := date(2024, time.March, 10)
	sub, err := ledger.Reconcile(context.Background(), "ath-1", ref)
	require.NoError(t, err)

	assert.Equal(t, "ath-1", sub.AthleteID)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, ref, sub.StartDate)
	assert.Equal(t, date(2024, time.April, 10), sub.EndDate)
}

func TestReconcileExtendsWithinThreshold(t *testing.T) {
	repo := newFakeRepository()
	ledger := NewLedger(repo)

	ref := date(2024, time.March, 10)
	end := ref.AddDate(0, 0, RenewalThresholdDays)
	seeded := repo.seedActiveSubscription("ath-1", date(2024, time.February, 15), end)

	sub, err := ledger.Reconcile(context.Background(), "ath-1", ref)
	require.NoError(t, err)

	// Extension compounds off the existing boundary, not the payment date.
	assert.Equal(t, seeded.ID, sub.ID)
	assert.Equal(t, AddCalendarMonth(end), sub.EndDate)
	assert.Equal(t, sub.EndDate, repo.subscriptionByID(seeded.ID).EndDate)
}

func TestReconcileLeavesMidCycleSubscriptionAlone(t *testing.T) {
	repo := newFakeRepository()
	ledger := NewLedger(repo)

	ref := date(2024, time.March, 10)
	end := ref.AddDate(0, 0, RenewalThresholdDays+1)
	seeded := repo.seedActiveSubscription("ath-1", date(2024, time.February, 15), end)

	sub, err := ledger.Reconcile(context.Background(), "ath-1", ref)
	require.NoError(t, err)

	assert.Equal(t, seeded.ID, sub.ID)
	assert.Equal(t, end, sub.EndDate)
}

func TestReconcileConcurrentPaymentsExtendOnce(t *testing.T) {
	repo := newFakeRepository()
	ledger := NewLedger(repo)

	ref := date(2024, time.March, 10)
	end := ref.AddDate(0, 0, 3)
	seeded := repo.seedActiveSubscription("ath-1", date(2024, time.February, 15), end)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Reconcile(context.Background(), "ath-1", ref)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Exactly one extension applied: the loser re-read a boundary that was no
	// longer within the threshold.
	assert.Equal(t, AddCalendarMonth(end), repo.subscriptionByID(seeded.ID).EndDate)
}

func TestReconcileLostRaceReReadsState(t *testing.T) {
	repo := newFakeRepository()
	ledger := NewLedger(repo)

	ref := date(2024, time.March, 10)
	end := ref.AddDate(0, 0, 2)
	seeded := repo.seedActiveSubscription("ath-1", date(2024, time.February, 15), end)

	// A concurrent reconcile wins between our read and our update.
	winnerEnd := AddCalendarMonth(end)
	updated, err := repo.ExtendSubscriptionEndDate(seeded.ID, end, winnerEnd)
	require.NoError(t, err)
	require.True(t, updated)

	sub, err := ledger.Reconcile(context.Background(), "ath-1", ref)
	require.NoError(t, err)

	assert.Equal(t, winnerEnd, sub.EndDate)
}

func TestAddCalendarMonth(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"mid-month", date(2024, time.March, 10), date(2024, time.April, 10)},
		{"january 31 leap year", date(2024, time.January, 31), date(2024, time.February, 29)},
		{"january 31 non-leap year", date(2023, time.January, 31), date(2023, time.February, 28)},
		{"october 31 clamps to november 30", date(2024, time.October, 31), date(2024, time.November, 30)},
		{"december rolls the year", date(2024, time.December, 15), date(2025, time.January, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddCalendarMonth(tt.in))
		})
	}
}

func TestAddCalendarMonthKeepsTimeOfDay(t *testing.T) {
	in := time.Date(2024, time.January, 31, 13, 45, 30, 0, time.UTC)
	got := AddCalendarMonth(in)
	assert.Equal(t, time.Date(2024, time.February, 29, 13, 45, 30, 0, time.UTC), got)
}
