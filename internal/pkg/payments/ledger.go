package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sportac/backoffice/app/models"
	"gorm.io/gorm"
)

// RenewalThresholdDays is how close to expiry a subscription must be before a
// new payment extends it. Payments landing earlier in the cycle are recorded
// without moving the boundary.
const RenewalThresholdDays = 5

// ledgerMaxAttempts bounds the optimistic-update retry loop for concurrent
// reconciles of the same athlete.
const ledgerMaxAttempts = 3

// Ledger owns the renewal decision for one athlete's subscription: create on
// first payment, extend near expiry, otherwise leave untouched. end_date only
// ever moves forward.
type Ledger struct {
	repo Repository
}

// NewLedger creates a ledger on the given repository.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Reconcile returns the athlete's canonical subscription after applying the
// renewal decision for a payment dated referenceDate.
//
// Extension is a conditional update on the previously observed end_date; when
// the update does not land, a concurrent reconcile won the race and the state
// is re-read before deciding again. Two concurrent payments inside the
// threshold therefore produce exactly one extension: the loser re-reads an
// end_date that is no longer within the threshold.
func (l *Ledger) Reconcile(ctx context.Context, athleteID string, referenceDate time.Time) (*models.Subscription, error) {
	if athleteID == "" {
		return nil, errors.New("athlete_id is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < ledgerMaxAttempts; attempt++ {
		sub, err := l.repo.FindActiveSubscription(athleteID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created := &models.Subscription{
				AthleteID: athleteID,
				StartDate: referenceDate,
				EndDate:   AddCalendarMonth(referenceDate),
				Status:    models.SubscriptionStatusActive,
			}
			if err := l.repo.CreateSubscription(created); err != nil {
				return nil, err
			}
			return created, nil
		}
		if err != nil {
			return nil, err
		}

		remaining := sub.EndDate.Sub(referenceDate)
		if remaining > RenewalThresholdDays*24*time.Hour {
			// Mid-cycle payment: recorded by the caller, no lifecycle effect.
			return sub, nil
		}

		// Extensions compound off the current boundary, not the payment date,
		// so no already-paid time is lost.
		newEnd := AddCalendarMonth(sub.EndDate)
		updated, err := l.repo.ExtendSubscriptionEndDate(sub.ID, sub.EndDate, newEnd)
		if err != nil {
			return nil, err
		}
		if updated {
			sub.EndDate = newEnd
			return sub, nil
		}
		lastErr = fmt.Errorf("subscription %d changed concurrently", sub.ID)
	}
	return nil, fmt.Errorf("reconcile athlete %s: %w", athleteID, lastErr)
}

// AddCalendarMonth advances a date by one civil calendar month, clamping to
// the last valid day of the target month (Jan 31 -> Feb 29 in a leap year,
// Feb 28 otherwise). time.AddDate normalizes overflow into March and cannot
// be used here.
func AddCalendarMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	// Day 0 of month+2 is the last day of month+1; time.Date normalizes both.
	lastDay := time.Date(year, month+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month+1, day, hour, min, sec, t.Nanosecond(), t.Location())
}
