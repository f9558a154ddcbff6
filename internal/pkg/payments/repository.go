package payments

import (
	"errors"
	"time"

	"github.com/sportac/backoffice/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the ingestion pipeline and the
// subscription ledger.
type Repository interface {
	// FindActiveSubscription returns the most recently created active
	// subscription row for the athlete, or gorm.ErrRecordNotFound.
	FindActiveSubscription(athleteID string) (*models.Subscription, error)
	CreateSubscription(sub *models.Subscription) error
	// ExtendSubscriptionEndDate moves end_date from prevEnd to newEnd and
	// reports whether the row was actually updated. A false return means a
	// concurrent reconcile moved the boundary first.
	ExtendSubscriptionEndDate(id uint, prevEnd, newEnd time.Time) (bool, error)
	// PaymentSeen reports whether a payment row exists for the gateway
	// payment ID. Cheap short-circuit only; the unique index on payments is
	// what actually enforces idempotency.
	PaymentSeen(paymentID string) (bool, error)
	// CreatePaymentIfNotExists inserts the payment and reports whether this
	// call created it. Duplicate inserts are absorbed by the unique index.
	CreatePaymentIfNotExists(payment *models.Payment) (bool, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payments repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) FindActiveSubscription(athleteID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.
		Where("athlete_id = ? AND status = ?", athleteID, models.SubscriptionStatusActive).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) ExtendSubscriptionEndDate(id uint, prevEnd, newEnd time.Time) (bool, error) {
	tx := r.db.Model(&models.Subscription{}).
		Where("id = ? AND end_date = ?", id, prevEnd).
		Update("end_date", newEnd)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) PaymentSeen(paymentID string) (bool, error) {
	var payment models.Payment
	err := r.db.Select("id").Where("payment_id = ?", paymentID).First(&payment).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

func (r *gormRepository) CreatePaymentIfNotExists(payment *models.Payment) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "payment_id"}},
		DoNothing: true,
	}).Create(payment)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
