package enrollment

import (
	"github.com/sportac/backoffice/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations the event consumer needs.
type Repository interface {
	// ApproveRequest marks the athlete's enrollment requests approved and
	// attaches the subscription. Setting approved twice is a no-op, so this
	// is naturally idempotent under redelivery.
	ApproveRequest(athleteID string, subscriptionID uint) error
	// ClaimAndDecrement records the capacity claim and decrements the
	// schedule's remaining slots in one transaction. claimed is false when the
	// claim already exists and capacity is untouched; decremented is true only
	// when a seat was actually taken, so a sold-out or unknown schedule leaves
	// it false even for a fresh claim.
	ClaimAndDecrement(claim *models.CapacityClaim, scheduleID string) (claimed, decremented bool, err error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an enrollment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) ApproveRequest(athleteID string, subscriptionID uint) error {
	return r.db.Model(&models.EnrollmentRequest{}).
		Where("athlete_id = ? AND status IN ?", athleteID,
			[]string{models.EnrollmentStatusPending, models.EnrollmentStatusApproved}).
		Updates(map[string]interface{}{
			"status":          models.EnrollmentStatusApproved,
			"subscription_id": subscriptionID,
		}).Error
}

func (r *gormRepository) ClaimAndDecrement(claim *models.CapacityClaim, scheduleID string) (bool, bool, error) {
	claimed := false
	decremented := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "athlete_id"},
				{Name: "subscription_id"},
			},
			DoNothing: true,
		}).Create(claim)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Redelivered event; the seat was already taken.
			return nil
		}
		claimed = true

		if scheduleID == "" {
			return nil
		}
		// Conditional decrement so concurrent consumers cannot oversell.
		dec := tx.Model(&models.Schedule{}).
			Where("schedule_id = ? AND remaining_slots > 0", scheduleID).
			UpdateColumn("remaining_slots", gorm.Expr("remaining_slots - 1"))
		if dec.Error != nil {
			return dec.Error
		}
		decremented = dec.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, false, err
	}
	return claimed, decremented, nil
}
