package models

import "time"

const (
	EnrollmentStatusPending  = "pending"
	EnrollmentStatusApproved = "approved"
	EnrollmentStatusRejected = "rejected"
)

// EnrollmentRequest is owned by the enrollment service and is only mutated by
// the payment-processed event consumer, never by the webhook pipeline.
type EnrollmentRequest struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	AthleteID           string    `gorm:"type:varchar(64);not null;index" json:"athlete_id" validate:"required"`
	Status              string    `gorm:"type:varchar(16);not null;default:'pending';index" json:"status" validate:"oneof=pending approved rejected"`
	RequestedScheduleID string    `gorm:"type:varchar(64);not null" json:"requested_schedule_id"`
	SubscriptionID      *uint     `gorm:"default:null" json:"subscription_id,omitempty"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
