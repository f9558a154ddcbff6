package models

import "time"

// CapacityClaim records that a seat was already taken for an athlete's
// subscription. The broker only guarantees at-least-once delivery, and a
// capacity decrement is not naturally idempotent, so the consumer claims the
// (athlete_id, subscription_id) pair before decrementing; the unique index
// makes redelivered events no-ops.
type CapacityClaim struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AthleteID      string    `gorm:"type:varchar(64);not null;index:ux_capacity_claims_athlete_subscription,unique,priority:1" json:"athlete_id"`
	SubscriptionID uint      `gorm:"not null;index:ux_capacity_claims_athlete_subscription,unique,priority:2" json:"subscription_id"`
	PaymentID      string    `gorm:"type:varchar(64);not null" json:"payment_id"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
