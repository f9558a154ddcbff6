package models

import "time"

const (
	SubscriptionStatusActive  = "active"
	SubscriptionStatusExpired = "expired"
)

// Subscription is one athlete's paid membership window. The row with the most
// recent created_at among active rows is the canonical one at
// renewal-decision time; expiry is derived from end_date at read time and is
// never written back by the payment pipeline.
type Subscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AthleteID string    `gorm:"type:varchar(64);not null;index:idx_subscriptions_athlete_status,priority:1" json:"athlete_id" validate:"required"`
	StartDate time.Time `gorm:"type:timestamp;not null" json:"start_date"`
	EndDate   time.Time `gorm:"type:timestamp;not null;index" json:"end_date"`
	Status    string    `gorm:"type:varchar(16);not null;default:'active';index:idx_subscriptions_athlete_status,priority:2" json:"status" validate:"oneof=active expired"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ExpiredAt reports whether the subscription window has ended at the given
// instant, regardless of the stored status column.
func (s *Subscription) ExpiredAt(now time.Time) bool {
	return s.EndDate.Before(now)
}
