package models

import "time"

// Schedule is a training group with a bounded number of seats. RemainingSlots
// is only ever changed through a conditional UPDATE so concurrent consumers
// cannot drive it below zero.
type Schedule struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ScheduleID     string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_schedules_schedule_id" json:"schedule_id" validate:"required"`
	Name           string    `gorm:"type:varchar(150);not null" json:"name"`
	Weekday        string    `gorm:"type:varchar(16)" json:"weekday"`
	StartHour      string    `gorm:"type:varchar(8)" json:"start_hour"`
	Capacity       int       `gorm:"not null;default:0" json:"capacity"`
	RemainingSlots int       `gorm:"not null;default:0" json:"remaining_slots"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
