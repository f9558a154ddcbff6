package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the permanent record of one approved gateway payment. PaymentID
// carries the gateway's payment ID and its unique index is the idempotency
// boundary for webhook processing: a concurrent duplicate insert must fail at
// the database, not at an application-level check.
type Payment struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	PaymentID            string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_payment_id" json:"payment_id" validate:"required"`
	AthleteID            string          `gorm:"type:varchar(64);not null;index" json:"athlete_id" validate:"required"`
	Amount               decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentDate          time.Time       `gorm:"type:timestamp;not null" json:"payment_date"`
	MethodID             string          `gorm:"type:varchar(64)" json:"method_id"`
	TransactionReference string          `gorm:"type:varchar(191)" json:"transaction_reference"`
	SubscriptionID       uint            `gorm:"not null;index" json:"subscription_id"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
