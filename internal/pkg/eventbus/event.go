package eventbus

import (
	"time"

	"github.com/shopspring/decimal"
)

// Topic carries payment-processed events, keyed by athlete ID so the broker
// preserves per-athlete ordering. Enrollment transitions on the consumer side
// are not commutative, so that ordering is load-bearing.
const Topic = "payment_processed"

// PaymentProcessedEvent is published exactly once per successfully processed
// webhook notification at the producer. The broker still only guarantees
// at-least-once delivery, so consumers must dedup on their own.
type PaymentProcessedEvent struct {
	EventID        string          `json:"event_id"`
	AthleteID      string          `json:"athlete_id"`
	SubscriptionID uint            `json:"subscription_id"`
	ScheduleID     string          `json:"schedule_id"`
	PaymentID      string          `json:"payment_id"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentDate    time.Time       `json:"payment_date"`
}
