package payments

import (
	"errors"

	"github.com/sportac/backoffice/app/models"
)

// OutcomeKind classifies how the pipeline disposed of one webhook
// notification.
type OutcomeKind string

const (
	// OutcomeProcessed: payment persisted, subscription reconciled.
	OutcomeProcessed OutcomeKind = "processed"
	// OutcomeAlreadyProcessed: the payment ID was seen before; pure no-op.
	// A persistence conflict on the unique payment index reports the same
	// kind, the check and the constraint are two layers of one boundary.
	OutcomeAlreadyProcessed OutcomeKind = "already_processed"
	// OutcomeIgnored: not a payment notification; nothing fetched or written.
	OutcomeIgnored OutcomeKind = "ignored"
	// OutcomeRejected: the gateway record is not approved. Nothing persisted,
	// so a later approved notification for the same ID still succeeds.
	OutcomeRejected OutcomeKind = "rejected"
)

// ErrInvalidMetadata marks a gateway record without an athlete reference.
// Permanent for this notification: retrying cannot fix a malformed upstream
// record, so the gateway must not redeliver on it.
var ErrInvalidMetadata = errors.New("payment metadata is missing athlete_id")

// Outcome is the result of handling one notification.
type Outcome struct {
	Kind         OutcomeKind
	Reason       string
	Subscription *models.Subscription
	Payment      *models.Payment
}

func ignored(reason string) *Outcome {
	return &Outcome{Kind: OutcomeIgnored, Reason: reason}
}

func rejected(status string) *Outcome {
	return &Outcome{Kind: OutcomeRejected, Reason: status}
}

func alreadyProcessed() *Outcome {
	return &Outcome{Kind: OutcomeAlreadyProcessed}
}
