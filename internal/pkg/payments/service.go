package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/sportac/backoffice/app/models"
	"github.com/sportac/backoffice/internal/pkg/cache"
	"github.com/sportac/backoffice/internal/pkg/eventbus"
	"github.com/sportac/backoffice/internal/pkg/gateway"
	"github.com/sportac/backoffice/internal/pkg/metrics"
)

// NotificationTypePayment is the only webhook type this pipeline acts on.
const NotificationTypePayment = "payment"

// Notification is the inbound webhook payload: an untrusted, possibly
// duplicated pointer to a payment. Never a source of truth.
type Notification struct {
	PaymentID   string
	Type        string
	DateCreated time.Time
}

// PaymentFetcher is the gateway slice the ingestor needs.
type PaymentFetcher interface {
	FetchPayment(ctx context.Context, paymentID string) (*gateway.PaymentRecord, error)
}

// Invalidator is the cache slice the ingestor needs.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string)
}

// Service orchestrates the ingestion pipeline: type filter, idempotency
// check, canonical fetch, metadata validation, ledger update, persistence,
// event publication, cache invalidation.
type Service struct {
	repo        Repository
	ledger      *Ledger
	gateway     PaymentFetcher
	publisher   eventbus.Publisher
	invalidator Invalidator
	validate    *validator.Validate
}

// NewService wires the ingestion pipeline.
func NewService(repo Repository, gw PaymentFetcher, publisher eventbus.Publisher, invalidator Invalidator) *Service {
	return &Service{
		repo:        repo,
		ledger:      NewLedger(repo),
		gateway:     gw,
		publisher:   publisher,
		invalidator: invalidator,
		validate:    validator.New(),
	}
}

// HandleNotification turns one webhook delivery into an idempotent effect on
// the athlete's subscription.
//
// Everything up to and including the payment insert aborts cleanly and is
// safe to retry. Everything after the insert (event publish, cache
// invalidation) is best effort: the payment commit stands, failures degrade
// to eventual consistency and are surfaced through logs and counters.
func (s *Service) HandleNotification(ctx context.Context, n Notification) (*Outcome, error) {
	if !strings.EqualFold(strings.TrimSpace(n.Type), NotificationTypePayment) {
		return s.counted(ignored("unsupported notification type: " + n.Type)), nil
	}
	paymentID := strings.TrimSpace(n.PaymentID)
	if paymentID == "" {
		return s.counted(ignored("notification carries no payment id")), nil
	}

	seen, err := s.repo.PaymentSeen(paymentID)
	if err != nil {
		return nil, err
	}
	if seen {
		return s.counted(alreadyProcessed()), nil
	}

	record, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if !record.Approved() {
		return s.counted(rejected(record.Status)), nil
	}

	if err := s.validate.Struct(record.Metadata); err != nil {
		return nil, fmt.Errorf("payment %s: %w", paymentID, ErrInvalidMetadata)
	}

	subscription, err := s.ledger.Reconcile(ctx, record.Metadata.AthleteID, record.DateCreated)
	if err != nil {
		return nil, err
	}

	payment := &models.Payment{
		PaymentID:            paymentID,
		AthleteID:            record.Metadata.AthleteID,
		Amount:               record.Metadata.Amount,
		PaymentDate:          record.DateCreated,
		MethodID:             record.MethodID,
		TransactionReference: record.ExternalReference,
		SubscriptionID:       subscription.ID,
	}
	created, err := s.repo.CreatePaymentIfNotExists(payment)
	if err != nil {
		return nil, err
	}
	if !created {
		// The cheap check above raced with a concurrent delivery; the unique
		// index already absorbed the duplicate.
		return s.counted(alreadyProcessed()), nil
	}

	s.publishProcessed(ctx, record, subscription, payment)
	s.invalidator.Invalidate(ctx,
		cache.AthleteProfileKey(record.Metadata.AthleteID),
		cache.EnrollmentRequestsKey(record.Metadata.AthleteID),
	)

	return s.counted(&Outcome{Kind: OutcomeProcessed, Subscription: subscription, Payment: payment}), nil
}

func (s *Service) publishProcessed(ctx context.Context, record *gateway.PaymentRecord, subscription *models.Subscription, payment *models.Payment) {
	event := eventbus.PaymentProcessedEvent{
		EventID:        uuid.NewString(),
		AthleteID:      payment.AthleteID,
		SubscriptionID: subscription.ID,
		ScheduleID:     record.Metadata.ScheduleID,
		PaymentID:      payment.PaymentID,
		Amount:         payment.Amount,
		PaymentDate:    payment.PaymentDate,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The payment is already committed; the event is propagation, not the
		// system of record. Count it so the gap is alertable.
		metrics.EventPublishFailures.Inc()
		log.Errorf("[Payments] event for payment %s was not published: %v", payment.PaymentID, err)
	}
}

func (s *Service) counted(o *Outcome) *Outcome {
	metrics.WebhookOutcomes.WithLabelValues(string(o.Kind)).Inc()
	return o
}
