package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/segmentio/kafka-go"
	"github.com/sportac/backoffice/internal/pkg/env"
	"github.com/sportac/backoffice/internal/pkg/metrics"
)

const (
	handleAttempts = 3
	handleBackoff  = 250 * time.Millisecond
)

// Handler applies the side effects of one PaymentProcessed event. It must be
// idempotent: the broker redelivers on consumer restarts and rebalances.
type Handler func(ctx context.Context, event PaymentProcessedEvent) error

// messageReader is the slice of kafka.Reader the consumer uses; tests swap in
// a fake.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs a consumer-group loop over the payment_processed topic and
// hands decoded events to a Handler. Offsets are committed only after the
// handler succeeds, so a crash mid-apply results in redelivery, never loss.
type Consumer struct {
	reader  messageReader
	handler Handler
}

// NewConsumer creates a consumer-group reader for the given handler.
func NewConsumer(brokers []string, groupID string, handler Handler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   Topic,
		}),
		handler: handler,
	}
}

// NewConsumerFromEnv creates a consumer from KAFKA_BROKERS / KAFKA_GROUP_ID.
func NewConsumerFromEnv(handler Handler) *Consumer {
	brokers := strings.Split(env.GetEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	groupID := env.GetEnv("KAFKA_GROUP_ID", "enrollmentd")
	return NewConsumer(brokers, groupID, handler)
}

// Run consumes until the context is canceled.
//
// Undecodable payloads are logged, counted and committed: a poison message
// must not wedge the partition. Handler failures are retried in place with a
// bounded backoff; if the message still cannot be applied, Run returns the
// error without committing. Skipping ahead is not an option, since a later
// commit on the same partition would move the group position past the failed
// offset and the event would never be redelivered. Exiting keeps the last
// committed offset intact, so the group resumes at the failed message; the
// handler's idempotency makes the replayed prefix safe.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		var event PaymentProcessedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			metrics.EnrollmentEvents.WithLabelValues("poison").Inc()
			log.Errorf("[EventBus] skipping undecodable message at %s/%d offset %d: %v",
				msg.Topic, msg.Partition, msg.Offset, err)
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return err
			}
			continue
		}

		if err := c.apply(ctx, event); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

// apply runs the handler with a bounded retry. The terminal error is returned
// so Run can stop without advancing the committed offset.
func (c *Consumer) apply(ctx context.Context, event PaymentProcessedEvent) error {
	var lastErr error
	for attempt := 1; attempt <= handleAttempts; attempt++ {
		lastErr = c.handler(ctx, event)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < handleAttempts {
			backoff := handleBackoff * time.Duration(1<<(attempt-1))
			log.Warnf("[EventBus] handler attempt %d/%d for event %s (payment %s) failed: %v (retrying in %s)",
				attempt, handleAttempts, event.EventID, event.PaymentID, lastErr, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	log.Errorf("[EventBus] handler failed for event %s (payment %s) after %d attempts, stopping without commit: %v",
		event.EventID, event.PaymentID, handleAttempts, lastErr)
	return fmt.Errorf("apply event %s after %d attempts: %w", event.EventID, handleAttempts, lastErr)
}

// Close releases the group membership and underlying connections.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
