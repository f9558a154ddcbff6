package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/segmentio/kafka-go"
	"github.com/sportac/backoffice/internal/pkg/env"
	"github.com/sportac/backoffice/internal/pkg/metrics"
)

const (
	publishAttempts = 3
	publishBackoff  = 250 * time.Millisecond
)

// Publisher emits PaymentProcessed events to the broker.
type Publisher interface {
	Publish(ctx context.Context, event PaymentProcessedEvent) error
	Close() error
}

// messageWriter is the slice of kafka.Writer the publisher uses; tests swap in
// a fake to observe retry behavior.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
}

// NewPublisher creates a Kafka publisher on the payment_processed topic. The
// hash balancer routes all events for one athlete to the same partition.
func NewPublisher(brokers []string) Publisher {
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// NewPublisherFromEnv creates a publisher from the KAFKA_BROKERS env value.
func NewPublisherFromEnv() Publisher {
	brokers := strings.Split(env.GetEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	return NewPublisher(brokers)
}

// Publish writes the event with a bounded retry. It must not block the payment
// commit that already happened, so after the last attempt the error is
// returned for the caller to record as a missed-event alert; nothing here
// retries indefinitely.
func (p *kafkaPublisher) Publish(ctx context.Context, event PaymentProcessedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.EventID, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.AthleteID),
		Value: value,
	}

	var lastErr error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		lastErr = p.writer.WriteMessages(ctx, msg)
		if lastErr == nil {
			metrics.EventsPublished.Inc()
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < publishAttempts {
			backoff := publishBackoff * time.Duration(1<<(attempt-1))
			log.Warnf("[EventBus] publish attempt %d/%d for payment %s failed: %v (retrying in %s)",
				attempt, publishAttempts, event.PaymentID, lastErr, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("publish event %s: %w", event.EventID, ctx.Err())
			}
		}
	}

	return fmt.Errorf("publish event %s after %d attempts: %w", event.EventID, publishAttempts, lastErr)
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
