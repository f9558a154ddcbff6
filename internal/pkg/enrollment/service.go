package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sportac/backoffice/app/models"
	"github.com/sportac/backoffice/internal/pkg/eventbus"
	"github.com/sportac/backoffice/internal/pkg/metrics"
	"gorm.io/gorm"
)

// Service applies the side effects of a PaymentProcessed event: approve the
// athlete's enrollment request and take one seat on the schedule. Both paths
// are idempotent; the broker redelivers at least once.
type Service struct {
	repo Repository
}

// NewService creates the consumer-side service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates the service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// HandleEvent is the eventbus.Handler for the enrollment service. A returned
// error leaves the offset uncommitted so the event is delivered again.
func (s *Service) HandleEvent(ctx context.Context, event eventbus.PaymentProcessedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.AthleteID == "" || event.SubscriptionID == 0 {
		metrics.EnrollmentEvents.WithLabelValues("invalid").Inc()
		return errors.New("event is missing athlete or subscription reference")
	}

	if err := s.repo.ApproveRequest(event.AthleteID, event.SubscriptionID); err != nil {
		metrics.EnrollmentEvents.WithLabelValues("error").Inc()
		return fmt.Errorf("approve enrollment for athlete %s: %w", event.AthleteID, err)
	}

	claim := &models.CapacityClaim{
		AthleteID:      event.AthleteID,
		SubscriptionID: event.SubscriptionID,
		PaymentID:      event.PaymentID,
	}
	claimed, decremented, err := s.repo.ClaimAndDecrement(claim, event.ScheduleID)
	if err != nil {
		metrics.EnrollmentEvents.WithLabelValues("error").Inc()
		return fmt.Errorf("claim capacity for athlete %s: %w", event.AthleteID, err)
	}
	if !claimed {
		metrics.EnrollmentEvents.WithLabelValues("duplicate").Inc()
		log.Infof("[Enrollment] event %s redelivered, seat already claimed for athlete %s",
			event.EventID, event.AthleteID)
		return nil
	}

	if decremented {
		metrics.CapacityDecrements.Inc()
	} else if event.ScheduleID != "" {
		log.Warnf("[Enrollment] claim recorded for athlete %s but schedule %s had no remaining slots",
			event.AthleteID, event.ScheduleID)
	}
	metrics.EnrollmentEvents.WithLabelValues("applied").Inc()
	return nil
}
