package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sportac/backoffice/internal/pkg/gateway"
	"github.com/sportac/backoffice/internal/pkg/payments"
)

const webhookTimeout = 15 * time.Second

// webhookRequest is the gateway's delivery envelope. The payment ID rides in
// data.id; older gateway versions put it at the top level.
type webhookRequest struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	DateCreated time.Time `json:"date_created"`
	Data        struct {
		ID string `json:"id"`
	} `json:"data"`
}

// WebhookController exposes the payment gateway webhook endpoint.
type WebhookController struct {
	service *payments.Service
}

// NewWebhookController creates the controller on a wired ingestion service.
func NewWebhookController(service *payments.Service) *WebhookController {
	return &WebhookController{service: service}
}

// HandlePaymentWebhook maps pipeline outcomes onto the contract the gateway
// retries against: 200 means stop retrying, 400 means the delivery is
// malformed and must not be retried, 5xx means retry later.
func (wc *WebhookController) HandlePaymentWebhook(c *fiber.Ctx) error {
	var req webhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	paymentID := req.Data.ID
	if paymentID == "" {
		paymentID = req.ID
	}

	// Derive from the request so a dropped delivery cancels in-flight gateway
	// work instead of running the full timeout out.
	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	outcome, err := wc.service.HandleNotification(ctx, payments.Notification{
		PaymentID:   paymentID,
		Type:        req.Type,
		DateCreated: req.DateCreated,
	})
	if err != nil {
		if errors.Is(err, payments.ErrInvalidMetadata) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_metadata"})
		}
		if errors.Is(err, gateway.ErrUnavailable) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "gateway_unavailable"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	switch outcome.Kind {
	case payments.OutcomeProcessed:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"ok":              true,
			"subscription_id": outcome.Subscription.ID,
		})
	case payments.OutcomeAlreadyProcessed:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	case payments.OutcomeIgnored:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true, "reason": outcome.Reason})
	case payments.OutcomeRejected:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payment_not_approved", "status": outcome.Reason})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unknown_outcome"})
	}
}
