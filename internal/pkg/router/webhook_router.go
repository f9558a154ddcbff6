package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sportac/backoffice/app/controllers"
	"github.com/sportac/backoffice/internal/pkg/database"
)

// WebhookRouter installs the payment service's HTTP surface: the gateway
// webhook, the prometheus scrape endpoint and a liveness probe.
type WebhookRouter struct {
	webhook *controllers.WebhookController
}

func NewWebhookRouter(webhook *controllers.WebhookController) *WebhookRouter {
	return &WebhookRouter{webhook: webhook}
}

func (r WebhookRouter) InstallRouter(app *fiber.App) {
	app.Post("/webhook", r.webhook.HandlePaymentWebhook)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/up", handleLiveness)
}

func handleLiveness(c *fiber.Ctx) error {
	db := database.GetDB()
	if db == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"up": false})
	}
	sqlDB, err := db.DB()
	if err != nil || sqlDB.Ping() != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"up": false})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"up": true})
}
