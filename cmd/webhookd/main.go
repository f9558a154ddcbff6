package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/sportac/backoffice/app/controllers"
	"github.com/sportac/backoffice/internal/pkg/cache"
	"github.com/sportac/backoffice/internal/pkg/database"
	"github.com/sportac/backoffice/internal/pkg/env"
	"github.com/sportac/backoffice/internal/pkg/eventbus"
	"github.com/sportac/backoffice/internal/pkg/gateway"
	"github.com/sportac/backoffice/internal/pkg/payments"
	"github.com/sportac/backoffice/internal/pkg/router"
)

func main() {
	app, publisher := NewApplication()
	defer publisher.Close()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down webhookd...")
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4100"))
	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}

// NewApplication wires the payment ingestion service: gateway client, ledger
// repository, Kafka publisher, cache invalidator, webhook HTTP surface.
func NewApplication() (*fiber.App, eventbus.Publisher) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	publisher := eventbus.NewPublisherFromEnv()
	service := payments.NewService(
		payments.NewRepository(database.GetDB()),
		gateway.NewClientFromEnv(),
		publisher,
		cache.NewInvalidatorFromCache(),
	)

	app := fiber.New(fiber.Config{
		AppName: "webhookd",
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, router.NewWebhookRouter(controllers.NewWebhookController(service)))

	return app, publisher
}
