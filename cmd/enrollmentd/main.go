package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sportac/backoffice/internal/pkg/database"
	"github.com/sportac/backoffice/internal/pkg/enrollment"
	"github.com/sportac/backoffice/internal/pkg/env"
	"github.com/sportac/backoffice/internal/pkg/eventbus"
)

// enrollmentd is the downstream deployable: it owns enrollment and schedule
// capacity state and applies PaymentProcessed events from the broker.
func main() {
	env.SetupEnvFile()
	database.SetupDatabase()

	service := enrollment.NewServiceFromDB(database.GetDB())
	consumer := eventbus.NewConsumerFromEnv(service.HandleEvent)
	defer consumer.Close()

	// Scrape and liveness only; this service has no request-facing surface.
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
			sqlDB, err := database.GetDB().DB()
			if err != nil || sqlDB.PingContext(r.Context()) != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("METRICS_PORT", "4101"))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("metrics listener stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("enrollmentd consuming payment_processed events")
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("consumer stopped: %v", err)
	}
	log.Println("enrollmentd shut down")
}
