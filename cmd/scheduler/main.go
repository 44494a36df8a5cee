package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/pushups/internal/clock"
	"example.com/pushups/internal/config"
	"example.com/pushups/internal/domain"
	"example.com/pushups/internal/notify"
	"example.com/pushups/internal/outbox"
	persistence "example.com/pushups/internal/persistence/postgres"
	"example.com/pushups/internal/reminder"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	loc := cfg.Location()
	service := domain.NewService(
		persistence.NewRepository(pool),
		domain.WithClock(clock.Real{Location: loc}),
	)

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer producer.Close()

	sender := notify.WithTimeout(selectSender(cfg, producer), cfg.NotifyTimeout)
	scheduler := reminder.NewScheduler(service, sender,
		reminder.WithLocation(loc),
		reminder.WithConcurrency(cfg.ReminderConcurrency),
	)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Printf("scheduler metrics listening on %s", cfg.MetricsAddress)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server error: %v", err)
		}
	}()

	if err := scheduler.Run(ctx); err != nil {
		log.Printf("scheduler stopped with error: %v", err)
	}
	log.Println("scheduler shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
}

// selectSender prefers the webhook, then the notification topic, then stdout.
func selectSender(cfg config.Config, producer *outbox.KafkaProducer) notify.Sender {
	switch {
	case cfg.NotifyWebhookURL != "":
		log.Printf("delivering notifications to webhook %s", cfg.NotifyWebhookURL)
		return notify.NewWebhookSender(cfg.NotifyWebhookURL, cfg.NotifyWebhookToken, cfg.NotifyTimeout)
	case cfg.NotificationTopic != "" && len(cfg.KafkaBrokers) > 0:
		log.Printf("publishing notifications to topic %s", cfg.NotificationTopic)
		return notify.NewKafkaSender(producer, cfg.NotificationTopic)
	default:
		log.Println("no notification channel configured, logging notifications")
		return notify.NewLogSender()
	}
}
