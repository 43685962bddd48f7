package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"giftwrap/pkg/bus"
	"giftwrap/pkg/db"
	"giftwrap/pkg/render"
	"giftwrap/pkg/telemetry"
	"giftwrap/services/notifier"
)

func main() {
	if err := run("gift-notifier"); err != nil {
		log.New(os.Stderr, "", log.LstdFlags).Fatal(err)
	}
}

func run(serviceName string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, middleware, logger, err := telemetry.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownTelemetry != nil {
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				fmt.Fprintf(os.Stderr, "%s: telemetry shutdown error: %v\n", serviceName, err)
			}
		}
	}()

	natsURL := strings.TrimSpace(os.Getenv("NATS_URL"))
	if natsURL == "" {
		return errors.New("NATS_URL is required")
	}
	eventBus, err := bus.New(natsURL)
	if err != nil {
		return fmt.Errorf("connect bus: %w", err)
	}
	defer eventBus.Close()

	recipients, err := notifier.ParseRecipientList(os.Getenv("GIFT_NOTIFY_NUMBERS"))
	if err != nil {
		return fmt.Errorf("invalid GIFT_NOTIFY_NUMBERS: %w", err)
	}

	sender, err := notifier.NewTwilioSenderFromEnv()
	if err != nil {
		return fmt.Errorf("init twilio sender: %w", err)
	}

	renderer, err := render.New()
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}

	n, err := buildNotifier(ctx, eventBus, sender, renderer, recipients, logger)
	if err != nil {
		return err
	}
	defer n.Close()

	if err := n.Start(ctx); err != nil {
		return fmt.Errorf("start notifier: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    ":8081",
		Handler: middleware(mux),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "%s: http shutdown error: %v\n", serviceName, err)
		}
	}()

	logger.Printf("INFO notifier listening on %s", server.Addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("ERROR server failed: %v", err)
		return err
	}

	return nil
}

func buildNotifier(ctx context.Context, eventBus *bus.Bus, sender notifier.Sender, renderer *render.Engine, recipients []string, logger *log.Logger) (*notifier.Notifier, error) {
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		pool, err := db.Open(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		return notifier.New(pool, eventBus, sender, renderer, recipients, logger)
	}

	logger.Printf("WARN DATABASE_URL not set, notification audit trail disabled")
	return notifier.New(nil, eventBus, sender, renderer, recipients, logger)
}
