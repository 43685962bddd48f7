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

	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"giftwrap/pkg/bus"
	"giftwrap/pkg/db"
	gos3 "giftwrap/pkg/s3"
	"giftwrap/pkg/telemetry"
	"giftwrap/services/api"
)

func main() {
	if err := run("gift-api"); err != nil {
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

	cfg, err := api.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store := &api.Store{}

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		pool, orm, err := openDatabase(ctx, dsn)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer pool.Close()
		store.DB = pool
		store.ORM = orm
	} else {
		logger.Printf("WARN DATABASE_URL not set, replies live in memory only")
	}

	if natsURL := strings.TrimSpace(os.Getenv("NATS_URL")); natsURL != "" {
		eventBus, err := bus.New(natsURL)
		if err != nil {
			return fmt.Errorf("connect bus: %w", err)
		}
		defer eventBus.Close()
		store.Bus = eventBus
	} else {
		logger.Printf("WARN NATS_URL not set, reply notifications disabled")
	}

	if endpoint := strings.TrimSpace(os.Getenv("S3_ENDPOINT")); endpoint != "" {
		s3Client, err := gos3.NewClientFromEnv()
		if err != nil {
			return fmt.Errorf("init s3 client: %w", err)
		}
		store.S3 = s3Client
	}

	giftAPI, err := api.New(store, cfg, logger)
	if err != nil {
		return fmt.Errorf("init api: %w", err)
	}

	routes, err := giftAPI.Routes()
	if err != nil {
		return fmt.Errorf("build routes: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if store.DB != nil {
			if err := db.Ping(r.Context(), store.DB); err != nil {
				http.Error(w, "database not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", giftAPI.MetricsHandler())
	mux.Handle("/", routes)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
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

	logger.Printf("INFO http listening on %s", server.Addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("ERROR server failed: %v", err)
		return err
	}

	return nil
}

func openDatabase(ctx context.Context, dsn string) (*pgxpool.Pool, *gorm.DB, error) {
	pool, err := db.Open(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}

	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	orm, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	return pool, orm, nil
}
