package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/invoiceforge/backend/internal/artifact"
	"github.com/invoiceforge/backend/internal/config"
	"github.com/invoiceforge/backend/internal/delivery"
	"github.com/invoiceforge/backend/internal/handlers"
	"github.com/invoiceforge/backend/internal/keys"
	"github.com/invoiceforge/backend/internal/middleware"
	"github.com/invoiceforge/backend/internal/payment"
	"github.com/invoiceforge/backend/internal/ratelimit"
	"github.com/invoiceforge/backend/internal/services"
	"github.com/invoiceforge/backend/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	artifacts, err := artifact.NewDiskStore(cfg.InvoiceDir)
	if err != nil {
		slog.Error("Failed to open artifact directory", "error", err)
		os.Exit(1)
	}

	validator, err := services.NewValidator()
	if err != nil {
		slog.Error("Failed to compile invoice schema", "error", err)
		os.Exit(1)
	}

	// Outbound mail is optional; without it invoices are still generated
	// and downloadable, just never emailed.
	var sender delivery.Sender
	if cfg.SMTPHost != "" {
		sender, err = delivery.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailFrom)
		if err != nil {
			slog.Error("Failed to configure SMTP", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("SMTP_HOST not set, email delivery disabled")
	}

	// Postgres when DATABASE_URL is set (with River-backed delivery),
	// otherwise embedded SQLite with in-process delivery.
	var (
		st         store.Store
		queue      delivery.Queue
		startRiver func(context.Context) error
		stopRiver  func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("Unable to create database pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if err := pool.Ping(ctx); err != nil {
			slog.Error("Cannot reach PostgreSQL (connection refused or invalid)", "error", err)
			os.Exit(1)
		}

		pgStore := store.NewPostgresStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			slog.Error("Schema bootstrap failed", "error", err)
			os.Exit(1)
		}
		st = pgStore
		slog.Info("Connected to PostgreSQL")

		migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
		if err != nil {
			slog.Error("Failed to create River migrator", "error", err)
			os.Exit(1)
		}
		if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
			slog.Error("River migrate up failed", "error", err)
			os.Exit(1)
		}

		if sender != nil {
			workers := river.NewWorkers()
			river.AddWorker(workers, delivery.NewDeliverInvoiceWorker(st, artifacts, sender, logger))
			riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
				Queues: map[string]river.QueueConfig{
					river.QueueDefault: {MaxWorkers: 10},
				},
				Workers: workers,
			})
			if err != nil {
				slog.Error("Failed to create River client", "error", err)
				os.Exit(1)
			}
			queue = delivery.QueueFunc(func(ctx context.Context, invoiceID string) error {
				_, err := riverClient.Insert(ctx, delivery.DeliverInvoiceJobArgs{InvoiceID: invoiceID}, nil)
				return err
			})
			startRiver = riverClient.Start
			stopRiver = riverClient.Stop
		}
	} else {
		sqlStore, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			slog.Error("Failed to open SQLite store", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		defer sqlStore.Close()
		st = sqlStore
		slog.Info("Using embedded SQLite store", "path", cfg.SQLitePath)

		if sender != nil {
			queue = delivery.NewAsyncQueue(st, artifacts, sender, logger)
		}
	}

	keySvc := keys.NewService(st)
	checkout := payment.NewCheckout(cfg.StripeSecretKey, cfg.BaseURL)

	invoiceHandler := &handlers.InvoiceHandler{
		Invoices:  st,
		Artifacts: artifacts,
		Validator: validator,
		Queue:     queue,
		Logger:    logger,
	}
	checkoutHandler := &handlers.CheckoutHandler{
		Checkout: checkout,
		Keys:     keySvc,
		Logger:   logger,
	}

	auth := middleware.APIKeyAuth(keySvc)
	burst := middleware.BurstCheck(ratelimit.NewKeyed(cfg.BurstPerMinute))
	quota := middleware.QuotaCheck(st, cfg.DailyQuota, cfg.QuotaLocation, time.Now)

	mux := http.NewServeMux()
	RegisterRoutes(mux, invoiceHandler, checkoutHandler, auth, burst, quota)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "x-api-key"},
	}).Handler(mux)

	if startRiver != nil {
		riverCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := startRiver(riverCtx); err != nil && riverCtx.Err() == nil {
				slog.Error("River client stopped", "error", err)
			}
		}()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = stopRiver(stopCtx)
		}()
	}

	addr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", addr, "daily_quota", cfg.DailyQuota)
	if err := http.ListenAndServe(addr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
