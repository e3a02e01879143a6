package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full service configuration, read once at startup from the
// environment. Either DatabaseURL (Postgres + River delivery queue) or
// SQLitePath (embedded store, in-process delivery) selects the backing
// store; DatabaseURL wins when both are set.
type Config struct {
	Port        string
	DatabaseURL string
	SQLitePath  string

	// Quota
	DailyQuota     int            // allowed generate-invoice calls per key per day
	BurstPerMinute int            // in-memory per-key burst guard
	QuotaLocation  *time.Location // reference timezone for the daily window

	// Artifacts
	InvoiceDir string

	// Stripe
	StripeSecretKey string
	BaseURL         string // external base URL for checkout redirects

	// Outbound mail
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
}

// FromEnv loads configuration with development defaults, mirroring the env
// surface of the original service plus the quota knobs.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      getenv("SQLITE_PATH", "invoiceforge.db"),
		DailyQuota:      10,
		BurstPerMinute:  60,
		InvoiceDir:      getenv("INVOICE_DIR", "invoices"),
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		BaseURL:         getenv("BASE_URL", "http://localhost:8080"),
		SMTPHost:        os.Getenv("SMTP_HOST"),
		SMTPPort:        587,
		SMTPUsername:    os.Getenv("SMTP_USERNAME"),
		SMTPPassword:    os.Getenv("SMTP_PASSWORD"),
		MailFrom:        getenv("MAIL_FROM", "invoices@localhost"),
	}

	var err error
	if cfg.DailyQuota, err = getenvInt("DAILY_QUOTA", cfg.DailyQuota); err != nil {
		return nil, err
	}
	if cfg.BurstPerMinute, err = getenvInt("BURST_PER_MINUTE", cfg.BurstPerMinute); err != nil {
		return nil, err
	}
	if cfg.SMTPPort, err = getenvInt("SMTP_PORT", cfg.SMTPPort); err != nil {
		return nil, err
	}

	// The quota window is a calendar date in one fixed timezone, decided
	// here and never re-derived from the local server clock.
	tz := getenv("QUOTA_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTA_TIMEZONE %q: %w", tz, err)
	}
	cfg.QuotaLocation = loc

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
