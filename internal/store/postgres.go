package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/invoiceforge/backend/internal/models"
)

// PostgresStore is the production store, one table per record type.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ Store = (*PostgresStore)(nil)

// EnsureSchema creates the three tables if missing. Run once at startup,
// before River migrations.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS api_keys (
			key_hash   TEXT PRIMARY KEY,
			key_prefix TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS usage_counters (
			key_hash TEXT PRIMARY KEY REFERENCES api_keys(key_hash),
			day      TEXT NOT NULL,
			count    INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invoices (
			id              TEXT PRIMARY KEY,
			invoice_number  TEXT NOT NULL,
			client_name     TEXT NOT NULL,
			client_email    TEXT NOT NULL,
			total           DOUBLE PRECISION NOT NULL,
			demo            BOOLEAN NOT NULL,
			delivery_status TEXT NOT NULL,
			delivery_error  TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreateKey(ctx context.Context, k *models.APIKey) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO api_keys (key_hash, key_prefix, created_at)
		VALUES ($1, $2, $3)
	`, k.KeyHash, k.KeyPrefix, k.CreatedAt)
	return err
}

func (s *PostgresStore) KeyExists(ctx context.Context, keyHash string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM api_keys WHERE key_hash = $1)
	`, keyHash).Scan(&exists)
	return exists, err
}

// IncrementUsage is a single upsert so the row lock serializes concurrent
// increments for the same key. A row carrying a stale day restarts at 1.
func (s *PostgresStore) IncrementUsage(ctx context.Context, keyHash, day string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO usage_counters (key_hash, day, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (key_hash) DO UPDATE
		SET count = CASE WHEN usage_counters.day = EXCLUDED.day
		                 THEN usage_counters.count + 1 ELSE 1 END,
		    day = EXCLUDED.day
		RETURNING count
	`, keyHash, day).Scan(&count)
	return count, err
}

func (s *PostgresStore) GetUsage(ctx context.Context, keyHash string) (*models.UsageRecord, error) {
	var rec models.UsageRecord
	err := s.pool.QueryRow(ctx, `
		SELECT key_hash, day, count FROM usage_counters WHERE key_hash = $1
	`, keyHash).Scan(&rec.KeyHash, &rec.Day, &rec.Count)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO invoices (id, invoice_number, client_name, client_email, total, demo, delivery_status, delivery_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, inv.ID, inv.InvoiceNumber, inv.ClientName, inv.ClientEmail, inv.Total, inv.Demo, inv.DeliveryStatus, inv.DeliveryError, inv.CreatedAt)
	return err
}

func (s *PostgresStore) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.pool.QueryRow(ctx, `
		SELECT id, invoice_number, client_name, client_email, total, demo, delivery_status, delivery_error, created_at
		FROM invoices WHERE id = $1
	`, id).Scan(&inv.ID, &inv.InvoiceNumber, &inv.ClientName, &inv.ClientEmail, &inv.Total, &inv.Demo, &inv.DeliveryStatus, &inv.DeliveryError, &inv.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *PostgresStore) SetDeliveryStatus(ctx context.Context, id, status, deliveryErr string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE invoices SET delivery_status = $2, delivery_error = $3 WHERE id = $1
	`, id, status, deliveryErr)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
