package store

import (
	"context"
	"database/sql"
	"errors"

	_ "modernc.org/sqlite"

	"github.com/invoiceforge/backend/internal/models"
)

// SQLiteStore is the embedded single-node store. One writer connection:
// SQLite serializes writes anyway, and capping the pool at one avoids
// SQLITE_BUSY under concurrent increments.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

var _ Store = (*SQLiteStore)(nil)

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS api_keys (
			key_hash   TEXT PRIMARY KEY,
			key_prefix TEXT NOT NULL,
			created_at DATETIME NOT NULL
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
			total           REAL NOT NULL,
			demo            INTEGER NOT NULL,
			delivery_status TEXT NOT NULL,
			delivery_error  TEXT NOT NULL DEFAULT '',
			created_at      DATETIME NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) CreateKey(ctx context.Context, k *models.APIKey) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO api_keys (key_hash, key_prefix, created_at) VALUES (?, ?, ?)",
		k.KeyHash, k.KeyPrefix, k.CreatedAt)
	return err
}

func (s *SQLiteStore) KeyExists(ctx context.Context, keyHash string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM api_keys WHERE key_hash = ?", keyHash).Scan(&count)
	return count > 0, err
}

func (s *SQLiteStore) IncrementUsage(ctx context.Context, keyHash, day string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO usage_counters (key_hash, day, count)
		VALUES (?, ?, 1)
		ON CONFLICT (key_hash) DO UPDATE
		SET count = CASE WHEN usage_counters.day = excluded.day
		                 THEN usage_counters.count + 1 ELSE 1 END,
		    day = excluded.day
		RETURNING count
	`, keyHash, day).Scan(&count)
	return count, err
}

func (s *SQLiteStore) GetUsage(ctx context.Context, keyHash string) (*models.UsageRecord, error) {
	var rec models.UsageRecord
	err := s.db.QueryRowContext(ctx,
		"SELECT key_hash, day, count FROM usage_counters WHERE key_hash = ?",
		keyHash).Scan(&rec.KeyHash, &rec.Day, &rec.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLiteStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (id, invoice_number, client_name, client_email, total, demo, delivery_status, delivery_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, inv.ID, inv.InvoiceNumber, inv.ClientName, inv.ClientEmail, inv.Total, inv.Demo, inv.DeliveryStatus, inv.DeliveryError, inv.CreatedAt)
	return err
}

func (s *SQLiteStore) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.QueryRowContext(ctx, `
		SELECT id, invoice_number, client_name, client_email, total, demo, delivery_status, delivery_error, created_at
		FROM invoices WHERE id = ?
	`, id).Scan(&inv.ID, &inv.InvoiceNumber, &inv.ClientName, &inv.ClientEmail, &inv.Total, &inv.Demo, &inv.DeliveryStatus, &inv.DeliveryError, &inv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *SQLiteStore) SetDeliveryStatus(ctx context.Context, id, status, deliveryErr string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE invoices SET delivery_status = ?, delivery_error = ? WHERE id = ?",
		status, deliveryErr, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
