package store

import (
	"context"
	"errors"

	"github.com/invoiceforge/backend/internal/models"
)

// ErrNotFound is returned by lookups for ids that were never stored.
// Callers must distinguish it from real storage failures: an unreadable
// store is an internal error, not a miss.
var ErrNotFound = errors.New("not found")

// KeyStore is the durable, append-only set of issued API keys.
type KeyStore interface {
	// CreateKey persists a new key. The raw token must not be handed to a
	// caller until this has returned nil.
	CreateKey(ctx context.Context, k *models.APIKey) error
	// KeyExists reports whether keyHash is in the key set. It reads the
	// authoritative store on every call.
	KeyExists(ctx context.Context, keyHash string) (bool, error)
}

// UsageStore is the durable per-key daily counter.
type UsageStore interface {
	// IncrementUsage atomically bumps the counter for keyHash on day and
	// returns the post-increment count. A stored record for a different
	// day counts as zero. Concurrent increments for the same key must be
	// serialized: no lost updates.
	IncrementUsage(ctx context.Context, keyHash, day string) (int, error)
	// GetUsage returns the live counter record, or ErrNotFound if the key
	// has never been used.
	GetUsage(ctx context.Context, keyHash string) (*models.UsageRecord, error)
}

// InvoiceStore holds metadata for rendered invoices. PDF bytes live in the
// artifact store, keyed by the same id.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoice(ctx context.Context, id string) (*models.Invoice, error)
	// SetDeliveryStatus records the outcome of the async email delivery.
	SetDeliveryStatus(ctx context.Context, id, status, deliveryErr string) error
}

// Store is the full persistence surface. Three implementations: Postgres
// (production default), embedded SQLite (single-node), and an in-process
// locked table for tests.
type Store interface {
	KeyStore
	UsageStore
	InvoiceStore
	Close() error
}
