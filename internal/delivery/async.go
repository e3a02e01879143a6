package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/invoiceforge/backend/internal/models"
	"github.com/invoiceforge/backend/internal/store"
)

const (
	asyncAttempts    = 3
	asyncBaseBackoff = 2 * time.Second
	asyncSendTimeout = 60 * time.Second
)

// asyncBackoff is the wait between attempts. Tests replace this to avoid
// real sleeps.
var asyncBackoff = func(attempt int) time.Duration {
	return asyncBaseBackoff * time.Duration(attempt)
}

// AsyncQueue is the in-process fallback used when running on SQLite, where
// there is no River queue: a goroutine per invoice with bounded retries.
// Pending deliveries do not survive a restart; the durable queue is the
// Postgres deployment's job.
type AsyncQueue struct {
	invoices  store.InvoiceStore
	artifacts ArtifactLoader
	sender    Sender
	log       *slog.Logger

	wg sync.WaitGroup
}

func NewAsyncQueue(invoices store.InvoiceStore, artifacts ArtifactLoader, sender Sender, log *slog.Logger) *AsyncQueue {
	if log == nil {
		log = slog.Default()
	}
	return &AsyncQueue{invoices: invoices, artifacts: artifacts, sender: sender, log: log}
}

var _ Queue = (*AsyncQueue)(nil)

// Enqueue never blocks the caller on delivery; it only spawns the attempt
// loop.
func (q *AsyncQueue) Enqueue(_ context.Context, invoiceID string) error {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.deliver(invoiceID)
	}()
	return nil
}

// Wait blocks until all in-flight deliveries finish. Tests use it; main
// does not.
func (q *AsyncQueue) Wait() {
	q.wg.Wait()
}

func (q *AsyncQueue) deliver(id string) {
	ctx := context.Background()

	inv, err := q.invoices.GetInvoice(ctx, id)
	if err != nil {
		q.log.Error("delivery: load invoice", "invoice_id", id, "error", err)
		return
	}
	pdf, err := q.artifacts.Load(id)
	if err != nil {
		q.log.Error("delivery: load artifact", "invoice_id", id, "error", err)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= asyncAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, asyncSendTimeout)
		lastErr = q.sender.Send(sendCtx, inv, pdf)
		cancel()
		if lastErr == nil {
			if err := q.invoices.SetDeliveryStatus(ctx, id, models.DeliveryStatusSent, ""); err != nil {
				q.log.Error("delivery: mark sent", "invoice_id", id, "error", err)
			}
			q.log.Info("invoice delivered", "invoice_id", id, "to", inv.ClientEmail, "attempt", attempt)
			return
		}
		q.log.Warn("delivery attempt failed", "invoice_id", id, "attempt", attempt, "error", lastErr)
		if attempt < asyncAttempts {
			time.Sleep(asyncBackoff(attempt))
		}
	}

	if err := q.invoices.SetDeliveryStatus(ctx, id, models.DeliveryStatusFailed, lastErr.Error()); err != nil {
		q.log.Error("delivery: mark failed", "invoice_id", id, "error", err)
	}
}
