package delivery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/invoiceforge/backend/internal/models"
	"github.com/invoiceforge/backend/internal/store"
)

// DeliverInvoiceJobArgs queues email delivery for a stored invoice. Only the
// id travels through the queue; metadata and bytes are re-read at work time.
type DeliverInvoiceJobArgs struct {
	InvoiceID string `json:"invoice_id"`
}

func (DeliverInvoiceJobArgs) Kind() string { return "deliver_invoice" }

// DeliverInvoiceWorker is the River worker behind the Postgres-backed
// deployment. River handles retries and backoff; the worker only decides
// terminal status.
type DeliverInvoiceWorker struct {
	river.WorkerDefaults[DeliverInvoiceJobArgs]
	invoices  store.InvoiceStore
	artifacts ArtifactLoader
	sender    Sender
	log       *slog.Logger
}

func NewDeliverInvoiceWorker(invoices store.InvoiceStore, artifacts ArtifactLoader, sender Sender, log *slog.Logger) *DeliverInvoiceWorker {
	if log == nil {
		log = slog.Default()
	}
	return &DeliverInvoiceWorker{invoices: invoices, artifacts: artifacts, sender: sender, log: log}
}

func (w *DeliverInvoiceWorker) Work(ctx context.Context, job *river.Job[DeliverInvoiceJobArgs]) error {
	id := job.Args.InvoiceID

	inv, err := w.invoices.GetInvoice(ctx, id)
	if err != nil {
		return fmt.Errorf("load invoice %s: %w", id, err)
	}
	pdf, err := w.artifacts.Load(id)
	if err != nil {
		return fmt.Errorf("load artifact %s: %w", id, err)
	}

	if err := w.sender.Send(ctx, inv, pdf); err != nil {
		// Last attempt: record the terminal failure on the invoice. The
		// artifact stays downloadable regardless.
		if job.Attempt >= job.MaxAttempts {
			if markErr := w.invoices.SetDeliveryStatus(ctx, id, models.DeliveryStatusFailed, err.Error()); markErr != nil {
				w.log.Error("mark delivery failed", "invoice_id", id, "error", markErr)
			}
		}
		return err
	}

	if err := w.invoices.SetDeliveryStatus(ctx, id, models.DeliveryStatusSent, ""); err != nil {
		return fmt.Errorf("mark delivery sent %s: %w", id, err)
	}
	w.log.Info("invoice delivered", "invoice_id", id, "to", inv.ClientEmail)
	return nil
}

// QueueFunc adapts a plain function to the Queue interface; main wires the
// River client's Insert through this to avoid pinning the driver type here.
type QueueFunc func(ctx context.Context, invoiceID string) error

func (f QueueFunc) Enqueue(ctx context.Context, invoiceID string) error {
	return f(ctx, invoiceID)
}
