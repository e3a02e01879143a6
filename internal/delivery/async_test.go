package delivery

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/invoiceforge/backend/internal/models"
	"github.com/invoiceforge/backend/internal/store"
)

// flakySender fails the first failures calls, then succeeds.
type flakySender struct {
	failures int32
	calls    int32
}

func (s *flakySender) Send(_ context.Context, _ *models.Invoice, _ []byte) error {
	n := atomic.AddInt32(&s.calls, 1)
	if n <= s.failures {
		return errors.New("smtp: connection refused")
	}
	return nil
}

type fixedArtifacts struct{ pdf []byte }

func (f fixedArtifacts) Load(string) ([]byte, error) { return f.pdf, nil }

func noBackoff(t *testing.T) {
	t.Helper()
	original := asyncBackoff
	asyncBackoff = func(int) time.Duration { return 0 }
	t.Cleanup(func() { asyncBackoff = original })
}

func seedInvoice(t *testing.T, s store.InvoiceStore) *models.Invoice {
	t.Helper()
	inv := &models.Invoice{
		ID:             "inv_1",
		InvoiceNumber:  "2026-001",
		ClientName:     "ACME",
		ClientEmail:    "client@example.com",
		Total:          150,
		DeliveryStatus: models.DeliveryStatusQueued,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.CreateInvoice(context.Background(), inv); err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return inv
}

func TestAsyncQueue_RetriesThenSends(t *testing.T) {
	noBackoff(t)
	mem := store.NewMemoryStore()
	seedInvoice(t, mem)
	sender := &flakySender{failures: 2}

	q := NewAsyncQueue(mem, fixedArtifacts{pdf: []byte("%PDF-")}, sender, nil)
	if err := q.Enqueue(context.Background(), "inv_1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	q.Wait()

	if got := atomic.LoadInt32(&sender.calls); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	inv, err := mem.GetInvoice(context.Background(), "inv_1")
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if inv.DeliveryStatus != models.DeliveryStatusSent {
		t.Errorf("expected status sent, got %q", inv.DeliveryStatus)
	}
}

func TestAsyncQueue_ExhaustedRetriesMarkFailed(t *testing.T) {
	noBackoff(t)
	mem := store.NewMemoryStore()
	seedInvoice(t, mem)
	sender := &flakySender{failures: 99}

	q := NewAsyncQueue(mem, fixedArtifacts{pdf: []byte("%PDF-")}, sender, nil)
	if err := q.Enqueue(context.Background(), "inv_1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	q.Wait()

	inv, err := mem.GetInvoice(context.Background(), "inv_1")
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if inv.DeliveryStatus != models.DeliveryStatusFailed {
		t.Errorf("expected status failed, got %q", inv.DeliveryStatus)
	}
	if inv.DeliveryError == "" {
		t.Error("expected the last send error to be recorded")
	}
}

func TestAsyncQueue_FailureKeepsArtifactRetrievable(t *testing.T) {
	noBackoff(t)
	mem := store.NewMemoryStore()
	seedInvoice(t, mem)

	q := NewAsyncQueue(mem, fixedArtifacts{pdf: []byte("%PDF-")}, &flakySender{failures: 99}, nil)
	_ = q.Enqueue(context.Background(), "inv_1")
	q.Wait()

	// Delivery failed, but the invoice row (and by extension the stored
	// artifact) is untouched apart from its delivery state.
	inv, err := mem.GetInvoice(context.Background(), "inv_1")
	if err != nil {
		t.Fatalf("invoice gone after delivery failure: %v", err)
	}
	if inv.Total != 150 {
		t.Errorf("invoice mutated by delivery failure: %+v", inv)
	}
}
