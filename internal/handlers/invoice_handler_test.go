package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/invoiceforge/backend/internal/artifact"
	"github.com/invoiceforge/backend/internal/keys"
	"github.com/invoiceforge/backend/internal/middleware"
	"github.com/invoiceforge/backend/internal/models"
	"github.com/invoiceforge/backend/internal/services"
	"github.com/invoiceforge/backend/internal/store"
)

const samplePayload = `{
	"invoice_number": "2026-001",
	"client_name": "ACME Corp",
	"client_email": "billing@acme.test",
	"due_date": "2026-09-30",
	"items": [
		{"description": "Design", "quantity": 1, "unit_price": 100},
		{"description": "Hosting", "quantity": 1, "unit_price": 50}
	]
}`

// recordingQueue captures enqueued invoice ids.
type recordingQueue struct {
	ids []string
}

func (q *recordingQueue) Enqueue(_ context.Context, id string) error {
	q.ids = append(q.ids, id)
	return nil
}

func newTestHandler(t *testing.T, queue *recordingQueue) (*InvoiceHandler, *store.MemoryStore) {
	t.Helper()
	validator, err := services.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	artifacts, err := artifact.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	mem := store.NewMemoryStore()
	h := &InvoiceHandler{
		Invoices:  mem,
		Artifacts: artifacts,
		Validator: validator,
		Logger:    discardLogger(),
	}
	if queue != nil {
		h.Queue = queue
	}
	return h, mem
}

func TestGenerate_Success(t *testing.T) {
	queue := &recordingQueue{}
	h, mem := newTestHandler(t, queue)

	req := httptest.NewRequest(http.MethodPost, "/generate-invoice", strings.NewReader(samplePayload))
	rec := httptest.NewRecorder()
	h.Generate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		InvoiceID      string `json:"invoice_id"`
		PDFURL         string `json:"pdf_url"`
		DeliveryStatus string `json:"delivery_status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp.InvoiceID, models.InvoiceIDPrefix) {
		t.Errorf("expected inv_ id, got %q", resp.InvoiceID)
	}
	if resp.PDFURL != "/invoice/"+resp.InvoiceID {
		t.Errorf("unexpected pdf_url %q", resp.PDFURL)
	}
	if resp.DeliveryStatus != models.DeliveryStatusQueued {
		t.Errorf("expected queued delivery, got %q", resp.DeliveryStatus)
	}
	if len(queue.ids) != 1 || queue.ids[0] != resp.InvoiceID {
		t.Errorf("expected delivery enqueued for %q, got %v", resp.InvoiceID, queue.ids)
	}

	inv, err := mem.GetInvoice(context.Background(), resp.InvoiceID)
	if err != nil {
		t.Fatalf("metadata row missing: %v", err)
	}
	if inv.Total != 150 {
		t.Errorf("expected total 150, got %v", inv.Total)
	}
}

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, string) error {
	return errors.New("queue unavailable")
}

// Enqueue failure is a partial failure: the invoice stays downloadable and
// the request still succeeds, with the failure on the delivery status.
func TestGenerate_EnqueueFailureDoesNotFailRequest(t *testing.T) {
	validator, err := services.NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	artifacts, err := artifact.NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	mem := store.NewMemoryStore()
	h := &InvoiceHandler{
		Invoices:  mem,
		Artifacts: artifacts,
		Validator: validator,
		Queue:     failingQueue{},
		Logger:    discardLogger(),
	}

	rec := httptest.NewRecorder()
	h.Generate(rec, httptest.NewRequest(http.MethodPost, "/generate-invoice", strings.NewReader(samplePayload)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 despite enqueue failure, got %d", rec.Code)
	}
	var resp struct {
		InvoiceID      string `json:"invoice_id"`
		DeliveryStatus string `json:"delivery_status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DeliveryStatus != models.DeliveryStatusFailed {
		t.Errorf("expected failed delivery status, got %q", resp.DeliveryStatus)
	}
	if _, err := h.Artifacts.Load(resp.InvoiceID); err != nil {
		t.Errorf("artifact not retrievable after enqueue failure: %v", err)
	}
}

func TestGenerate_ThenDownload_RoundTrip(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	h.Generate(rec, httptest.NewRequest(http.MethodPost, "/generate-invoice", strings.NewReader(samplePayload)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate: expected 201, got %d", rec.Code)
	}
	var resp struct {
		InvoiceID string `json:"invoice_id"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	stored, err := h.Artifacts.Load(resp.InvoiceID)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}

	dl := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/invoice/"+resp.InvoiceID, nil)
	req.SetPathValue("id", resp.InvoiceID)
	h.Download(dl, req)

	if dl.Code != http.StatusOK {
		t.Fatalf("download: expected 200, got %d", dl.Code)
	}
	if got := dl.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", got)
	}
	if cd := dl.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("expected attachment disposition, got %q", cd)
	}
	if !bytes.Equal(dl.Body.Bytes(), stored) {
		t.Error("downloaded bytes differ from stored artifact")
	}
}

func TestGenerateDemo_SeparateNamespaceNoEmail(t *testing.T) {
	queue := &recordingQueue{}
	h, mem := newTestHandler(t, queue)

	rec := httptest.NewRecorder()
	h.GenerateDemo(rec, httptest.NewRequest(http.MethodPost, "/demo-invoice", strings.NewReader(samplePayload)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		InvoiceID      string `json:"invoice_id"`
		DeliveryStatus string `json:"delivery_status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.InvoiceID, models.DemoInvoiceIDPrefix) {
		t.Errorf("expected demo_ id, got %q", resp.InvoiceID)
	}
	if resp.DeliveryStatus != models.DeliveryStatusNone {
		t.Errorf("expected no delivery for demo, got %q", resp.DeliveryStatus)
	}
	if len(queue.ids) != 0 {
		t.Errorf("demo invoice was enqueued for email: %v", queue.ids)
	}

	inv, err := mem.GetInvoice(context.Background(), resp.InvoiceID)
	if err != nil {
		t.Fatalf("metadata row missing: %v", err)
	}
	if !inv.Demo {
		t.Error("invoice not flagged as demo")
	}
}

func TestGenerate_InvalidPayload(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	cases := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not JSON", "{"},
		{"missing items", `{"invoice_number":"1","client_name":"A","client_email":"a@b.c","due_date":"x"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Generate(rec, httptest.NewRequest(http.MethodPost, "/generate-invoice", strings.NewReader(tc.body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), "error") {
				t.Errorf("expected error body, got %s", rec.Body.String())
			}
		})
	}
}

func TestDownload_NotFound(t *testing.T) {
	h, _ := newTestHandler(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/invoice/inv_missing", nil)
	req.SetPathValue("id", "inv_missing")
	h.Download(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStatus_ReportsDelivery(t *testing.T) {
	h, mem := newTestHandler(t, nil)

	inv := &models.Invoice{
		ID:             "inv_abc",
		InvoiceNumber:  "2026-002",
		ClientEmail:    "c@d.e",
		DeliveryStatus: models.DeliveryStatusFailed,
		DeliveryError:  "mailbox full",
		CreatedAt:      time.Now().UTC(),
	}
	if err := mem.CreateInvoice(context.Background(), inv); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/invoice/inv_abc/status", nil)
	req.SetPathValue("id", "inv_abc")
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), models.DeliveryStatusFailed) {
		t.Errorf("expected delivery status in body, got %s", rec.Body.String())
	}
}

// TestGate_UnknownKeyDoesNotTouchUsage runs the full middleware chain the
// way routes.go assembles it: a 401 must leave the usage ledger untouched.
func TestGate_UnknownKeyDoesNotTouchUsage(t *testing.T) {
	h, mem := newTestHandler(t, nil)
	keySvc := keys.NewService(mem)

	gate := middleware.APIKeyAuth(keySvc)(
		middleware.QuotaCheck(mem, 10, time.UTC, time.Now)(
			http.HandlerFunc(h.Generate)))

	req := httptest.NewRequest(http.MethodPost, "/generate-invoice", strings.NewReader(samplePayload))
	req.Header.Set("x-api-key", "ifk_never_issued")
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if _, err := mem.GetUsage(context.Background(), keys.HashKey("ifk_never_issued")); err != store.ErrNotFound {
		t.Errorf("usage record touched for rejected key: %v", err)
	}
}

// TestGate_IssuedKeyAllowedThenRateLimited drives the chain with a real key
// through the quota boundary.
func TestGate_IssuedKeyAllowedThenRateLimited(t *testing.T) {
	h, mem := newTestHandler(t, nil)
	keySvc := keys.NewService(mem)

	raw, err := keySvc.Issue(context.Background())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	gate := middleware.APIKeyAuth(keySvc)(
		middleware.QuotaCheck(mem, 2, time.UTC, time.Now)(
			http.HandlerFunc(h.Generate)))

	codes := []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}
	for i, want := range codes {
		req := httptest.NewRequest(http.MethodPost, "/generate-invoice", strings.NewReader(samplePayload))
		req.Header.Set("x-api-key", raw)
		rec := httptest.NewRecorder()
		gate.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("call %d: expected %d, got %d: %s", i+1, want, rec.Code, rec.Body.String())
		}
	}
}
