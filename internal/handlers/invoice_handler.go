package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/invoiceforge/backend/internal/artifact"
	"github.com/invoiceforge/backend/internal/delivery"
	"github.com/invoiceforge/backend/internal/models"
	"github.com/invoiceforge/backend/internal/render"
	"github.com/invoiceforge/backend/internal/services"
	"github.com/invoiceforge/backend/internal/store"
)

// InvoiceStoreForHandler is the metadata subset the handler needs.
type InvoiceStoreForHandler interface {
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoice(ctx context.Context, id string) (*models.Invoice, error)
	SetDeliveryStatus(ctx context.Context, id, status, deliveryErr string) error
}

// ArtifactStore persists and serves the rendered PDFs.
type ArtifactStore interface {
	Save(id string, pdf []byte) error
	Load(id string) ([]byte, error)
}

// InvoiceHandler serves the generate and retrieval endpoints.
type InvoiceHandler struct {
	Invoices  InvoiceStoreForHandler
	Artifacts ArtifactStore
	Validator *services.Validator
	Queue     delivery.Queue // nil disables email delivery
	Logger    *slog.Logger
	Now       func() time.Time
}

type generateResponse struct {
	InvoiceID      string `json:"invoice_id"`
	PDFURL         string `json:"pdf_url"`
	DeliveryStatus string `json:"delivery_status"`
}

// Generate handles POST /generate-invoice. The gate middleware has already
// authorized the key and recorded the usage increment by the time this
// runs. Validate -> render -> persist artifact -> persist metadata ->
// enqueue email -> 201. Email failure is never this request's problem.
func (h *InvoiceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, false)
}

// GenerateDemo handles POST /demo-invoice: no key, no quota, watermarked
// output in the demo_ id namespace, nothing emailed.
func (h *InvoiceHandler) GenerateDemo(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, true)
}

func (h *InvoiceHandler) generate(w http.ResponseWriter, r *http.Request, demo bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
		return
	}

	req, err := h.Validator.ValidateInvoice(body)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.Logger.Error("validate invoice", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	pdf, err := render.PDF(req, demo)
	if err != nil {
		h.Logger.Error("render invoice", "error", err)
		http.Error(w, `{"error":"failed to render invoice"}`, http.StatusInternalServerError)
		return
	}

	prefix := models.InvoiceIDPrefix
	if demo {
		prefix = models.DemoInvoiceIDPrefix
	}
	id := prefix + uuid.New().String()

	if err := h.Artifacts.Save(id, pdf); err != nil {
		h.Logger.Error("store artifact", "invoice_id", id, "error", err)
		http.Error(w, `{"error":"failed to store invoice"}`, http.StatusInternalServerError)
		return
	}

	status := models.DeliveryStatusNone
	if !demo && h.Queue != nil {
		status = models.DeliveryStatusQueued
	}
	inv := &models.Invoice{
		ID:             id,
		InvoiceNumber:  req.InvoiceNumber,
		ClientName:     req.ClientName,
		ClientEmail:    req.ClientEmail,
		Total:          req.Total(),
		Demo:           demo,
		DeliveryStatus: status,
		CreatedAt:      h.now().UTC(),
	}
	if err := h.Invoices.CreateInvoice(r.Context(), inv); err != nil {
		h.Logger.Error("store invoice metadata", "invoice_id", id, "error", err)
		http.Error(w, `{"error":"failed to store invoice"}`, http.StatusInternalServerError)
		return
	}

	if status == models.DeliveryStatusQueued {
		if err := h.Queue.Enqueue(r.Context(), id); err != nil {
			// The invoice exists and is downloadable; delivery just never
			// started. Record that rather than failing the request.
			h.Logger.Error("enqueue delivery", "invoice_id", id, "error", err)
			status = models.DeliveryStatusFailed
			if markErr := h.Invoices.SetDeliveryStatus(r.Context(), id, status, err.Error()); markErr != nil {
				h.Logger.Error("mark delivery failed", "invoice_id", id, "error", markErr)
			}
		}
	}

	writeJSON(w, http.StatusCreated, generateResponse{
		InvoiceID:      id,
		PDFURL:         "/invoice/" + id,
		DeliveryStatus: status,
	})
}

// Download handles GET /invoice/{id}, streaming the stored PDF as an
// attachment.
func (h *InvoiceHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	pdf, err := h.Artifacts.Load(id)
	if errors.Is(err, artifact.ErrNotFound) {
		http.Error(w, `{"error":"invoice not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("load artifact", "invoice_id", id, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".pdf"))
	_, _ = w.Write(pdf)
}

// Status handles GET /invoice/{id}/status: the invoice metadata, including
// how email delivery went.
func (h *InvoiceHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	inv, err := h.Invoices.GetInvoice(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"invoice not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("load invoice metadata", "invoice_id", id, "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
