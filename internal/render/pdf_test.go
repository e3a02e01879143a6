package render

import (
	"bytes"
	"testing"

	"github.com/invoiceforge/backend/internal/models"
)

func sampleRequest() *models.InvoiceRequest {
	return &models.InvoiceRequest{
		InvoiceNumber: "2026-001",
		ClientName:    "ACME Corp",
		ClientEmail:   "billing@acme.test",
		DueDate:       "2026-09-30",
		Items: []models.InvoiceItem{
			{Description: "Design", Quantity: 1, UnitPrice: 100},
			{Description: "Hosting", Quantity: 1, UnitPrice: 50},
		},
	}
}

func TestPDF_ProducesDocument(t *testing.T) {
	pdf, err := PDF(sampleRequest(), false)
	if err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Error("output does not start with a PDF header")
	}
	if len(pdf) < 500 {
		t.Errorf("suspiciously small PDF: %d bytes", len(pdf))
	}
}

func TestPDF_WatermarkChangesOutput(t *testing.T) {
	plain, err := PDF(sampleRequest(), false)
	if err != nil {
		t.Fatalf("PDF: %v", err)
	}
	demo, err := PDF(sampleRequest(), true)
	if err != nil {
		t.Fatalf("PDF demo: %v", err)
	}
	if !bytes.HasPrefix(demo, []byte("%PDF-")) {
		t.Error("demo output does not start with a PDF header")
	}
	// The stamp draws extra content; identical payloads must still yield
	// distinguishable artifacts.
	if len(demo) <= len(plain) {
		t.Errorf("expected watermarked PDF to carry extra content: demo=%d plain=%d", len(demo), len(plain))
	}
}

func TestNum_PrintsLikeJSON(t *testing.T) {
	cases := map[float64]string{
		100:  "100",
		99.5: "99.5",
		0:    "0",
		2.25: "2.25",
	}
	for in, want := range cases {
		if got := num(in); got != want {
			t.Errorf("num(%v): expected %q, got %q", in, want, got)
		}
	}
}
