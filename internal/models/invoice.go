package models

import (
	"time"
)

// Invoice id prefixes. Authenticated and demo invoices live in disjoint id
// namespaces so the two can never collide.
const (
	InvoiceIDPrefix     = "inv_"
	DemoInvoiceIDPrefix = "demo_"
)

// Email delivery states for a generated invoice.
const (
	DeliveryStatusNone   = "none" // demo invoices: nothing to deliver
	DeliveryStatusQueued = "queued"
	DeliveryStatusSent   = "sent"
	DeliveryStatusFailed = "failed"
)

// InvoiceItem is one billed line. Quantity and unit price arrive as JSON
// numbers and are kept as floats; the rendered total is their dot product.
type InvoiceItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// InvoiceRequest is the payload accepted by the generate endpoints.
type InvoiceRequest struct {
	InvoiceNumber string        `json:"invoice_number"`
	ClientName    string        `json:"client_name"`
	ClientEmail   string        `json:"client_email"`
	DueDate       string        `json:"due_date"`
	Items         []InvoiceItem `json:"items"`
}

// Total sums quantity x unit_price over all items. No tax or discount logic.
func (r *InvoiceRequest) Total() float64 {
	var total float64
	for _, it := range r.Items {
		total += it.Quantity * it.UnitPrice
	}
	return total
}

// Invoice is the stored metadata row for a rendered artifact. The PDF bytes
// themselves live in the artifact store under ID.
type Invoice struct {
	ID             string    `json:"id"`
	InvoiceNumber  string    `json:"invoice_number"`
	ClientName     string    `json:"client_name"`
	ClientEmail    string    `json:"client_email"`
	Total          float64   `json:"total"`
	Demo           bool      `json:"demo"`
	DeliveryStatus string    `json:"delivery_status"`
	DeliveryError  string    `json:"delivery_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
