package main

import (
	"net/http"

	"github.com/invoiceforge/backend/internal/handlers"
)

// RegisterRoutes adds all endpoints to the given mux.
// Gate chain on /generate-invoice: APIKeyAuth -> BurstCheck -> QuotaCheck ->
// handler. The demo endpoint gets neither key auth nor quota.
func RegisterRoutes(
	mux *http.ServeMux,
	ih *handlers.InvoiceHandler,
	ch *handlers.CheckoutHandler,
	auth, burst, quota func(http.Handler) http.Handler,
) {
	mux.HandleFunc("GET /health", handlers.Health)

	mux.HandleFunc("POST /create-checkout-session", ch.CreateSession)
	mux.HandleFunc("GET /success", ch.Success)
	mux.HandleFunc("GET /cancel", ch.Cancel)

	mux.Handle("POST /generate-invoice", auth(burst(quota(http.HandlerFunc(ih.Generate)))))
	mux.HandleFunc("POST /demo-invoice", ih.GenerateDemo)

	mux.HandleFunc("GET /invoice/{id}", ih.Download)
	mux.HandleFunc("GET /invoice/{id}/status", ih.Status)
}
