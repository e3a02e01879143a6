package handlers

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
)

// CheckoutCreator opens a payment session and returns the hosted URL.
type CheckoutCreator interface {
	CreateSession(ctx context.Context) (string, error)
}

// KeyIssuer mints a new API key after a completed payment.
type KeyIssuer interface {
	Issue(ctx context.Context) (string, error)
}

// CheckoutHandler serves the payment flow: session creation plus the
// success and cancel redirect targets.
type CheckoutHandler struct {
	Checkout CheckoutCreator
	Keys     KeyIssuer
	Logger   *slog.Logger
}

// successPage mirrors the page the buyer lands on after paying: the raw key
// is shown exactly once, with the header they need to call the API.
var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<body>
Payment successful!<br><br>
Your API key is:<br><br>
<b>{{.Key}}</b><br><br>
Save this key! You'll need it to call <code>/generate-invoice</code>.<br>
Include it in your header like this:<br>
<code>x-api-key: {{.Key}}</code>
</body>
</html>
`))

// CreateSession handles POST /create-checkout-session.
func (h *CheckoutHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	url, err := h.Checkout.CreateSession(r.Context())
	if err != nil {
		// Surface the upstream message; the caller needs to know why the
		// provider refused.
		h.Logger.Error("create checkout session", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"checkout_url": url})
}

// Success handles GET /success, the payment provider's redirect target. The
// key is durably recorded before the page showing it is rendered.
func (h *CheckoutHandler) Success(w http.ResponseWriter, r *http.Request) {
	raw, err := h.Keys.Issue(r.Context())
	if err != nil {
		h.Logger.Error("issue key", "error", err)
		http.Error(w, `{"error":"failed to issue API key"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = successPage.Execute(w, struct{ Key string }{Key: raw})
}

// Cancel handles GET /cancel.
func (h *CheckoutHandler) Cancel(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Payment was cancelled."))
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("API is running!"))
}
