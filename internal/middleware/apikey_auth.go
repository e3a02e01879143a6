package middleware

import (
	"context"
	"net/http"

	"github.com/invoiceforge/backend/internal/keys"
)

type contextKey string

const ctxKeyHash contextKey = "key_hash"

// KeyValidator is the interface API key auth needs from the keys service.
type KeyValidator interface {
	Validate(ctx context.Context, raw string) (bool, error)
}

// APIKeyAuth authenticates requests by the x-api-key header. A missing or
// unknown key is 401, a store failure is 500. On success the key hash is
// placed in the request context for the quota check downstream.
func APIKeyAuth(validator KeyValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("x-api-key")
			if raw == "" {
				http.Error(w, `{"error":"unauthorized: missing API key"}`, http.StatusUnauthorized)
				return
			}
			ok, err := validator.Validate(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}
			if !ok {
				http.Error(w, `{"error":"unauthorized: invalid API key"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyHash, keys.HashKey(raw))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// KeyHashFromCtx returns the authenticated key's hash, or "" outside the
// auth middleware.
func KeyHashFromCtx(ctx context.Context) string {
	h, _ := ctx.Value(ctxKeyHash).(string)
	return h
}

// WithKeyHash returns a context carrying the given key hash.
func WithKeyHash(ctx context.Context, hash string) context.Context {
	return context.WithValue(ctx, ctxKeyHash, hash)
}
