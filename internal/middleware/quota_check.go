package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/invoiceforge/backend/internal/store"
)

// BurstLimiter is the in-memory per-key guard checked ahead of the durable
// daily quota.
type BurstLimiter interface {
	Allow(key string) bool
}

// QuotaCheck enforces the per-key daily quota. The day boundary is a
// calendar date in loc, formatted once per request from now().
//
// The increment is recorded before the limit comparison, so the call that
// tips over the quota still counts, and every later call that day both
// counts and is rejected.
func QuotaCheck(usage store.UsageStore, limit int, loc *time.Location, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keyHash := KeyHashFromCtx(r.Context())
			if keyHash == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			day := now().In(loc).Format("2006-01-02")
			count, err := usage.IncrementUsage(r.Context(), keyHash, day)
			if err != nil {
				http.Error(w, `{"error":"failed to record usage"}`, http.StatusInternalServerError)
				return
			}
			if count > limit {
				http.Error(w, fmt.Sprintf(`{"error":"daily quota of %d invoices exceeded"}`, limit), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BurstCheck rejects requests that exceed the per-key request rate. Unlike
// the daily quota it leaves no durable trace.
func BurstCheck(limiter BurstLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			keyHash := KeyHashFromCtx(r.Context())
			if keyHash == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if !limiter.Allow(keyHash) {
				http.Error(w, `{"error":"too many requests, slow down"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
