package models

import (
	"time"
)

// KeyPrefixLen is how much of the raw key is kept in clear for display.
const KeyPrefixLen = 12

// APIKey is an issued invoice-generation key. Only the SHA-256 hash of the
// raw token is stored; the raw value is shown to the buyer exactly once.
// The key set is append-only: keys are never mutated and never revoked.
type APIKey struct {
	KeyHash   string    `json:"-"`
	KeyPrefix string    `json:"key_prefix"`
	CreatedAt time.Time `json:"created_at"`
}
