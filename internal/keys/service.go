package keys

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/invoiceforge/backend/internal/models"
	"github.com/invoiceforge/backend/internal/store"
)

// rawKeyBytes gives 128 bits of entropy per issued key.
const rawKeyBytes = 16

// Service manages the lifetime of API keys: issue after payment, validate
// on every gated request. Keys are append-only; there is no revocation.
type Service struct {
	store store.KeyStore
	now   func() time.Time
}

func NewService(s store.KeyStore) *Service {
	return &Service{store: s, now: time.Now}
}

// Issue generates a new unguessable key, durably records its hash, and only
// then returns the raw token. A key that was not persisted is never handed
// out.
func (s *Service) Issue(ctx context.Context) (string, error) {
	buf := make([]byte, rawKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	raw := "ifk_" + hex.EncodeToString(buf)

	k := &models.APIKey{
		KeyHash:   HashKey(raw),
		KeyPrefix: raw[:models.KeyPrefixLen],
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateKey(ctx, k); err != nil {
		return "", fmt.Errorf("persist key: %w", err)
	}
	return raw, nil
}

// Validate reports whether raw is an issued key. It hits the authoritative
// store on every call; a store read failure is returned as an error, never
// as false.
func (s *Service) Validate(ctx context.Context, raw string) (bool, error) {
	ok, err := s.store.KeyExists(ctx, HashKey(raw))
	if err != nil {
		return false, fmt.Errorf("read key set: %w", err)
	}
	return ok, nil
}

// HashKey maps a raw token to its stored form. Keys carry full random
// entropy, so an unsalted SHA-256 is enough to keep the store value
// unusable on its own.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
