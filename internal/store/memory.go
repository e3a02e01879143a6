package store

import (
	"context"
	"sync"

	"github.com/invoiceforge/backend/internal/models"
)

// MemoryStore is the in-process implementation: plain maps behind one lock.
// Used by tests and as the reference for the durable stores' semantics.
type MemoryStore struct {
	mu       sync.Mutex
	keys     map[string]models.APIKey
	usage    map[string]models.UsageRecord
	invoices map[string]models.Invoice
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys:     make(map[string]models.APIKey),
		usage:    make(map[string]models.UsageRecord),
		invoices: make(map[string]models.Invoice),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) CreateKey(_ context.Context, k *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[k.KeyHash] = *k
	return nil
}

func (s *MemoryStore) KeyExists(_ context.Context, keyHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[keyHash]
	return ok, nil
}

func (s *MemoryStore) IncrementUsage(_ context.Context, keyHash, day string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.usage[keyHash]
	if !ok || rec.Day != day {
		rec = models.UsageRecord{KeyHash: keyHash, Day: day, Count: 0}
	}
	rec.Count++
	s.usage[keyHash] = rec
	return rec.Count, nil
}

func (s *MemoryStore) GetUsage(_ context.Context, keyHash string) (*models.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.usage[keyHash]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec
	return &out, nil
}

func (s *MemoryStore) CreateInvoice(_ context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = *inv
	return nil
}

func (s *MemoryStore) GetInvoice(_ context.Context, id string) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := inv
	return &out, nil
}

func (s *MemoryStore) SetDeliveryStatus(_ context.Context, id, status, deliveryErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.DeliveryStatus = status
	inv.DeliveryError = deliveryErr
	s.invoices[id] = inv
	return nil
}

func (s *MemoryStore) Close() error { return nil }
