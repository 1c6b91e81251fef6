package memory

import (
	"context"
	"sync"

	"settlement-core/internal/core/domain"
)

// AuditStore implements ports.AuditRepository in memory.
type AuditStore struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

// NewAuditStore creates an empty audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Create appends entry.
func (s *AuditStore) Create(_ context.Context, entry *domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

// Entries returns a snapshot of everything recorded so far.
func (s *AuditStore) Entries() []domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditLog(nil), s.entries...)
}
