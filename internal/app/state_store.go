package app

import (
	"context"
	"sync"

	"github.com/pscheid92/impact-snapshot/internal/domain"
)

// MemoryStateStore keeps the status in process memory. It starts healthy.
type MemoryStateStore struct {
	mu     sync.RWMutex
	status domain.Status
}

var _ domain.StateStore = (*MemoryStateStore)(nil)

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{status: domain.StatusHealthy}
}

func (s *MemoryStateStore) Status(context.Context) (domain.Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, nil
}

func (s *MemoryStateStore) SetStatus(_ context.Context, status domain.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	return nil
}
