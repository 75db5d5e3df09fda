package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-forge/internal/domain"
)

// MockResultStore implements store.ResultStore.
type MockResultStore struct {
	StoreFn func(ctx context.Context, result *domain.Result) (uuid.UUID, error)

	mu     sync.Mutex
	stored []*domain.Result
}

// Store records result and returns a fresh id unless StoreFn is set.
func (m *MockResultStore) Store(ctx context.Context, result *domain.Result) (uuid.UUID, error) {
	if m.StoreFn != nil {
		return m.StoreFn(ctx, result)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = append(m.stored, result)
	return uuid.New(), nil
}

// Stored returns every result stored so far.
func (m *MockResultStore) Stored() []*domain.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Result, len(m.stored))
	copy(out, m.stored)
	return out
}
