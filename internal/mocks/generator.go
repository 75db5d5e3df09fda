package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/generation"
)

// MockBatchGenerator implements service.BatchGenerator.
type MockBatchGenerator struct {
	// GenerateBatchFn overrides the default behaviour when set.
	GenerateBatchFn func(ctx context.Context, spec generation.BatchSpec) ([]domain.Task, error)

	// Default response values
	Tasks []domain.Task
	Err   error

	mu    sync.Mutex
	specs []generation.BatchSpec
}

// GenerateBatch records spec and returns the configured reply.
func (m *MockBatchGenerator) GenerateBatch(ctx context.Context, spec generation.BatchSpec) ([]domain.Task, error) {
	m.mu.Lock()
	m.specs = append(m.specs, spec)
	m.mu.Unlock()

	if m.GenerateBatchFn != nil {
		return m.GenerateBatchFn(ctx, spec)
	}
	return m.Tasks, m.Err
}

// Calls returns the batch requested by every call so far.
func (m *MockBatchGenerator) Calls() []generation.BatchSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]generation.BatchSpec, len(m.specs))
	copy(out, m.specs)
	return out
}

// CallCount returns the number of GenerateBatch calls.
func (m *MockBatchGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.specs)
}

// SequenceGenerator returns a GenerateBatchFn that answers call n with
// replies[n]. Calls past the end fail with generation.ErrProviderFailure.
func SequenceGenerator(replies ...Reply) func(context.Context, generation.BatchSpec) ([]domain.Task, error) {
	var mu sync.Mutex
	next := 0
	return func(context.Context, generation.BatchSpec) ([]domain.Task, error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(replies) {
			return nil, generation.ErrProviderFailure
		}
		r := replies[next]
		next++
		return r.Tasks, r.Err
	}
}

// Reply is one canned answer of SequenceGenerator.
type Reply struct {
	Tasks []domain.Task
	Err   error
}
