package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-forge/internal/store"
)

// MockQuotaLedger implements store.QuotaLedger over an in-memory balance map.
type MockQuotaLedger struct {
	DecrementIfPositiveFn func(ctx context.Context, accountID uuid.UUID) (bool, error)
	IncrementFn           func(ctx context.Context, accountID uuid.UUID) error

	mu         sync.Mutex
	balances   map[uuid.UUID]int
	decrements int
	increments int
}

// NewMockQuotaLedger creates a ledger with the given balances.
func NewMockQuotaLedger(balances map[uuid.UUID]int) *MockQuotaLedger {
	b := make(map[uuid.UUID]int, len(balances))
	for k, v := range balances {
		b[k] = v
	}
	return &MockQuotaLedger{balances: b}
}

// DecrementIfPositive takes one unit when the balance is positive.
func (m *MockQuotaLedger) DecrementIfPositive(ctx context.Context, accountID uuid.UUID) (bool, error) {
	m.mu.Lock()
	m.decrements++
	m.mu.Unlock()

	if m.DecrementIfPositiveFn != nil {
		return m.DecrementIfPositiveFn(ctx, accountID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	bal, ok := m.balances[accountID]
	if !ok {
		return false, store.ErrAccountNotFound
	}
	if bal <= 0 {
		return false, nil
	}
	m.balances[accountID] = bal - 1
	return true, nil
}

// Increment returns one unit.
func (m *MockQuotaLedger) Increment(ctx context.Context, accountID uuid.UUID) error {
	m.mu.Lock()
	m.increments++
	m.mu.Unlock()

	if m.IncrementFn != nil {
		return m.IncrementFn(ctx, accountID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.balances[accountID]; !ok {
		return store.ErrAccountNotFound
	}
	m.balances[accountID]++
	return nil
}

// Balance returns the current balance of accountID.
func (m *MockQuotaLedger) Balance(accountID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[accountID]
}

// Decrements returns the number of DecrementIfPositive calls.
func (m *MockQuotaLedger) Decrements() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decrements
}

// Increments returns the number of Increment calls.
func (m *MockQuotaLedger) Increments() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.increments
}
