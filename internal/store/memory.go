package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-forge/internal/domain"
)

// MemoryLedger is a process-local QuotaLedger.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int
}

var _ QuotaLedger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[uuid.UUID]int)}
}

// SetBalance overwrites the balance of an account.
func (l *MemoryLedger) SetBalance(accountID uuid.UUID, balance int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[accountID] = balance
}

// Balance returns the current balance and whether the account is known.
func (l *MemoryLedger) Balance(accountID uuid.UUID) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[accountID]
	return b, ok
}

// DecrementIfPositive implements QuotaLedger.
func (l *MemoryLedger) DecrementIfPositive(_ context.Context, accountID uuid.UUID) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.balances[accountID]
	if !ok {
		return false, ErrAccountNotFound
	}
	if b <= 0 {
		return false, nil
	}
	l.balances[accountID] = b - 1
	return true, nil
}

// Increment implements QuotaLedger.
func (l *MemoryLedger) Increment(_ context.Context, accountID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.balances[accountID]; !ok {
		return ErrAccountNotFound
	}
	l.balances[accountID]++
	return nil
}

// MemoryResultStore keeps results in a map.
type MemoryResultStore struct {
	mu      sync.Mutex
	results map[uuid.UUID]*domain.Result
}

var _ ResultStore = (*MemoryResultStore)(nil)

// NewMemoryResultStore creates an empty store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{results: make(map[uuid.UUID]*domain.Result)}
}

// Store implements ResultStore. A result without an id is assigned one.
func (s *MemoryResultStore) Store(_ context.Context, result *domain.Result) (uuid.UUID, error) {
	if result == nil {
		return uuid.Nil, NewStoreError("generation", "store", "result is nil", ErrInvalidEntity)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}
	if _, exists := s.results[result.ID]; exists {
		return uuid.Nil, NewStoreError("generation", "store", "id already stored", ErrDuplicate)
	}
	s.results[result.ID] = result
	return result.ID, nil
}

// Get returns a stored result.
func (s *MemoryResultStore) Get(id uuid.UUID) (*domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok {
		return nil, ErrGenerationNotFound
	}
	return r, nil
}
