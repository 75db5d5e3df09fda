package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-forge/internal/domain"
)

// QuotaLedger tracks the prepaid generation balance of each account. Both
// operations must be atomic per account.
type QuotaLedger interface {
	// DecrementIfPositive takes one unit from the account and reports true,
	// or reports false without change when the balance is zero.
	DecrementIfPositive(ctx context.Context, accountID uuid.UUID) (bool, error)

	// Increment returns one unit to the account. It compensates a decrement
	// whose episode failed.
	Increment(ctx context.Context, accountID uuid.UUID) error
}

// ResultStore persists finished generation results.
type ResultStore interface {
	// Store saves result and returns its id.
	Store(ctx context.Context, result *domain.Result) (uuid.UUID, error)
}
