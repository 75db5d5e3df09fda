package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-forge/internal/platform/logger"
	"github.com/phrazzld/scry-forge/internal/store"
)

// PostgresQuotaLedger implements store.QuotaLedger over the quota_balances table.
// Each operation is a single conditional UPDATE, so concurrent episodes for one
// account never drive the balance below zero.
type PostgresQuotaLedger struct {
	db store.DBTX
}

var _ store.QuotaLedger = (*PostgresQuotaLedger)(nil)

// NewPostgresQuotaLedger creates a ledger backed by db.
func NewPostgresQuotaLedger(db store.DBTX) *PostgresQuotaLedger {
	return &PostgresQuotaLedger{db: db}
}

const (
	decrementQuery = `
		UPDATE quota_balances
		SET balance = balance - 1, updated_at = NOW()
		WHERE account_id = $1 AND balance > 0
		RETURNING balance
	`
	incrementQuery = `
		UPDATE quota_balances
		SET balance = balance + 1, updated_at = NOW()
		WHERE account_id = $1
	`
	accountExistsQuery = `SELECT EXISTS (SELECT 1 FROM quota_balances WHERE account_id = $1)`
	balanceQuery       = `SELECT balance FROM quota_balances WHERE account_id = $1`
	upsertBalanceQuery = `
		INSERT INTO quota_balances (account_id, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()
	`
)

// DecrementIfPositive implements store.QuotaLedger.
func (l *PostgresQuotaLedger) DecrementIfPositive(ctx context.Context, accountID uuid.UUID) (bool, error) {
	log := logger.FromContext(ctx)

	var remaining int
	err := l.db.QueryRowContext(ctx, decrementQuery, accountID).Scan(&remaining)
	if err == nil {
		log.DebugContext(ctx, "quota decremented", "account_id", accountID, "remaining", remaining)
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.ErrorContext(ctx, "failed to decrement quota", "account_id", accountID, "error", err)
		return false, store.NewStoreError("quota", "decrement", "update failed", MapError(err))
	}

	// No row changed: either the balance is zero or the account is unknown.
	var exists bool
	if err := l.db.QueryRowContext(ctx, accountExistsQuery, accountID).Scan(&exists); err != nil {
		return false, store.NewStoreError("quota", "decrement", "existence check failed", MapError(err))
	}
	if !exists {
		return false, store.ErrAccountNotFound
	}
	return false, nil
}

// Increment implements store.QuotaLedger.
func (l *PostgresQuotaLedger) Increment(ctx context.Context, accountID uuid.UUID) error {
	result, err := l.db.ExecContext(ctx, incrementQuery, accountID)
	if err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "failed to increment quota",
			"account_id", accountID, "error", err)
		return store.NewStoreError("quota", "increment", "update failed", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrAccountNotFound)
}

// SetBalance creates or overwrites the balance of an account.
func (l *PostgresQuotaLedger) SetBalance(ctx context.Context, accountID uuid.UUID, balance int) error {
	if balance < 0 {
		return store.NewStoreError("quota", "set", "balance must not be negative", store.ErrInvalidEntity)
	}
	if _, err := l.db.ExecContext(ctx, upsertBalanceQuery, accountID, balance); err != nil {
		return store.NewStoreError("quota", "set", "upsert failed", MapError(err))
	}
	return nil
}

// Balance returns the current balance of an account.
func (l *PostgresQuotaLedger) Balance(ctx context.Context, accountID uuid.UUID) (int, error) {
	var balance int
	err := l.db.QueryRowContext(ctx, balanceQuery, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrAccountNotFound
	}
	if err != nil {
		return 0, store.NewStoreError("quota", "get", "select failed", MapError(err))
	}
	return balance, nil
}

// WithTx returns a ledger that runs its statements in tx.
func (l *PostgresQuotaLedger) WithTx(tx *sql.Tx) *PostgresQuotaLedger {
	return &PostgresQuotaLedger{db: tx}
}
