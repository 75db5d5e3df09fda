//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-forge/internal/platform/logger"
	"github.com/phrazzld/scry-forge/internal/store"
)

// openIntegrationDB connects to FORGE_TEST_DATABASE_URL and applies the
// embedded migrations.
func openIntegrationDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("FORGE_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FORGE_TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, Migrate(ctx, db, logger.NewTestLogger(t)))
	// applying twice is a no-op
	require.NoError(t, Migrate(ctx, db, logger.NewTestLogger(t)))
	return db
}

func TestIntegration_QuotaLedger(t *testing.T) {
	db := openIntegrationDB(t)
	ctx := context.Background()
	ledger := NewPostgresQuotaLedger(db)
	account := uuid.New()

	_, err := ledger.DecrementIfPositive(ctx, account)
	assert.ErrorIs(t, err, store.ErrAccountNotFound)

	require.NoError(t, ledger.SetBalance(ctx, account, 1))

	ok, err := ledger.DecrementIfPositive(ctx, account)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.DecrementIfPositive(ctx, account)
	require.NoError(t, err)
	assert.False(t, ok, "balance never goes below zero")

	require.NoError(t, ledger.Increment(ctx, account))
	balance, err := ledger.Balance(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, 1, balance)
}

func TestIntegration_LedgerRollsBackWithTransaction(t *testing.T) {
	db := openIntegrationDB(t)
	ctx := context.Background()
	account := uuid.New()
	require.NoError(t, NewPostgresQuotaLedger(db).SetBalance(ctx, account, 3))

	err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		ok, err := NewPostgresQuotaLedger(db).WithTx(tx).DecrementIfPositive(ctx, account)
		require.NoError(t, err)
		require.True(t, ok)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	balance, err := NewPostgresQuotaLedger(db).Balance(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, 3, balance)
}
