package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-forge/internal/store"
)

var (
	decrementPattern = regexp.QuoteMeta("UPDATE quota_balances SET balance = balance - 1")
	incrementPattern = regexp.QuoteMeta("UPDATE quota_balances SET balance = balance + 1")
	existsPattern    = regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM quota_balances")
	upsertPattern    = regexp.QuoteMeta("INSERT INTO quota_balances")
	balancePattern   = regexp.QuoteMeta("SELECT balance FROM quota_balances")
)

func newLedger(t *testing.T) (*PostgresQuotaLedger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewPostgresQuotaLedger(db), mock
}

func TestPostgresQuotaLedger_DecrementIfPositive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("positive balance", func(t *testing.T) {
		t.Parallel()
		ledger, mock := newLedger(t)
		account := uuid.New()
		mock.ExpectQuery(decrementPattern).
			WithArgs(account).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(4))

		ok, err := ledger.DecrementIfPositive(ctx, account)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("zero balance", func(t *testing.T) {
		t.Parallel()
		ledger, mock := newLedger(t)
		account := uuid.New()
		mock.ExpectQuery(decrementPattern).
			WithArgs(account).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery(existsPattern).
			WithArgs(account).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		ok, err := ledger.DecrementIfPositive(ctx, account)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown account", func(t *testing.T) {
		t.Parallel()
		ledger, mock := newLedger(t)
		account := uuid.New()
		mock.ExpectQuery(decrementPattern).
			WithArgs(account).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectQuery(existsPattern).
			WithArgs(account).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		ok, err := ledger.DecrementIfPositive(ctx, account)
		assert.ErrorIs(t, err, store.ErrAccountNotFound)
		assert.False(t, ok)
	})

	t.Run("database error", func(t *testing.T) {
		t.Parallel()
		ledger, mock := newLedger(t)
		mock.ExpectQuery(decrementPattern).WillReturnError(errors.New("connection refused"))

		ok, err := ledger.DecrementIfPositive(ctx, uuid.New())
		require.Error(t, err)
		assert.False(t, ok)

		var storeErr *store.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "quota", storeErr.Entity)
		assert.Equal(t, "decrement", storeErr.Operation)
	})
}

func TestPostgresQuotaLedger_Increment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("known account", func(t *testing.T) {
		t.Parallel()
		ledger, mock := newLedger(t)
		account := uuid.New()
		mock.ExpectExec(incrementPattern).WithArgs(account).WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, ledger.Increment(ctx, account))
	})

	t.Run("unknown account", func(t *testing.T) {
		t.Parallel()
		ledger, mock := newLedger(t)
		mock.ExpectExec(incrementPattern).WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, ledger.Increment(ctx, uuid.New()), store.ErrAccountNotFound)
	})
}

func TestPostgresQuotaLedger_SetBalance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ledger, mock := newLedger(t)
	account := uuid.New()
	mock.ExpectExec(upsertPattern).WithArgs(account, 10).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, ledger.SetBalance(ctx, account, 10))

	assert.ErrorIs(t, ledger.SetBalance(ctx, account, -1), store.ErrInvalidEntity)
}

func TestPostgresQuotaLedger_Balance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("known account", func(t *testing.T) {
		t.Parallel()
		ledger, mock := newLedger(t)
		account := uuid.New()
		mock.ExpectQuery(balancePattern).WithArgs(account).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(7))

		balance, err := ledger.Balance(ctx, account)
		require.NoError(t, err)
		assert.Equal(t, 7, balance)
	})

	t.Run("unknown account", func(t *testing.T) {
		t.Parallel()
		ledger, mock := newLedger(t)
		mock.ExpectQuery(balancePattern).WillReturnRows(sqlmock.NewRows([]string{"balance"}))

		_, err := ledger.Balance(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrAccountNotFound)
	})
}
