package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-forge/internal/domain"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"ErrNotFound", ErrNotFound, true},
		{"account", ErrAccountNotFound, true},
		{"wrapped generation", fmt.Errorf("load: %w", ErrGenerationNotFound), true},
		{"store error", NewStoreError("task", "get", "missing", ErrTaskNotFound), true},
		{"duplicate", ErrDuplicate, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsNotFoundError(tc.err))
		})
	}
}

func TestStoreErrorMessage(t *testing.T) {
	t.Parallel()

	err := NewStoreError("quota", "decrement", "query failed", errors.New("boom"))
	assert.Equal(t, "decrement operation on quota failed: query failed: boom", err.Error())

	bare := NewStoreError("quota", "increment", "no rows", nil)
	assert.Equal(t, "increment operation on quota failed: no rows", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestMemoryLedger(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewMemoryLedger()
	account := uuid.New()

	_, err := l.DecrementIfPositive(ctx, account)
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.ErrorIs(t, l.Increment(ctx, account), ErrAccountNotFound)

	l.SetBalance(account, 1)
	ok, err := l.DecrementIfPositive(ctx, account)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.DecrementIfPositive(ctx, account)
	require.NoError(t, err)
	assert.False(t, ok, "zero balance is never decremented")

	require.NoError(t, l.Increment(ctx, account))
	b, _ := l.Balance(account)
	assert.Equal(t, 1, b)
}

func TestMemoryResultStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemoryResultStore()

	_, err := s.Store(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidEntity)

	r := &domain.Result{Topic: "x"}
	id, err := s.Store(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, r.ID, id)

	_, err = s.Store(ctx, r)
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.Get(id)
	require.NoError(t, err)
	assert.Same(t, r, got)

	_, err = s.Get(uuid.New())
	assert.ErrorIs(t, err, ErrGenerationNotFound)
}

func TestRunInTransaction(t *testing.T) {
	t.Parallel()

	t.Run("commit", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectCommit()

		err = RunInTransaction(context.Background(), db, func(context.Context, *sql.Tx) error { return nil })
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectRollback()

		want := errors.New("function failed")
		err = RunInTransaction(context.Background(), db, func(context.Context, *sql.Tx) error { return want })
		assert.Equal(t, want, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback on panic", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.Panics(t, func() {
			_ = RunInTransaction(context.Background(), db, func(context.Context, *sql.Tx) error { panic("boom") })
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin().WillReturnError(errors.New("no connection"))

		err = RunInTransaction(context.Background(), db, func(context.Context, *sql.Tx) error { return nil })
		assert.ErrorIs(t, err, ErrTransactionFailed)
	})
}
