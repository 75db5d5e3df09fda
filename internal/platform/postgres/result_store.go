package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/platform/logger"
	"github.com/phrazzld/scry-forge/internal/store"
)

// PostgresResultStore implements store.ResultStore. A result and its tasks
// are written in one transaction.
type PostgresResultStore struct {
	db *sql.DB
}

var _ store.ResultStore = (*PostgresResultStore)(nil)

// NewPostgresResultStore creates a result store backed by db.
func NewPostgresResultStore(db *sql.DB) *PostgresResultStore {
	return &PostgresResultStore{db: db}
}

const (
	insertGenerationQuery = `
		INSERT INTO generations (id, request_id, account_id, subject, difficulty, topic, telemetry, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	insertGenerationTaskQuery = `
		INSERT INTO generation_tasks (generation_id, position, task_type, payload)
		VALUES ($1, $2, $3, $4)
	`
)

// Store implements store.ResultStore. A result without an id is assigned one.
func (s *PostgresResultStore) Store(ctx context.Context, result *domain.Result) (uuid.UUID, error) {
	if result == nil {
		return uuid.Nil, store.NewStoreError("generation", "store", "result is nil", store.ErrInvalidEntity)
	}
	if result.ID == uuid.Nil {
		result.ID = uuid.New()
	}

	telemetry, err := json.Marshal(result.Telemetry)
	if err != nil {
		return uuid.Nil, store.NewStoreError("generation", "store", "encode telemetry", err)
	}
	payloads := make([][]byte, len(result.Tasks))
	for i, t := range result.Tasks {
		if payloads[i], err = domain.MarshalTask(t); err != nil {
			return uuid.Nil, store.NewStoreError("generation", "store", fmt.Sprintf("encode task %d", i), err)
		}
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, insertGenerationQuery,
			result.ID,
			result.RequestID,
			result.AccountID,
			result.Subject,
			result.Difficulty,
			result.Topic,
			telemetry,
			result.CreatedAt,
		); err != nil {
			return MapError(err)
		}
		for i, t := range result.Tasks {
			if _, err := tx.ExecContext(ctx, insertGenerationTaskQuery,
				result.ID, i, t.Type(), payloads[i],
			); err != nil {
				return MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "failed to store generation",
			"generation_id", result.ID,
			"request_id", result.RequestID,
			"error", err)
		return uuid.Nil, store.NewStoreError("generation", "store", "transaction failed", err)
	}
	return result.ID, nil
}
