package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-forge/internal/platform/logger"
	"github.com/phrazzld/scry-forge/internal/store"
	"github.com/phrazzld/scry-forge/internal/task"
)

// PostgresTaskStore implements the task.TaskStore interface using PostgreSQL
type PostgresTaskStore struct {
	db      store.DBTX
	decoder task.Decoder
}

var _ task.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a task store. The decoder rebuilds executable
// tasks from recovered rows; rows it cannot decode come back as tasks that
// fail on execution.
func NewPostgresTaskStore(db store.DBTX, decoder task.Decoder) *PostgresTaskStore {
	return &PostgresTaskStore{db: db, decoder: decoder}
}

// WithTx returns a store that runs its statements in tx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) task.TaskStore {
	return &PostgresTaskStore{db: tx, decoder: s.decoder}
}

// SaveTask persists a task to the database
func (s *PostgresTaskStore) SaveTask(ctx context.Context, t task.Task) error {
	query := `
		INSERT INTO tasks (id, type, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, query,
		t.ID(),
		t.Type(),
		t.Payload(),
		t.Status(),
		now,
		now,
	)
	if err != nil {
		logger.FromContext(ctx).ErrorContext(ctx, "failed to save task",
			"task_id", t.ID(),
			"task_type", t.Type(),
			"error", err)
		return store.NewStoreError("task", "save", "insert failed", MapError(err))
	}
	return nil
}

// UpdateTaskStatus updates the status of a task. Updating an unknown task is
// a logged no-op.
func (s *PostgresTaskStore) UpdateTaskStatus(
	ctx context.Context,
	taskID uuid.UUID,
	status task.TaskStatus,
	errorMsg string,
) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query, status, errorMsg, time.Now().UTC(), taskID)
	if err != nil {
		log.ErrorContext(ctx, "failed to update task status",
			"task_id", taskID,
			"status", status,
			"error", err)
		return store.NewStoreError("task", "update_status", "update failed", MapError(err))
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			log.WarnContext(ctx, "no task found with ID to update status", "task_id", taskID)
			return nil
		}
		return err
	}
	return nil
}

// GetPendingTasks retrieves all tasks with "pending" status
func (s *PostgresTaskStore) GetPendingTasks(ctx context.Context) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusPending, 0)
}

// GetProcessingTasks retrieves tasks with "processing" status
func (s *PostgresTaskStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]task.Task, error) {
	return s.getTasksByStatus(ctx, task.TaskStatusProcessing, olderThan)
}

func (s *PostgresTaskStore) getTasksByStatus(
	ctx context.Context,
	status task.TaskStatus,
	olderThan time.Duration,
) ([]task.Task, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, type, payload, status
		FROM tasks
		WHERE status = $1
		ORDER BY created_at ASC
	`
	args := []interface{}{status}
	if olderThan > 0 {
		query = `
			SELECT id, type, payload, status
			FROM tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.ErrorContext(ctx, "failed to query tasks by status", "status", status, "error", err)
		return nil, store.NewStoreError("task", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var tasks []task.Task
	for rows.Next() {
		var row databaseTask
		if err := rows.Scan(&row.id, &row.taskType, &row.payload, &row.status); err != nil {
			return nil, store.NewStoreError("task", "list", "scan failed", err)
		}
		tasks = append(tasks, s.rehydrate(ctx, &row))
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "row iteration failed", err)
	}
	return tasks, nil
}

func (s *PostgresTaskStore) rehydrate(ctx context.Context, row *databaseTask) task.Task {
	if s.decoder == nil {
		return row
	}
	t, err := s.decoder.Decode(row.id, row.taskType, row.payload)
	if err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "failed to decode stored task",
			"task_id", row.id,
			"task_type", row.taskType,
			"error", err)
		row.decodeErr = err
		return row
	}
	return t
}

// databaseTask is a stored task that could not be turned back into an
// executable one. Executing it fails with the reason.
type databaseTask struct {
	id        uuid.UUID
	taskType  string
	payload   []byte
	status    task.TaskStatus
	decodeErr error
}

func (t *databaseTask) ID() uuid.UUID           { return t.id }
func (t *databaseTask) Type() string            { return t.taskType }
func (t *databaseTask) Payload() []byte         { return t.payload }
func (t *databaseTask) Status() task.TaskStatus { return t.status }

func (t *databaseTask) Execute(context.Context) error {
	if t.decodeErr != nil {
		return fmt.Errorf("stored task cannot be executed: %w", t.decodeErr)
	}
	return fmt.Errorf("%w: no decoder for %q", task.ErrUnknownTaskType, t.taskType)
}
