package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-forge/internal/task"
)

type stubTask struct {
	id uuid.UUID
}

func (s stubTask) ID() uuid.UUID                 { return s.id }
func (s stubTask) Type() string                  { return "stub" }
func (s stubTask) Payload() []byte               { return []byte(`{"k":"v"}`) }
func (s stubTask) Status() task.TaskStatus       { return task.TaskStatusPending }
func (s stubTask) Execute(context.Context) error { return nil }

type decoderFunc func(id uuid.UUID, taskType string, payload []byte) (task.Task, error)

func (f decoderFunc) Decode(id uuid.UUID, taskType string, payload []byte) (task.Task, error) {
	return f(id, taskType, payload)
}

func TestPostgresTaskStore_SaveTask(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgresTaskStore(db, nil)
	tk := stubTask{id: uuid.New()}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).
		WithArgs(tk.id, "stub", []byte(`{"k":"v"}`), "pending", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SaveTask(context.Background(), tk))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tasks")).WillReturnError(errors.New("disk full"))
	assert.Error(t, s.SaveTask(context.Background(), tk))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTaskStore_UpdateTaskStatus(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s := NewPostgresTaskStore(db, nil)
	id := uuid.New()
	pattern := regexp.QuoteMeta("UPDATE tasks SET status = $1")

	mock.ExpectExec(pattern).
		WithArgs("failed", "boom", sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusFailed, "boom"))

	mock.ExpectExec(pattern).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(t, s.UpdateTaskStatus(context.Background(), uuid.New(), task.TaskStatusCompleted, ""),
		"unknown task is a no-op")

	mock.ExpectExec(pattern).WillReturnError(errors.New("timeout"))
	assert.Error(t, s.UpdateTaskStatus(context.Background(), id, task.TaskStatusCompleted, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTaskStore_GetTasks(t *testing.T) {
	t.Parallel()

	t.Run("pending tasks are decoded", func(t *testing.T) {
		t.Parallel()
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		good, bad := uuid.New(), uuid.New()
		decoder := decoderFunc(func(id uuid.UUID, taskType string, _ []byte) (task.Task, error) {
			if taskType != task.TaskTypeGeneration {
				return nil, task.ErrUnknownTaskType
			}
			return stubTask{id: id}, nil
		})
		s := NewPostgresTaskStore(db, decoder)

		mock.ExpectQuery(regexp.QuoteMeta("FROM tasks WHERE status = $1 ORDER BY")).
			WithArgs("pending").
			WillReturnRows(sqlmock.NewRows([]string{"id", "type", "payload", "status"}).
				AddRow(good.String(), task.TaskTypeGeneration, []byte(`{}`), "pending").
				AddRow(bad.String(), "memo_generation", []byte(`{}`), "pending"))

		tasks, err := s.GetPendingTasks(context.Background())
		require.NoError(t, err)
		require.Len(t, tasks, 2)

		assert.IsType(t, stubTask{}, tasks[0])
		assert.Equal(t, good, tasks[0].ID())

		assert.Equal(t, bad, tasks[1].ID())
		assert.ErrorIs(t, tasks[1].Execute(context.Background()), task.ErrUnknownTaskType,
			"undecodable rows fail on execution")
	})

	t.Run("processing tasks filtered by age", func(t *testing.T) {
		t.Parallel()
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		s := NewPostgresTaskStore(db, nil)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 AND updated_at < $2")).
			WithArgs("processing", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "type", "payload", "status"}))

		tasks, err := s.GetProcessingTasks(context.Background(), 30*time.Minute)
		require.NoError(t, err)
		assert.Empty(t, tasks)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure", func(t *testing.T) {
		t.Parallel()
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectQuery("FROM tasks").WillReturnError(errors.New("gone"))
		_, err = NewPostgresTaskStore(db, nil).GetPendingTasks(context.Background())
		assert.Error(t, err)
	})
}
