package task

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
)

type fakeTask struct {
	id        uuid.UUID
	executeFn func(ctx context.Context) error
}

func newFakeTask(executeFn func(ctx context.Context) error) *fakeTask {
	if executeFn == nil {
		executeFn = func(context.Context) error { return nil }
	}
	return &fakeTask{id: uuid.New(), executeFn: executeFn}
}

func (t *fakeTask) ID() uuid.UUID                     { return t.id }
func (t *fakeTask) Type() string                      { return "fake" }
func (t *fakeTask) Payload() []byte                   { return []byte(`{}`) }
func (t *fakeTask) Status() TaskStatus                { return TaskStatusPending }
func (t *fakeTask) Execute(ctx context.Context) error { return t.executeFn(ctx) }

type storedTask struct {
	task      Task
	status    TaskStatus
	errorMsg  string
	updatedAt time.Time
}

// memoryTaskStore is a TaskStore kept in a map.
type memoryTaskStore struct {
	mu     sync.Mutex
	tasks  map[uuid.UUID]*storedTask
	saveFn func(ctx context.Context, task Task) error
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{tasks: make(map[uuid.UUID]*storedTask)}
}

func (s *memoryTaskStore) SaveTask(ctx context.Context, task Task) error {
	if s.saveFn != nil {
		if err := s.saveFn(ctx, task); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID()] = &storedTask{task: task, status: TaskStatusPending, updatedAt: time.Now()}
	return nil
}

func (s *memoryTaskStore) UpdateTaskStatus(_ context.Context, id uuid.UUID, status TaskStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.tasks[id]; ok {
		st.status = status
		st.errorMsg = errorMsg
		st.updatedAt = time.Now()
	}
	return nil
}

func (s *memoryTaskStore) byStatus(status TaskStatus, olderThan time.Duration) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Task
	for _, st := range s.tasks {
		if st.status != status {
			continue
		}
		if olderThan > 0 && time.Since(st.updatedAt) < olderThan {
			continue
		}
		out = append(out, st.task)
	}
	return out
}

func (s *memoryTaskStore) GetPendingTasks(context.Context) ([]Task, error) {
	return s.byStatus(TaskStatusPending, 0), nil
}

func (s *memoryTaskStore) GetProcessingTasks(_ context.Context, olderThan time.Duration) ([]Task, error) {
	return s.byStatus(TaskStatusProcessing, olderThan), nil
}

func (s *memoryTaskStore) WithTx(*sql.Tx) TaskStore { return s }

func (s *memoryTaskStore) status(id uuid.UUID) (TaskStatus, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tasks[id]
	if !ok {
		return "", ""
	}
	return st.status, st.errorMsg
}

func (s *memoryTaskStore) age(id uuid.UUID, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id].updatedAt = time.Now().Add(-d)
}
