package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-forge/internal/domain"
)

// Generator runs one generation episode.
type Generator interface {
	Generate(ctx context.Context, req *domain.Request) (*domain.Result, error)
}

// GenerationTask executes one generation episode for a persisted request.
type GenerationTask struct {
	id        uuid.UUID
	request   domain.Request
	generator Generator
	logger    *slog.Logger
	status    TaskStatus
	result    *domain.Result
}

var _ Task = (*GenerationTask)(nil)

// NewGenerationTask creates a pending task for req.
func NewGenerationTask(id uuid.UUID, req domain.Request, generator Generator, logger *slog.Logger) (*GenerationTask, error) {
	if generator == nil {
		return nil, ErrNilGenerator
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &GenerationTask{
		id:        id,
		request:   req,
		generator: generator,
		logger: logger.With(
			"task_type", TaskTypeGeneration,
			"request_id", req.ID,
			"account_id", req.AccountID,
		),
		status: TaskStatusPending,
	}, nil
}

// ID returns the task's unique identifier
func (t *GenerationTask) ID() uuid.UUID { return t.id }

// Type returns the task type identifier
func (t *GenerationTask) Type() string { return TaskTypeGeneration }

// Payload returns the JSON-encoded request.
func (t *GenerationTask) Payload() []byte {
	data, err := json.Marshal(t.request)
	if err != nil {
		t.logger.Error("failed to marshal task payload", "error", err)
		return []byte{}
	}
	return data
}

// Status returns the current task status
func (t *GenerationTask) Status() TaskStatus { return t.status }

// Request returns the request the task generates for.
func (t *GenerationTask) Request() domain.Request { return t.request }

// Result returns the episode result once the task has completed.
func (t *GenerationTask) Result() *domain.Result { return t.result }

// Execute runs the episode.
func (t *GenerationTask) Execute(ctx context.Context) error {
	t.status = TaskStatusProcessing
	t.logger.InfoContext(ctx, "starting generation task")

	if err := ctx.Err(); err != nil {
		t.status = TaskStatusFailed
		return fmt.Errorf("task cancelled by context: %w", err)
	}

	req := t.request
	result, err := t.generator.Generate(ctx, &req)
	if err != nil {
		t.status = TaskStatusFailed
		t.logger.ErrorContext(ctx, "generation failed", "error", err)
		return fmt.Errorf("generation failed: %w", err)
	}

	t.result = result
	t.status = TaskStatusCompleted
	t.logger.InfoContext(ctx, "generation task completed",
		"generation_id", result.ID,
		"delivered", result.Telemetry.Delivered,
		"requested", result.Telemetry.Requested)
	return nil
}

// GenerationTaskFactory creates generation tasks and rebuilds them from storage.
type GenerationTaskFactory struct {
	generator Generator
	logger    *slog.Logger
}

var _ Decoder = (*GenerationTaskFactory)(nil)

// NewGenerationTaskFactory creates a factory whose tasks run on generator.
func NewGenerationTaskFactory(generator Generator, logger *slog.Logger) *GenerationTaskFactory {
	return &GenerationTaskFactory{
		generator: generator,
		logger:    logger.With("component", "generation_task_factory"),
	}
}

// CreateTask creates a new task for req.
func (f *GenerationTaskFactory) CreateTask(req domain.Request) (Task, error) {
	return NewGenerationTask(uuid.New(), req, f.generator, f.logger)
}

// Decode implements Decoder.
func (f *GenerationTaskFactory) Decode(id uuid.UUID, taskType string, payload []byte) (Task, error) {
	if taskType != TaskTypeGeneration {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTaskType, taskType)
	}
	var req domain.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return NewGenerationTask(id, req, f.generator, f.logger)
}

// DecodeRequest decodes the payload of an intake message into a request.
// A request without an id is assigned one; the result is validated.
func DecodeRequest(payload []byte) (domain.Request, error) {
	var req domain.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return domain.Request{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if err := req.Validate(); err != nil {
		return domain.Request{}, errors.Join(ErrInvalidPayload, err)
	}
	return req, nil
}
