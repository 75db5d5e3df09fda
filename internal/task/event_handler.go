package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/events"
)

// Submitter accepts tasks for background execution. *TaskRunner implements it.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// RequestEventHandler turns generation request events into submitted tasks.
type RequestEventHandler struct {
	factory *GenerationTaskFactory
	runner  Submitter
	logger  *slog.Logger
}

var _ events.EventHandler = (*RequestEventHandler)(nil)

// NewRequestEventHandler creates a handler that submits tasks built by factory to runner.
func NewRequestEventHandler(factory *GenerationTaskFactory, runner Submitter, logger *slog.Logger) *RequestEventHandler {
	return &RequestEventHandler{
		factory: factory,
		runner:  runner,
		logger:  logger.With("component", "request_event_handler"),
	}
}

// HandleEvent implements events.EventHandler.
func (h *RequestEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event.Type != TaskTypeGeneration {
		h.logger.DebugContext(ctx, "ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	req, err := DecodeRequest(event.Payload)
	if err != nil {
		h.logger.WarnContext(ctx, "rejecting generation request", "event_id", event.ID, "error", err)
		return err
	}

	return h.submit(ctx, req, event)
}

func (h *RequestEventHandler) submit(ctx context.Context, req domain.Request, event *events.TaskRequestEvent) error {
	t, err := h.factory.CreateTask(req)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	if err := h.runner.Submit(ctx, t); err != nil {
		h.logger.ErrorContext(ctx, "failed to submit task",
			"event_id", event.ID,
			"task_id", t.ID(),
			"request_id", req.ID,
			"error", err)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.InfoContext(ctx, "submitted generation task",
		"event_id", event.ID,
		"task_id", t.ID(),
		"request_id", req.ID,
		"account_id", req.AccountID,
		"source", event.Source)
	return nil
}
