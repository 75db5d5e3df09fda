package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/events"
	"github.com/phrazzld/scry-forge/internal/task"
)

// ErrQueueEmpty is returned by Pop when no request arrived before the timeout.
var ErrQueueEmpty = errors.New("request queue is empty")

const (
	defaultPopTimeout = 2 * time.Second
	deadLetterSuffix  = ":dead"
	eventSource       = "redis"
)

// RequestQueue is the intake list between the request-handling layer and
// the worker. Producers RPUSH JSON requests; the worker pops them with BLPOP.
type RequestQueue struct {
	client     goredis.UniversalClient
	key        string
	popTimeout time.Duration
	logger     *slog.Logger
}

// NewRequestQueue creates a queue on the list at key.
func NewRequestQueue(client goredis.UniversalClient, key string, logger *slog.Logger) *RequestQueue {
	return &RequestQueue{
		client:     client,
		key:        key,
		popTimeout: defaultPopTimeout,
		logger:     logger.With("component", "request_queue", "queue", key),
	}
}

// Push appends a request to the intake list.
func (q *RequestQueue) Push(ctx context.Context, req *domain.Request) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("push request: %w", err)
	}
	return nil
}

// Len is the number of requests waiting in the list.
func (q *RequestQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// DeadLetters is the number of requests that could not be handed off.
func (q *RequestQueue) DeadLetters(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key+deadLetterSuffix).Result()
}

// Pop blocks up to timeout for the next raw request.
func (q *RequestQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, err
	}
	// BLPOP replies with the key followed by the value.
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BLPOP reply of length %d", len(res))
	}
	return []byte(res[1]), nil
}

// Consume pops requests until ctx is done and emits each as a generation
// event. Requests the emitter rejects are moved to the dead-letter list.
func (q *RequestQueue) Consume(ctx context.Context, emitter events.EventEmitter) error {
	q.logger.InfoContext(ctx, "consuming generation requests")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		raw, err := q.Pop(ctx, q.popTimeout)
		switch {
		case errors.Is(err, ErrQueueEmpty):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			q.logger.ErrorContext(ctx, "failed to pop request", "error", err)
			if !sleepCtx(ctx, q.popTimeout) {
				return nil
			}
			continue
		}

		q.dispatch(ctx, emitter, raw)
	}
}

func (q *RequestQueue) dispatch(ctx context.Context, emitter events.EventEmitter, raw []byte) {
	event, err := events.NewTaskRequestEvent(task.TaskTypeGeneration, raw)
	if err == nil {
		event.Source = eventSource
		err = emitter.EmitEvent(ctx, event)
	}
	if err == nil {
		return
	}

	q.logger.WarnContext(ctx, "moving request to dead-letter list", "error", err)
	if pushErr := q.client.RPush(context.WithoutCancel(ctx), q.key+deadLetterSuffix, raw).Err(); pushErr != nil {
		q.logger.ErrorContext(ctx, "failed to dead-letter request", "error", pushErr)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
