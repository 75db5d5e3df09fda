package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/events"
)

type submitterFunc func(ctx context.Context, task Task) error

func (f submitterFunc) Submit(ctx context.Context, task Task) error { return f(ctx, task) }

func TestRequestEventHandler(t *testing.T) {
	t.Parallel()
	gen := generatorFunc(func(context.Context, *domain.Request) (*domain.Result, error) { return nil, nil })
	factory := NewGenerationTaskFactory(gen, discardLogger())
	ctx := context.Background()

	payload, err := json.Marshal(sampleRequest(t))
	require.NoError(t, err)

	t.Run("submits generation task", func(t *testing.T) {
		var submitted []Task
		h := NewRequestEventHandler(factory, submitterFunc(func(_ context.Context, task Task) error {
			submitted = append(submitted, task)
			return nil
		}), discardLogger())

		event, err := events.NewTaskRequestEvent(TaskTypeGeneration, json.RawMessage(payload))
		require.NoError(t, err)
		require.NoError(t, h.HandleEvent(ctx, event))

		require.Len(t, submitted, 1)
		assert.Equal(t, TaskTypeGeneration, submitted[0].Type())
		assert.JSONEq(t, string(payload), string(submitted[0].Payload()))
	})

	t.Run("ignores other types", func(t *testing.T) {
		h := NewRequestEventHandler(factory, submitterFunc(func(context.Context, Task) error {
			t.Fatal("unexpected submit")
			return nil
		}), discardLogger())

		event, err := events.NewTaskRequestEvent("memo_generation", json.RawMessage(payload))
		require.NoError(t, err)
		assert.NoError(t, h.HandleEvent(ctx, event))
	})

	t.Run("invalid request", func(t *testing.T) {
		h := NewRequestEventHandler(factory, submitterFunc(func(context.Context, Task) error { return nil }), discardLogger())
		event, err := events.NewTaskRequestEvent(TaskTypeGeneration, map[string]string{"subject": "alchemy"})
		require.NoError(t, err)
		assert.ErrorIs(t, h.HandleEvent(ctx, event), ErrInvalidPayload)
	})

	t.Run("submit failure", func(t *testing.T) {
		h := NewRequestEventHandler(factory, submitterFunc(func(context.Context, Task) error {
			return ErrQueueFull
		}), discardLogger())
		event, err := events.NewTaskRequestEvent(TaskTypeGeneration, json.RawMessage(payload))
		require.NoError(t, err)

		err = h.HandleEvent(ctx, event)
		assert.True(t, errors.Is(err, ErrQueueFull))
	})
}
