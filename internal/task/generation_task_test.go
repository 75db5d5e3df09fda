package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-forge/internal/domain"
)

type generatorFunc func(ctx context.Context, req *domain.Request) (*domain.Result, error)

func (f generatorFunc) Generate(ctx context.Context, req *domain.Request) (*domain.Result, error) {
	return f(ctx, req)
}

func sampleRequest(t *testing.T) domain.Request {
	t.Helper()
	req, err := domain.NewRequest(uuid.New(), domain.SubjectMath, domain.DifficultyEasy, "fractions",
		[]domain.TaskType{domain.TypeSingleChoice}, 5, 0)
	require.NoError(t, err)
	return *req
}

func TestNewGenerationTask(t *testing.T) {
	t.Parallel()
	req := sampleRequest(t)
	gen := generatorFunc(func(context.Context, *domain.Request) (*domain.Result, error) { return nil, nil })

	_, err := NewGenerationTask(uuid.New(), req, nil, discardLogger())
	assert.ErrorIs(t, err, ErrNilGenerator)

	_, err = NewGenerationTask(uuid.New(), req, gen, nil)
	assert.ErrorIs(t, err, ErrNilLogger)

	task, err := NewGenerationTask(uuid.Nil, req, gen, discardLogger())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, task.ID(), "missing id is generated")
	assert.Equal(t, TaskTypeGeneration, task.Type())
	assert.Equal(t, TaskStatusPending, task.Status())
}

func TestGenerationTask_Execute(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		req := sampleRequest(t)
		want := &domain.Result{ID: uuid.New(), RequestID: req.ID}
		var got *domain.Request
		gen := generatorFunc(func(_ context.Context, r *domain.Request) (*domain.Result, error) {
			got = r
			return want, nil
		})

		task, err := NewGenerationTask(uuid.New(), req, gen, discardLogger())
		require.NoError(t, err)
		require.NoError(t, task.Execute(context.Background()))

		assert.Equal(t, TaskStatusCompleted, task.Status())
		assert.Same(t, want, task.Result())
		assert.Equal(t, req.ID, got.ID)
	})

	t.Run("generator failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("quota exhausted")
		gen := generatorFunc(func(context.Context, *domain.Request) (*domain.Result, error) { return nil, boom })

		task, err := NewGenerationTask(uuid.New(), sampleRequest(t), gen, discardLogger())
		require.NoError(t, err)

		err = task.Execute(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, TaskStatusFailed, task.Status())
		assert.Nil(t, task.Result())
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		called := false
		gen := generatorFunc(func(context.Context, *domain.Request) (*domain.Result, error) {
			called = true
			return nil, nil
		})
		task, err := NewGenerationTask(uuid.New(), sampleRequest(t), gen, discardLogger())
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, task.Execute(ctx), context.Canceled)
		assert.False(t, called)
	})
}

func TestGenerationTaskFactory_Decode(t *testing.T) {
	t.Parallel()
	gen := generatorFunc(func(context.Context, *domain.Request) (*domain.Result, error) { return nil, nil })
	factory := NewGenerationTaskFactory(gen, discardLogger())

	req := sampleRequest(t)
	created, err := factory.CreateTask(req)
	require.NoError(t, err)

	decoded, err := factory.Decode(created.ID(), created.Type(), created.Payload())
	require.NoError(t, err)
	assert.Equal(t, created.ID(), decoded.ID())
	assert.Equal(t, req, decoded.(*GenerationTask).Request())

	_, err = factory.Decode(uuid.New(), "memo_generation", created.Payload())
	assert.ErrorIs(t, err, ErrUnknownTaskType)

	_, err = factory.Decode(uuid.New(), TaskTypeGeneration, []byte("{"))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDecodeRequest(t *testing.T) {
	t.Parallel()

	payload, err := json.Marshal(map[string]any{
		"account_id":   uuid.New(),
		"subject":      "history",
		"difficulty":   "medium",
		"topic":        "the hanseatic league",
		"types":        []string{"open_question"},
		"closed_count": 0,
		"open_count":   3,
	})
	require.NoError(t, err)

	req, err := DecodeRequest(payload)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, req.ID)
	assert.Equal(t, 3, req.OpenCount)

	_, err = DecodeRequest([]byte(`{"subject":"math"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = DecodeRequest([]byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
