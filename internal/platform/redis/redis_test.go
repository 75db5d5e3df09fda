package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-forge/internal/config"
	"github.com/phrazzld/scry-forge/internal/domain"
	"github.com/phrazzld/scry-forge/internal/events"
	"github.com/phrazzld/scry-forge/internal/store"
	"github.com/phrazzld/scry-forge/internal/task"
)

func setupRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_InvalidAddress(t *testing.T) {
	_, err := NewClient(context.Background(), config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestQuotaLedger(t *testing.T) {
	client, mr := setupRedis(t)
	ledger := NewQuotaLedger(client)
	ctx := context.Background()
	account := uuid.New()

	_, err := ledger.DecrementIfPositive(ctx, account)
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
	assert.ErrorIs(t, ledger.Increment(ctx, account), store.ErrAccountNotFound)

	require.NoError(t, ledger.SetBalance(ctx, account, 2))
	stored, err := mr.Get(DefaultKeyPrefix + account.String())
	require.NoError(t, err)
	assert.Equal(t, "2", stored)

	for range 2 {
		ok, err := ledger.DecrementIfPositive(ctx, account)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := ledger.DecrementIfPositive(ctx, account)
	require.NoError(t, err)
	assert.False(t, ok, "empty balance is not decremented")

	balance, err := ledger.Balance(ctx, account)
	require.NoError(t, err)
	assert.Zero(t, balance)

	require.NoError(t, ledger.Increment(ctx, account))
	balance, err = ledger.Balance(ctx, account)
	require.NoError(t, err)
	assert.Equal(t, 1, balance)

	assert.ErrorIs(t, ledger.SetBalance(ctx, account, -3), store.ErrInvalidEntity)
	_, err = ledger.Balance(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestQuotaLedger_ConcurrentDecrements(t *testing.T) {
	client, _ := setupRedis(t)
	ledger := NewQuotaLedger(client)
	ctx := context.Background()
	account := uuid.New()
	require.NoError(t, ledger.SetBalance(ctx, account, 5))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := ledger.DecrementIfPositive(ctx, account)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, granted)
	balance, err := ledger.Balance(ctx, account)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestQuotaLedger_ServerError(t *testing.T) {
	client, mr := setupRedis(t)
	ledger := NewQuotaLedger(client)
	mr.SetError("LOADING")

	_, err := ledger.DecrementIfPositive(context.Background(), uuid.New())
	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "decrement", storeErr.Operation)
}

func testRequest(t *testing.T) *domain.Request {
	t.Helper()
	req, err := domain.NewRequest(uuid.New(), domain.SubjectLanguage, domain.DifficultyMedium, "phrasal verbs",
		[]domain.TaskType{domain.TypeFillBlank}, 0, 4)
	require.NoError(t, err)
	return req
}

func TestRequestQueue_PushPop(t *testing.T) {
	client, _ := setupRedis(t)
	q := NewRequestQueue(client, "forge:requests", slog.New(slog.DiscardHandler))
	ctx := context.Background()

	_, err := q.Pop(ctx, time.Second)
	assert.ErrorIs(t, err, ErrQueueEmpty)

	req := testRequest(t)
	require.NoError(t, q.Push(ctx, req))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	raw, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)

	var got domain.Request
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, req.ID, got.ID)
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
	err    error
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return e.err
}

func (e *recordingEmitter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.events)
}

func TestRequestQueue_Consume(t *testing.T) {
	client, _ := setupRedis(t)
	q := NewRequestQueue(client, "forge:requests", slog.New(slog.DiscardHandler))
	q.popTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	emitter := &recordingEmitter{}
	done := make(chan error, 1)
	go func() { done <- q.Consume(ctx, emitter) }()

	req := testRequest(t)
	require.NoError(t, q.Push(context.Background(), req))
	require.Eventually(t, func() bool { return emitter.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}

	event := emitter.events[0]
	assert.Equal(t, task.TaskTypeGeneration, event.Type)
	assert.Equal(t, "redis", event.Source)
	var got domain.Request
	require.NoError(t, event.UnmarshalPayload(&got))
	assert.Equal(t, req.ID, got.ID)
}

func TestRequestQueue_DeadLetter(t *testing.T) {
	client, _ := setupRedis(t)
	q := NewRequestQueue(client, "forge:requests", slog.New(slog.DiscardHandler))
	q.popTimeout = time.Second
	ctx := context.Background()

	emitter := &recordingEmitter{err: errors.New("queue full")}
	q.dispatch(ctx, emitter, []byte(`{"subject":"math"}`))
	q.dispatch(ctx, emitter, []byte(`not json`))

	n, err := q.DeadLetters(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, 1, emitter.count(), "invalid JSON never reaches the emitter")
}
