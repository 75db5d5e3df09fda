package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type transition struct {
	from, to State
}

func newTestBreaker(t *testing.T, threshold int, reset time.Duration) (*CircuitBreaker, *fakeClock, *[]transition) {
	t.Helper()
	clock := newFakeClock()
	var seen []transition
	b := New(Config{FailureThreshold: threshold, ResetTimeout: reset},
		WithClock(clock),
		WithStateChangeHook(func(from, to State) {
			seen = append(seen, transition{from, to})
		}),
	)
	return b, clock, &seen
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	t.Parallel()
	b, _, seen := newTestBreaker(t, 3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State().State)

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	snap := b.State()
	assert.Equal(t, StateOpen, snap.State)
	assert.Equal(t, 3, snap.ConsecutiveFailures)
	assert.Equal(t, []transition{{StateClosed, StateOpen}}, *seen)
}

func TestBreakerHalfOpenAfterResetTimeout(t *testing.T) {
	t.Parallel()
	b, clock, seen := newTestBreaker(t, 2, 30*time.Second)

	b.RecordFailure()
	b.RecordFailure()
	require.True(t, b.IsOpen())

	clock.Advance(29 * time.Second)
	assert.True(t, b.IsOpen())

	clock.Advance(time.Second)
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateHalfOpen, b.State().State)

	// a single failure while probing re-opens immediately
	b.RecordFailure()
	assert.True(t, b.IsOpen())
	assert.Equal(t, StateOpen, b.State().State)

	assert.Equal(t, []transition{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateOpen},
	}, *seen)
}

func TestBreakerHalfOpenSuccessCloses(t *testing.T) {
	t.Parallel()
	b, clock, _ := newTestBreaker(t, 1, time.Second)

	b.RecordFailure()
	require.True(t, b.IsOpen())
	clock.Advance(time.Second)
	require.False(t, b.IsOpen())

	b.RecordSuccess()
	snap := b.State()
	assert.Equal(t, StateClosed, snap.State)
	assert.Zero(t, snap.ConsecutiveFailures)
	assert.Equal(t, clock.Now(), snap.LastStateChange)
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	t.Parallel()
	b, _, seen := newTestBreaker(t, 3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	assert.False(t, b.IsOpen())
	assert.Equal(t, 2, b.State().ConsecutiveFailures)
	assert.Empty(t, *seen)
}

func TestBreakerNonPositiveThreshold(t *testing.T) {
	t.Parallel()
	b := New(Config{FailureThreshold: 0, ResetTimeout: time.Minute})

	assert.Equal(t, 1, b.State().FailureThreshold)
	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreakerConcurrentUse(t *testing.T) {
	t.Parallel()
	b := New(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				b.RecordFailure()
			} else {
				b.RecordSuccess()
			}
			_ = b.IsOpen()
			_ = b.State()
		}(i)
	}
	wg.Wait()

	state := b.State().State
	assert.Contains(t, []State{StateClosed, StateOpen}, state)
}
