// Package breaker guards repeated calls to an unhealthy content provider.
//
// A CircuitBreaker is created once per process and shared by reference across
// every generation episode. It is approximate protection, not a correctness
// guard: callers check IsOpen before a call and report the outcome afterwards.
package breaker

import (
	"sync"
	"time"
)

// State is the position of the breaker.
type State string

// Breaker states.
const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Config controls when the breaker trips and recovers.
type Config struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

// DefaultConfig trips after three consecutive failures and probes again after 30 seconds.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		ResetTimeout:     30 * time.Second,
	}
}

// Snapshot is a point-in-time copy of the breaker's state.
type Snapshot struct {
	State               State         `json:"state"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	LastFailureTime     time.Time     `json:"last_failure_time"`
	LastStateChange     time.Time     `json:"last_state_change"`
	FailureThreshold    int           `json:"failure_threshold"`
	ResetTimeout        time.Duration `json:"reset_timeout"`
}

// StateChangeFunc is called after every transition, outside the breaker's lock.
type StateChangeFunc func(from, to State)

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(b *CircuitBreaker) { b.clock = c }
}

// WithStateChangeHook registers a callback for state transitions.
func WithStateChangeHook(fn StateChangeFunc) Option {
	return func(b *CircuitBreaker) { b.onChange = fn }
}

// CircuitBreaker tracks consecutive provider failures.
type CircuitBreaker struct {
	mu       sync.Mutex
	clock    Clock
	onChange StateChangeFunc

	threshold    int
	resetTimeout time.Duration

	state           State
	failures        int
	lastFailure     time.Time
	lastStateChange time.Time
}

// New creates a closed breaker. A non-positive threshold is treated as 1.
func New(cfg Config, opts ...Option) *CircuitBreaker {
	b := &CircuitBreaker{
		clock:        SystemClock,
		threshold:    max(cfg.FailureThreshold, 1),
		resetTimeout: cfg.ResetTimeout,
		state:        StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastStateChange = b.clock.Now()
	return b
}

// IsOpen reports whether calls should be withheld. Once the reset timeout has
// elapsed since the last failure, the call moves the breaker to HALF_OPEN and
// returns false so one probe can go through.
func (b *CircuitBreaker) IsOpen() bool {
	b.mu.Lock()
	if b.state != StateOpen {
		b.mu.Unlock()
		return false
	}
	now := b.clock.Now()
	if now.Sub(b.lastFailure) < b.resetTimeout {
		b.mu.Unlock()
		return true
	}
	from := b.transition(StateHalfOpen, now)
	b.mu.Unlock()

	b.notify(from, StateHalfOpen)
	return false
}

// RecordSuccess resets the failure count and closes the breaker.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	b.failures = 0
	if b.state == StateClosed {
		b.mu.Unlock()
		return
	}
	from := b.transition(StateClosed, b.clock.Now())
	b.mu.Unlock()

	b.notify(from, StateClosed)
}

// RecordFailure counts a failure. A failure while HALF_OPEN, or one that
// reaches the threshold while CLOSED, opens the breaker.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	now := b.clock.Now()
	b.failures++
	b.lastFailure = now

	trip := b.state == StateHalfOpen ||
		(b.state == StateClosed && b.failures >= b.threshold)
	if !trip {
		b.mu.Unlock()
		return
	}
	from := b.transition(StateOpen, now)
	b.mu.Unlock()

	b.notify(from, StateOpen)
}

// State returns a snapshot of the breaker.
func (b *CircuitBreaker) State() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		State:               b.state,
		ConsecutiveFailures: b.failures,
		LastFailureTime:     b.lastFailure,
		LastStateChange:     b.lastStateChange,
		FailureThreshold:    b.threshold,
		ResetTimeout:        b.resetTimeout,
	}
}

// transition must be called with mu held.
func (b *CircuitBreaker) transition(to State, now time.Time) State {
	from := b.state
	b.state = to
	b.lastStateChange = now
	return from
}

func (b *CircuitBreaker) notify(from, to State) {
	if b.onChange != nil && from != to {
		b.onChange(from, to)
	}
}
