package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where calls are allowed.
	Closed State = iota
	// Open blocks every call until the timeout elapses.
	Open
	// HalfOpen lets trial calls through to probe recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards calls to a flaky dependency.
type CircuitBreaker interface {
	// Execute runs fn unless the circuit is open and records its outcome.
	Execute(fn func() error) error
	State() State
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithStateChange registers a callback invoked, outside the lock, on every transition.
func WithStateChange(fn func(from, to State)) Option {
	return func(b *Breaker) { b.onStateChange = fn }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// WithIgnore marks errors that must not count as failures, such as caller cancellation.
func WithIgnore(ignore func(error) bool) Option {
	return func(b *Breaker) { b.ignore = ignore }
}

// Breaker is a consecutive-failure circuit breaker.
type Breaker struct {
	failureThreshold uint32
	successThreshold uint32
	timeout          time.Duration

	onStateChange func(from, to State)
	now           func() time.Time
	ignore        func(error) bool

	mu        sync.Mutex
	state     State
	failures  uint32
	successes uint32
	openedAt  time.Time
}

var _ CircuitBreaker = (*Breaker)(nil)

// New creates a breaker that opens after failureThreshold consecutive
// failures, stays open for timeout, and closes again after successThreshold
// consecutive successes in the half-open state.
func New(failureThreshold, successThreshold uint32, timeout time.Duration, opts ...Option) *Breaker {
	if failureThreshold == 0 {
		failureThreshold = 1
	}
	if successThreshold == 0 {
		successThreshold = 1
	}
	b := &Breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		now:              time.Now,
		state:            Closed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the current state, moving an expired Open to HalfOpen.
func (b *Breaker) State() State {
	b.mu.Lock()
	from, to := b.advance()
	state := b.state
	b.mu.Unlock()
	b.notify(from, to)
	return state
}

// Execute runs fn when the circuit allows it.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	from, to := b.advance()
	state := b.state
	b.mu.Unlock()
	b.notify(from, to)

	if state == Open {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil && b.ignore != nil && b.ignore(err) {
		return err
	}
	b.record(err == nil)
	return err
}

// advance must be called with mu held.
func (b *Breaker) advance() (State, State) {
	if b.state == Open && b.now().Sub(b.openedAt) >= b.timeout {
		return b.transition(HalfOpen)
	}
	return b.state, b.state
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	from, to := b.state, b.state
	switch {
	case success && b.state == HalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			from, to = b.transition(Closed)
		}
	case success:
		b.failures = 0
	case b.state == HalfOpen:
		from, to = b.transition(Open)
	case b.state == Closed:
		b.failures++
		if b.failures >= b.failureThreshold {
			from, to = b.transition(Open)
		}
	}
	b.mu.Unlock()
	b.notify(from, to)
}

// transition must be called with mu held.
func (b *Breaker) transition(to State) (State, State) {
	from := b.state
	b.state = to
	b.failures = 0
	b.successes = 0
	if to == Open {
		b.openedAt = b.now()
	}
	return from, to
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}
