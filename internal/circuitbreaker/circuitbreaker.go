package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// CircuitBreaker trips after maxFailures consecutive upstream faults and rejects calls until
// resetTimeout has elapsed. Only errors accepted by the failure classifier count as faults,
// so a provider rejecting bad input does not open the circuit.
type CircuitBreaker struct {
	maxFailures     int
	resetTimeout    time.Duration
	isFailure       func(error) bool
	nowFunc         func() time.Time
	failureCount    int
	lastFailureTime time.Time
	state           State
	mu              sync.RWMutex
}

type Option func(*CircuitBreaker)

// WithFailureClassifier overrides which errors count towards tripping the breaker.
func WithFailureClassifier(fn func(error) bool) Option {
	return func(cb *CircuitBreaker) { cb.isFailure = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(cb *CircuitBreaker) { cb.nowFunc = now }
}

func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		isFailure:    func(err error) bool { return err != nil },
		nowFunc:      time.Now,
		state:        StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Execute runs fn unless the circuit is open. The lock is not held while fn runs.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cb.before(); err != nil {
		return err
	}

	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.nowFunc().Sub(cb.lastFailureTime) <= cb.resetTimeout {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.failureCount = 0
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	// the caller gave up; the upstream told us nothing
	if errors.Is(err, context.Canceled) {
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil && cb.isFailure(err) {
		cb.failureCount++
		cb.lastFailureTime = cb.nowFunc()

		if cb.failureCount >= cb.maxFailures || cb.state == StateHalfOpen {
			cb.state = StateOpen
		}
		return
	}

	// a rejected-but-healthy call still proves the upstream is reachable
	cb.state = StateClosed
	cb.failureCount = 0
}

func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}
