// Package resilience provides the circuit breaker used around the alert
// endpoint.
//
// The breaker is a classic three-state machine (closed, open, half-open): a
// run of consecutive delivery failures opens it, rejecting further attempts
// immediately until a reset timeout elapses, after which a single probe
// attempt decides whether to close it again. This keeps a dead endpoint from
// adding a full network timeout to every alert.
//
// Safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by Execute while the breaker is open.
var ErrOpen = errors.New("resilience: circuit is open")

// State represents the breaker's operating mode.
type State int

const (
	// StateClosed forwards all calls.
	StateClosed State = iota

	// StateOpen rejects calls until the reset timeout elapses.
	StateOpen

	// StateHalfOpen allows one probe call to test the endpoint.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker is a three-state circuit breaker.
type Breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
}

// NewBreaker creates a Breaker that opens after maxFailures consecutive
// failures and probes again after resetTimeout. Non-positive arguments get
// defaults (3 failures, 30s). name labels log messages.
func NewBreaker(name string, maxFailures int, resetTimeout time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &Breaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn if the breaker allows it. While open it returns ErrOpen
// without calling fn; in half-open it admits a single probe at a time.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.resetTimeout {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = StateHalfOpen
		slog.Info("circuit breaker probing endpoint", "name", b.name)
		fallthrough
	case StateHalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
	}
	probe := b.state == StateHalfOpen
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.probing = false
	}

	if err != nil {
		b.failures++
		b.lastFailure = b.now()
		if probe || b.failures >= b.maxFailures {
			if b.state != StateOpen {
				slog.Warn("circuit breaker opened",
					"name", b.name,
					"consecutive_failures", b.failures,
				)
			}
			b.state = StateOpen
		}
		return err
	}

	if b.state != StateClosed {
		slog.Info("circuit breaker closed", "name", b.name)
	}
	b.state = StateClosed
	b.failures = 0
	return nil
}
