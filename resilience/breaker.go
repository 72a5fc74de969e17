package resilience

import (
	"errors"
	"sync"
	"time"
)

// State is the state of a Breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects every call until the open timeout elapses.
	StateOpen
	// StateHalfOpen lets a few probe calls through to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrOpen is returned for calls rejected by an open breaker.
var ErrOpen = errors.New("circuit breaker is open")

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// Name identifies the breaker in state change callbacks.
	Name string
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures int
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// ProbeCalls is the number of calls allowed, and successes needed, while
	// half-open.
	ProbeCalls int
	// IsFailure reports whether an error counts against the dependency.
	// Defaults to every non-nil error.
	IsFailure func(error) bool
	// OnStateChange is called on every transition, under the breaker lock.
	OnStateChange func(name string, from, to State)
}

// Breaker fails fast while a dependency keeps failing.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	probes   int
	passed   int
	openedAt time.Time
}

// NewBreaker creates a closed breaker. Unset limits default to 5 failures,
// a 30s open timeout and one probe call.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.ProbeCalls <= 0 {
		cfg.ProbeCalls = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Do runs fn unless the breaker is open, in which case it returns ErrOpen.
func (b *Breaker) Do(fn func() error) error {
	_, err := Call(b, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

// Call runs fn through b and returns its result.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	if !b.allow() {
		var zero T
		return zero, ErrOpen
	}
	v, err := fn()
	b.record(err)
	return v, err
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
	b.failures = 0
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.current() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.probes < b.cfg.ProbeCalls {
			b.probes++
			return true
		}
	}
	return false
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.current()
	if err == nil || !b.cfg.IsFailure(err) {
		switch state {
		case StateClosed:
			b.failures = 0
		case StateHalfOpen:
			b.passed++
			if b.passed >= b.cfg.ProbeCalls {
				b.transition(StateClosed)
			}
		}
		return
	}

	b.failures++
	if state == StateHalfOpen || b.failures >= b.cfg.MaxFailures {
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

// current moves an open breaker to half-open once the timeout has elapsed.
func (b *Breaker) current() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		b.transition(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.probes, b.passed = 0, 0
	if to == StateClosed {
		b.failures = 0
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}
