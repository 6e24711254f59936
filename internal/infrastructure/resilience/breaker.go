package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// MaxRequests is the number of trial requests allowed while half-open
	MaxRequests uint32
	// Interval clears the closed-state counts periodically
	Interval time.Duration
	// Timeout is how long the breaker stays open before a trial
	Timeout time.Duration
	// ReadyToTrip decides, after a failure, whether to open
	ReadyToTrip func(counts Counts) bool
	// IsFailure classifies errors; errors it rejects count as successes.
	// Defaults to every non-nil error except context cancellation.
	IsFailure func(err error) bool
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
}

// Counts holds the statistics for the current generation
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker guards calls to an unreliable dependency
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	counts     Counts
	expiry     time.Time
	generation uint64
}

// New creates a new circuit breaker with the given settings
func New(name string, settings Settings) *Breaker {
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if settings.Interval == 0 {
		settings.Interval = 60 * time.Second
	}
	if settings.Timeout == 0 {
		settings.Timeout = 60 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures > 5
		}
	}
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool {
			return err != nil && !errors.Is(err, context.Canceled)
		}
	}

	return &Breaker{
		name:     name,
		settings: settings,
		expiry:   time.Now().Add(settings.Interval),
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance(time.Now())
	return b.state
}

// Counts returns a copy of the current counts
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts
}

// Do runs fn if the breaker admits it and records the outcome
func Do[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	generation, err := b.admit()
	if err != nil {
		return zero, err
	}

	success := false
	defer func() {
		if r := recover(); r != nil {
			b.record(generation, false)
			panic(r)
		}
		b.record(generation, success)
	}()

	out, err := fn(ctx)
	success = !b.settings.IsFailure(err)
	return out, err
}

// Execute runs req through the breaker
func (b *Breaker) Execute(req func() (any, error)) (any, error) {
	return Do(context.Background(), b, func(context.Context) (any, error) { return req() })
}

func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(time.Now())
	switch {
	case b.state == StateOpen:
		return b.generation, ErrCircuitOpen
	case b.state == StateHalfOpen && b.counts.Requests >= b.settings.MaxRequests:
		return b.generation, ErrTooManyRequests
	}
	b.counts.Requests++
	return b.generation, nil
}

func (b *Breaker) record(generation uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.advance(now)
	if generation != b.generation {
		return
	}

	if success {
		b.counts.TotalSuccesses++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if b.state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.MaxRequests {
			b.transition(StateClosed, now)
		}
		return
	}

	b.counts.TotalFailures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0
	if b.state == StateHalfOpen || b.settings.ReadyToTrip(b.counts) {
		b.transition(StateOpen, now)
	}
}

// advance applies time-based transitions
func (b *Breaker) advance(now time.Time) {
	switch b.state {
	case StateClosed:
		if b.expiry.Before(now) {
			b.newGeneration(now.Add(b.settings.Interval))
		}
	case StateOpen:
		if b.expiry.Before(now) {
			b.transition(StateHalfOpen, now)
		}
	}
}

func (b *Breaker) transition(state State, now time.Time) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state

	switch state {
	case StateClosed:
		b.newGeneration(now.Add(b.settings.Interval))
	case StateOpen:
		b.newGeneration(now.Add(b.settings.Timeout))
	case StateHalfOpen:
		b.newGeneration(time.Time{})
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}

func (b *Breaker) newGeneration(expiry time.Time) {
	b.generation++
	b.counts = Counts{}
	b.expiry = expiry
}
