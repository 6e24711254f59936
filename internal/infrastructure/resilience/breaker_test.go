package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFetch = errors.New("fetch failed")

func fail(context.Context) (string, error) { return "", errFetch }
func ok(context.Context) (string, error)   { return "ok", nil }

func TestBreakerOpensAfterFailures(t *testing.T) {
	var transitions []string
	b := New("artifacts", Settings{
		Timeout:     time.Minute,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	for range 3 {
		_, err := Do(ctx, b, fail)
		assert.ErrorIs(t, err, errFetch)
	}
	assert.Equal(t, StateOpen, b.State())

	_, err := Do(ctx, b, ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := New("artifacts", Settings{
		MaxRequests: 2,
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	ctx := context.Background()

	_, _ = Do(ctx, b, fail)
	require.Equal(t, StateOpen, b.State())

	require.Eventually(t, func() bool { return b.State() == StateHalfOpen }, time.Second, 5*time.Millisecond)

	out, err := Do(ctx, b, ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, StateHalfOpen, b.State())

	_, err = Do(ctx, b, ok)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New("artifacts", Settings{
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	ctx := context.Background()

	_, _ = Do(ctx, b, fail)
	require.Eventually(t, func() bool { return b.State() == StateHalfOpen }, time.Second, 5*time.Millisecond)

	_, _ = Do(ctx, b, fail)
	assert.Equal(t, StateOpen, b.State())
}

func TestIsFailureClassification(t *testing.T) {
	notFound := errors.New("not found")
	b := New("artifacts", Settings{
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		IsFailure:   func(err error) bool { return err != nil && !errors.Is(err, notFound) },
	})

	_, err := Do(context.Background(), b, func(context.Context) (int, error) { return 0, notFound })
	assert.ErrorIs(t, err, notFound)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(1), b.Counts().TotalSuccesses)
}

func TestDoHonoursCancelledContext(t *testing.T) {
	b := New("artifacts", Settings{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Do(ctx, b, func(context.Context) (int, error) { called = true; return 1, nil })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
	assert.Equal(t, uint32(0), b.Counts().Requests)
}

func TestExecutePanicCountsAsFailure(t *testing.T) {
	b := New("artifacts", Settings{ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 }})

	assert.Panics(t, func() {
		_, _ = b.Execute(func() (any, error) { panic("boom") })
	})
	assert.Equal(t, StateOpen, b.State())
}
