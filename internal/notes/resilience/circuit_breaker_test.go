package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notedesk/internal/notes/resilience"
)

var errBackend = errors.New("backend down")

func failing() error { return errBackend }
func succeeding() error { return nil }

func newBreaker(timeout time.Duration) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker("test", resilience.CircuitBreakerConfig{
		ErrorThreshold:   3,
		Timeout:          timeout,
		SuccessThreshold: 2,
	})
}

func TestCircuitBreakerTrips(t *testing.T) {
	ctx := context.Background()
	cb := newBreaker(time.Hour)

	for range 2 {
		assert.ErrorIs(t, cb.Execute(ctx, failing), errBackend)
	}
	assert.Equal(t, resilience.StateClosed, cb.State())

	assert.ErrorIs(t, cb.Execute(ctx, failing), errBackend)
	assert.Equal(t, resilience.StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	ctx := context.Background()
	cb := newBreaker(time.Hour)

	for range 2 {
		_ = cb.Execute(ctx, failing)
	}
	require.NoError(t, cb.Execute(ctx, succeeding))
	for range 2 {
		_ = cb.Execute(ctx, failing)
	}
	assert.Equal(t, resilience.StateClosed, cb.State())
}

func TestCircuitBreakerHalfOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers after success threshold", func(t *testing.T) {
		cb := newBreaker(20 * time.Millisecond)
		for range 3 {
			_ = cb.Execute(ctx, failing)
		}
		require.Equal(t, resilience.StateOpen, cb.State())

		time.Sleep(30 * time.Millisecond)
		require.NoError(t, cb.Execute(ctx, succeeding))
		assert.Equal(t, resilience.StateHalfOpen, cb.State())

		require.NoError(t, cb.Execute(ctx, succeeding))
		assert.Equal(t, resilience.StateClosed, cb.State())
	})

	t.Run("failure reopens", func(t *testing.T) {
		cb := newBreaker(20 * time.Millisecond)
		for range 3 {
			_ = cb.Execute(ctx, failing)
		}

		time.Sleep(30 * time.Millisecond)
		assert.ErrorIs(t, cb.Execute(ctx, failing), errBackend)
		assert.Equal(t, resilience.StateOpen, cb.State())
		assert.ErrorIs(t, cb.Execute(ctx, succeeding), resilience.ErrCircuitOpen)
	})
}

func TestCircuitBreakerIsFailure(t *testing.T) {
	ctx := context.Background()
	errExpected := errors.New("expected")
	cb := resilience.NewCircuitBreaker("test", resilience.CircuitBreakerConfig{
		ErrorThreshold: 1,
		IsFailure:      func(err error) bool { return !errors.Is(err, errExpected) },
	})

	for range 5 {
		assert.ErrorIs(t, cb.Execute(ctx, func() error { return errExpected }), errExpected)
	}
	assert.Equal(t, resilience.StateClosed, cb.State())

	_ = cb.Execute(ctx, failing)
	assert.Equal(t, resilience.StateOpen, cb.State())
}

func TestCircuitStateString(t *testing.T) {
	assert.Equal(t, "closed", resilience.StateClosed.String())
	assert.Equal(t, "open", resilience.StateOpen.String())
	assert.Equal(t, "half-open", resilience.StateHalfOpen.String())
	assert.Equal(t, "unknown", resilience.CircuitState(42).String())
}
