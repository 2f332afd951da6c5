package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/impact-snapshot/internal/platform/retry"
)

var fastPolicy = retry.Policy{
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), clockwork.NewRealClock(), fastPolicy, func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), clockwork.NewRealClock(), fastPolicy, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	cause := errors.New("bad url")
	calls := 0
	err := retry.Do(context.Background(), clockwork.NewRealClock(), fastPolicy, func(context.Context) error {
		calls++
		return retry.Permanent(cause)
	})

	var permErr *retry.PermanentError
	require.ErrorAs(t, err, &permErr)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustedRetries(t *testing.T) {
	cause := errors.New("connection refused")
	calls := 0
	err := retry.Do(context.Background(), clockwork.NewRealClock(), fastPolicy, func(context.Context) error {
		calls++
		return cause
	})

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, fastPolicy.MaxAttempts, calls)
}

func TestDo_BackoffDoublesUpToCap(t *testing.T) {
	var backoffs []time.Duration
	p := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     3 * time.Millisecond,
		OnRetry: func(_ int, _ error, backoff time.Duration) {
			backoffs = append(backoffs, backoff)
		},
	}

	_ = retry.Do(context.Background(), clockwork.NewRealClock(), p, func(context.Context) error {
		return errors.New("fail")
	})

	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 3 * time.Millisecond}, backoffs)
}

func TestDo_WaitsOnClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := retry.Policy{MaxAttempts: 2, InitialBackoff: time.Minute}

	calls := make(chan struct{}, 2)
	done := make(chan error, 1)
	go func() {
		done <- retry.Do(context.Background(), clock, p, func(context.Context) error {
			calls <- struct{}{}
			if len(calls) == 1 {
				return errors.New("transient")
			}
			return nil
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Len(t, calls, 1)

	clock.Advance(time.Minute)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("retry did not resume after backoff")
	}
	assert.Len(t, calls, 2)
}

func TestDo_ContextCancellationDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := retry.Policy{MaxAttempts: 3, InitialBackoff: 10 * time.Second}

	calls := 0
	err := retry.Do(ctx, clockwork.NewRealClock(), p, func(context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var recorded []int
	p := fastPolicy
	p.OnRetry = func(attempt int, _ error, _ time.Duration) {
		recorded = append(recorded, attempt)
	}

	_ = retry.Do(context.Background(), clockwork.NewRealClock(), p, func(context.Context) error {
		return errors.New("fail")
	})

	// No callback after the final attempt.
	assert.Equal(t, []int{1, 2}, recorded)
}

func TestDo_InvalidPolicy(t *testing.T) {
	err := retry.Do(context.Background(), clockwork.NewRealClock(), retry.Policy{}, func(context.Context) error { return nil })
	require.Error(t, err)
}
