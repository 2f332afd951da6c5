package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/impact-snapshot/internal/adapter/metrics"
)

func runCommand(hook *CircuitBreakerHook, result error) error {
	ctx := context.Background()
	process := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return result })
	return process(ctx, goredis.NewStringCmd(ctx, "get", "impact:status"))
}

func TestCircuitBreakerHook_NormalOperation(t *testing.T) {
	hook := NewCircuitBreakerHook(nil)

	for range 10 {
		assert.NoError(t, runCommand(hook, nil))
	}

	assert.Equal(t, circuitbreaker.ClosedState, hook.State())
}

func TestCircuitBreakerHook_NilIsNotAFailure(t *testing.T) {
	hook := NewCircuitBreakerHook(nil)

	for range 10 {
		err := runCommand(hook, goredis.Nil)
		assert.ErrorIs(t, err, goredis.Nil)
	}

	assert.Equal(t, circuitbreaker.ClosedState, hook.State())
}

func TestCircuitBreakerHook_TransientFailures(t *testing.T) {
	hook := NewCircuitBreakerHook(nil)

	for range breakerFailureThreshold - 1 {
		err := runCommand(hook, errors.New("connection refused"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, circuitbreaker.ErrOpen)
	}

	assert.Equal(t, circuitbreaker.ClosedState, hook.State())
}

func TestCircuitBreakerHook_OpensAndFailsFast(t *testing.T) {
	redisMetrics := metrics.NewRedisMetrics(prometheus.NewRegistry())
	hook := NewCircuitBreakerHook(redisMetrics)

	for range breakerFailureThreshold {
		_ = runCommand(hook, errors.New("connection timeout"))
	}
	require.Equal(t, circuitbreaker.OpenState, hook.State())

	called := false
	ctx := context.Background()
	process := hook.ProcessHook(func(context.Context, goredis.Cmder) error {
		called = true
		return nil
	})
	err := process(ctx, goredis.NewStringCmd(ctx, "get", "impact:status"))

	require.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.False(t, called)
	assert.Equal(t, 2.0, testutil.ToFloat64(redisMetrics.CircuitBreakerState))
	assert.Equal(t, 1.0, testutil.ToFloat64(redisMetrics.CircuitBreakerChanges.WithLabelValues(circuitbreaker.OpenState.String())))
}

func TestCircuitBreakerHook_RecoversAfterDelay(t *testing.T) {
	hook := newCircuitBreakerHook(nil, 20*time.Millisecond)

	for range breakerFailureThreshold {
		_ = runCommand(hook, errors.New("connection timeout"))
	}
	require.Equal(t, circuitbreaker.OpenState, hook.State())

	assert.Eventually(t, func() bool {
		return runCommand(hook, nil) == nil
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, circuitbreaker.ClosedState, hook.State())
}

func TestCircuitBreakerHook_Pipeline(t *testing.T) {
	hook := NewCircuitBreakerHook(nil)
	ctx := context.Background()

	pipeline := hook.ProcessPipelineHook(func(context.Context, []goredis.Cmder) error {
		return errors.New("broken pipe")
	})
	for range breakerFailureThreshold {
		_ = pipeline(ctx, nil)
	}

	err := pipeline(ctx, nil)
	require.ErrorIs(t, err, circuitbreaker.ErrOpen)
}
