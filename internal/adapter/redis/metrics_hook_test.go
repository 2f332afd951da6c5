package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/pscheid92/impact-snapshot/internal/adapter/metrics"
)

func TestMetricsHook_CountsOutcomes(t *testing.T) {
	redisMetrics := metrics.NewRedisMetrics(prometheus.NewRegistry())
	hook := NewMetricsHook(redisMetrics)
	ctx := context.Background()

	results := []error{nil, goredis.Nil, errors.New("timeout")}
	for _, result := range results {
		process := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return result })
		_ = process(ctx, goredis.NewStringCmd(ctx, "get", "impact:status"))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(redisMetrics.OpsTotal.WithLabelValues("get", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(redisMetrics.OpsTotal.WithLabelValues("get", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(redisMetrics.OpDuration))
}

func TestMetricsHook_Pipeline(t *testing.T) {
	redisMetrics := metrics.NewRedisMetrics(prometheus.NewRegistry())
	hook := NewMetricsHook(redisMetrics)

	pipeline := hook.ProcessPipelineHook(func(context.Context, []goredis.Cmder) error { return nil })
	assert.NoError(t, pipeline(context.Background(), nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(redisMetrics.OpsTotal.WithLabelValues("pipeline", "success")))
}
