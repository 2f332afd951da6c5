package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/impact-snapshot/internal/adapter/metrics"
)

// ErrInvalidURL is returned by NewClient when the URL cannot be parsed. Retrying will not help.
var ErrInvalidURL = errors.New("invalid redis URL")

// NewClient parses redisURL (e.g. "redis://localhost:6379"), installs the metrics and
// circuit breaker hooks, and verifies the connection. redisMetrics may be nil.
func NewClient(ctx context.Context, redisURL string, redisMetrics *metrics.RedisMetrics) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}

	rdb := goredis.NewClient(opts)
	if redisMetrics != nil {
		rdb.AddHook(NewMetricsHook(redisMetrics))
	}
	rdb.AddHook(NewCircuitBreakerHook(redisMetrics))

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}
