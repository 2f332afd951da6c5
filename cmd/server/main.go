package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/impact-snapshot/internal/adapter/httpserver"
	"github.com/pscheid92/impact-snapshot/internal/adapter/metrics"
	"github.com/pscheid92/impact-snapshot/internal/adapter/redis"
	"github.com/pscheid92/impact-snapshot/internal/app"
	"github.com/pscheid92/impact-snapshot/internal/broadcast"
	"github.com/pscheid92/impact-snapshot/internal/domain"
	"github.com/pscheid92/impact-snapshot/internal/platform/config"
	"github.com/pscheid92/impact-snapshot/internal/platform/logging"
	"github.com/pscheid92/impact-snapshot/internal/platform/retry"
	"github.com/pscheid92/impact-snapshot/internal/platform/version"
)

const redisConnectTimeout = 10 * time.Second

var redisConnectPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Redis not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, broadcaster *broadcast.Broadcaster, stopRelay context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopRelay()
		broadcaster.Stop()

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(clock clockwork.Clock, cfg *config.Config, m *metrics.Metrics) *goredis.Client {
	var client *goredis.Client
	err := retry.Do(context.Background(), clock, redisConnectPolicy, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
		defer cancel()

		c, err := redis.NewClient(ctx, cfg.RedisURL, m.Redis)
		if errors.Is(err, redis.ErrInvalidURL) {
			return retry.Permanent(err)
		}
		client = c
		return err
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", info.Version, "commit", info.Commit)

	m := metrics.New()
	broadcaster := broadcast.NewBroadcaster(clock, m.WebSocket, cfg.MaxWebSocketConnections)

	var (
		store        domain.StateStore
		publisher    domain.StatusPublisher
		relay        *redis.Relay
		healthChecks []httpserver.HealthCheck
	)
	if cfg.RedisURL != "" {
		redisClient := setupRedis(clock, cfg, m)
		defer func() { _ = redisClient.Close() }()

		store = redis.NewStateStore(redisClient)
		relay = redis.NewRelay(redisClient)
		publisher = relay
		healthChecks = append(healthChecks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
		slog.Info("Using Redis state store", "instance_id", relay.InstanceID())
	} else {
		store = app.NewMemoryStateStore()
		slog.Info("Using in-memory state store")
	}

	appSvc := app.NewService(store, broadcaster, publisher, m.State, clock, cfg.SnapshotSettings())

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	if relay != nil {
		go func() {
			if err := relay.Run(relayCtx, appSvc.HandleRemoteChange); err != nil {
				slog.Error("Status relay stopped", "error", err)
			}
		}()
	}

	srv := httpserver.NewServer(cfg, appSvc, broadcaster, m, healthChecks, clock)

	done := runGracefulShutdown(cfg, srv, broadcaster, stopRelay)

	slog.Info("Server starting", "port", cfg.Port, "rollback_url", cfg.RollbackURL)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
