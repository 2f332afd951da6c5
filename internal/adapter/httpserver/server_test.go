package httpserver

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/pscheid92/impact-snapshot/internal/adapter/metrics"
	"github.com/pscheid92/impact-snapshot/internal/app"
	"github.com/pscheid92/impact-snapshot/internal/broadcast"
	"github.com/pscheid92/impact-snapshot/internal/domain"
	"github.com/pscheid92/impact-snapshot/internal/platform/config"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC)

type testEnv struct {
	srv         *Server
	svc         *app.Service
	store       *app.MemoryStateStore
	broadcaster *broadcast.Broadcaster
	metrics     *metrics.Metrics
	clock       *clockwork.FakeClock
}

type testOption func(*config.Config, *[]HealthCheck)

func withHealthChecks(checks ...HealthCheck) testOption {
	return func(_ *config.Config, hc *[]HealthCheck) { *hc = checks }
}

func withConfig(mutate func(*config.Config)) testOption {
	return func(cfg *config.Config, _ *[]HealthCheck) { mutate(cfg) }
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                  "test",
		Port:                    "0",
		RollbackURL:             "https://orkes.io/demo-rollback",
		SnapshotEndpoint:        "/checkout",
		PushInterval:            15 * time.Second,
		MaxWebSocketConnections: 10,
		MaxConnectionsPerIP:     10,
		CORSAllowOrigins:        []string{"*"},
		InjectRateLimit:         1000,
		InjectRateBurst:         1000,
	}
}

// newTestEnv wires the real service, store and broadcaster behind the server, driven by
// a fake clock.
func newTestEnv(t *testing.T, opts ...testOption) *testEnv {
	t.Helper()

	cfg := testConfig()
	var checks []HealthCheck
	for _, opt := range opts {
		opt(cfg, &checks)
	}

	clock := clockwork.NewFakeClockAt(testNow)
	m := metrics.New()
	store := app.NewMemoryStateStore()
	broadcaster := broadcast.NewBroadcaster(clock, m.WebSocket, cfg.MaxWebSocketConnections)
	t.Cleanup(broadcaster.Stop)

	svc := app.NewService(store, broadcaster, nil, m.State, clock, cfg.SnapshotSettings())
	srv := NewServer(cfg, svc, broadcaster, m, checks, clock)

	return &testEnv{srv: srv, svc: svc, store: store, broadcaster: broadcaster, metrics: m, clock: clock}
}

// startHTTP serves the router on a real listener, for WebSocket tests.
func (env *testEnv) startHTTP(t *testing.T) (baseURL, wsURL string) {
	t.Helper()
	ts := httptest.NewServer(env.srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func (env *testEnv) status(t *testing.T) domain.Status {
	t.Helper()
	status, err := env.store.Status(context.Background())
	if err != nil {
		t.Fatalf("failed to read status: %v", err)
	}
	return status
}
