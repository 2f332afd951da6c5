package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/impact-snapshot/internal/adapter/metrics"
	"github.com/pscheid92/impact-snapshot/internal/app"
	"github.com/pscheid92/impact-snapshot/internal/broadcast"
	"github.com/pscheid92/impact-snapshot/internal/domain"
	"github.com/pscheid92/impact-snapshot/internal/platform/config"
)

type appService interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
	CurrentSnapshot(ctx context.Context) (any, error)
	InjectError(ctx context.Context, req app.InjectRequest) (app.InjectResult, error)
	Rollback(ctx context.Context) (app.RollbackResult, error)
}

type connectionHub interface {
	Register(conn broadcast.Conn) (*broadcast.Client, error)
	Unregister(client *broadcast.Client)
	Push(ctx context.Context, client *broadcast.Client, v any) error
	RunPeriodic(ctx context.Context, client *broadcast.Client, interval time.Duration, source broadcast.SnapshotSource) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	app     appService
	hub     connectionHub
	metrics *metrics.Metrics

	upgrader     websocket.Upgrader
	ipLimiter    *ipConnectionLimiter
	healthChecks []HealthCheck
	clock        clockwork.Clock
	startTime    time.Time
}

// NewServer wires routes and middleware. m may be nil, which disables /metrics and
// request metrics.
func NewServer(cfg *config.Config, app appService, hub connectionHub, m *metrics.Metrics, healthChecks []HealthCheck, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		app:          app,
		hub:          hub,
		metrics:      m,
		healthChecks: healthChecks,
		clock:        clock,
		startTime:    clock.Now(),
		ipLimiter:    newIPConnectionLimiter(cfg.MaxConnectionsPerIP),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     NewCheckOrigin(cfg.CORSAllowOrigins, cfg.IsDevelopment()),
		},
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}
