package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/pscheid92/impact-snapshot/internal/broadcast"
)

const (
	pongWait        = 60 * time.Second
	maxMessageBytes = 512
	pingMessage     = "ping"
)

func (s *Server) registerWebSocketRoutes() {
	s.echo.GET("/ws", s.handleWebSocket)
	s.echo.GET("/ws/periodic", s.handleWebSocketPeriodic)
}

// handleWebSocket joins the broadcast set. Each "ping" text frame is answered with
// exactly one snapshot; state changes arrive as broadcasts.
func (s *Server) handleWebSocket(c echo.Context) error {
	conn, client, release, err := s.accept(c)
	if err != nil || conn == nil {
		return err
	}
	defer release()

	s.readLoop(c.Request().Context(), conn, client)
	return nil
}

// handleWebSocketPeriodic joins the broadcast set and additionally pushes a snapshot
// immediately and then every push interval.
func (s *Server) handleWebSocketPeriodic(c echo.Context) error {
	conn, client, release, err := s.accept(c)
	if err != nil || conn == nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	go func() {
		defer cancel()
		s.readLoop(ctx, conn, client)
	}()

	if err := s.hub.RunPeriodic(ctx, client, s.config.PushInterval, s.app.CurrentSnapshot); err != nil {
		slog.DebugContext(ctx, "Periodic push stopped", "client_id", client.ID().String(), "error", err)
	}
	return nil
}

// accept enforces the per-IP limit, upgrades the request and registers the connection.
// A nil conn with a nil error means the handshake failed and the response is already
// written or the connection closed. release undoes the registration.
func (s *Server) accept(c echo.Context) (*websocket.Conn, *broadcast.Client, func(), error) {
	ctx := c.Request().Context()
	ip := c.RealIP()

	if !s.ipLimiter.acquire(ip) {
		slog.WarnContext(ctx, "WebSocket rejected: per-IP limit reached", "client_ip", ip)
		return nil, nil, nil, echo.NewHTTPError(http.StatusTooManyRequests, "too many connections from this address")
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.ipLimiter.release(ip)
		slog.DebugContext(ctx, "WebSocket upgrade failed", "error", err)
		return nil, nil, nil, nil
	}

	client, err := s.hub.Register(conn)
	if err != nil {
		s.ipLimiter.release(ip)
		if errors.Is(err, broadcast.ErrTooManyConnections) {
			slog.WarnContext(ctx, "WebSocket rejected", "client_ip", ip, "error", err)
		}
		return nil, nil, nil, nil
	}

	slog.InfoContext(ctx, "WebSocket connected", "client_id", client.ID().String(), "path", c.Path())
	release := func() {
		s.hub.Unregister(client)
		s.ipLimiter.release(ip)
	}
	return conn, client, release, nil
}

// readLoop reads until the peer goes away. Pongs extend the read deadline.
func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, client *broadcast.Client) {
	conn.SetReadLimit(maxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.DebugContext(ctx, "WebSocket read failed", "client_id", client.ID().String(), "error", err)
			}
			slog.InfoContext(ctx, "WebSocket disconnected", "client_id", client.ID().String())
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if messageType != websocket.TextMessage || string(data) != pingMessage {
			continue
		}

		snapshot, err := s.app.Snapshot(ctx)
		if err != nil {
			slog.WarnContext(ctx, "Snapshot unavailable for ping", "client_id", client.ID().String(), "error", err)
			continue
		}
		if err := s.hub.Push(ctx, client, snapshot); err != nil {
			return
		}
	}
}
