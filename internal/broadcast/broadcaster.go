package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/pscheid92/impact-snapshot/internal/adapter/metrics"
	"github.com/pscheid92/impact-snapshot/internal/domain"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultPingInterval = 30 * time.Second
	maxConcurrentWrites = 64
	shutdownReason      = "Server shutting down"

	pathBroadcast = "broadcast"
	pathDirect    = "direct"
	pathPeriodic  = "periodic"
)

// Broadcaster manages the set of open push connections.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	clock        clockwork.Clock
	wsMetrics    *metrics.WebSocketMetrics
	maxClients   int
	writeTimeout time.Duration
	pingInterval time.Duration
}

var _ domain.SnapshotBroadcaster = (*Broadcaster)(nil)

// NewBroadcaster creates an empty connection set.
// maxClients bounds the set; wsMetrics may be nil.
func NewBroadcaster(clock clockwork.Clock, wsMetrics *metrics.WebSocketMetrics, maxClients int) *Broadcaster {
	return &Broadcaster{
		clients:      make(map[*Client]struct{}),
		clock:        clock,
		wsMetrics:    wsMetrics,
		maxClients:   maxClients,
		writeTimeout: defaultWriteTimeout,
		pingInterval: defaultPingInterval,
	}
}

// Register adds a connection whose handshake has completed. When the set is full the
// connection is closed and ErrTooManyConnections returned.
func (b *Broadcaster) Register(conn Conn) (*Client, error) {
	client := newClient(conn, b.writeTimeout)

	b.mu.Lock()
	if len(b.clients) >= b.maxClients {
		b.mu.Unlock()
		slog.Warn("Rejecting client: max connections reached", "max_clients", b.maxClients)
		if b.wsMetrics != nil {
			b.wsMetrics.RejectedConnections.Inc()
		}
		_ = conn.Close()
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManyConnections, b.maxClients)
	}
	client.open()
	b.clients[client] = struct{}{}
	total := len(b.clients)
	b.mu.Unlock()

	b.setActiveGauge(total)
	slog.Debug("Client registered", "client_id", client.ID().String(), "total_clients", total)

	if b.pingInterval > 0 {
		go b.keepAlive(client)
	}
	return client, nil
}

// Unregister removes and closes a client. Calling it again is a no-op.
func (b *Broadcaster) Unregister(client *Client) {
	b.mu.Lock()
	_, member := b.clients[client]
	delete(b.clients, client)
	total := len(b.clients)
	b.mu.Unlock()

	client.close("")

	if member {
		b.setActiveGauge(total)
		slog.Debug("Client unregistered", "client_id", client.ID().String(), "remaining_clients", total)
	}
}

// ClientCount returns the size of the connection set.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast serializes v once and delivers it to every member. Members whose delivery
// fails with ErrConnectionLost are unregistered; the failure never reaches the caller.
func (b *Broadcaster) Broadcast(ctx context.Context, v any) domain.BroadcastResult {
	start := b.clock.Now()

	data, err := json.Marshal(v)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to marshal broadcast message", "error", err)
		return domain.BroadcastResult{}
	}

	members := b.members()

	var (
		delivered atomic.Int64
		lostMu    sync.Mutex
		lost      []*Client
	)

	var g errgroup.Group
	g.SetLimit(maxConcurrentWrites)
	for _, client := range members {
		g.Go(func() error {
			err := client.Send(ctx, data)
			switch {
			case err == nil:
				delivered.Add(1)
			case errors.Is(err, ErrConnectionLost):
				lostMu.Lock()
				lost = append(lost, client)
				lostMu.Unlock()
			case errors.Is(err, ErrClientClosed):
				// Unregistered while the fan-out was running.
			default:
				slog.WarnContext(ctx, "Push failed", "client_id", client.ID().String(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, client := range lost {
		slog.WarnContext(ctx, "Dropping connection after failed push", "client_id", client.ID().String())
		b.Unregister(client)
	}

	result := domain.BroadcastResult{Delivered: int(delivered.Load()), Dropped: len(lost)}

	if b.wsMetrics != nil {
		b.wsMetrics.MessagesPublished.WithLabelValues(pathBroadcast).Add(float64(result.Delivered))
		b.wsMetrics.ConnectionsDropped.Add(float64(result.Dropped))
		b.wsMetrics.BroadcastDuration.Observe(b.clock.Since(start).Seconds())
	}

	slog.DebugContext(ctx, "Broadcast complete", "recipients", len(members), "delivered", result.Delivered, "dropped", result.Dropped)
	return result
}

// Push delivers v to a single client, unregistering it when the connection is lost.
func (b *Broadcaster) Push(ctx context.Context, client *Client, v any) error {
	return b.push(ctx, client, v, pathDirect)
}

func (b *Broadcaster) push(ctx context.Context, client *Client, v any, path string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}

	if err := client.Send(ctx, data); err != nil {
		if errors.Is(err, ErrConnectionLost) {
			slog.WarnContext(ctx, "Dropping connection after failed push", "client_id", client.ID().String(), "path", path)
			if b.wsMetrics != nil {
				b.wsMetrics.ConnectionsDropped.Inc()
			}
			b.Unregister(client)
		}
		return err
	}

	if b.wsMetrics != nil {
		b.wsMetrics.MessagesPublished.WithLabelValues(path).Inc()
	}
	return nil
}

// Stop closes every connection with a close frame and empties the set.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	members := make([]*Client, 0, len(b.clients))
	for client := range b.clients {
		members = append(members, client)
	}
	clear(b.clients)
	b.mu.Unlock()

	slog.Info("Broadcaster shutting down", "total_clients", len(members))

	var wg sync.WaitGroup
	for _, client := range members {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.close(shutdownReason)
		}()
	}
	wg.Wait()

	b.setActiveGauge(0)
	slog.Info("Broadcaster shutdown complete", "disconnected_clients", len(members))
}

func (b *Broadcaster) members() []*Client {
	b.mu.RLock()
	defer b.mu.RUnlock()

	members := make([]*Client, 0, len(b.clients))
	for client := range b.clients {
		members = append(members, client)
	}
	return members
}

// keepAlive pings the client until it closes. A failed ping drops the client.
func (b *Broadcaster) keepAlive(client *Client) {
	ticker := b.clock.NewTicker(b.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-client.Done():
			return
		case <-ticker.Chan():
			if err := client.ping(context.Background()); err != nil {
				if errors.Is(err, ErrConnectionLost) {
					slog.Debug("Ping failed, dropping client", "client_id", client.ID().String(), "error", err)
					b.Unregister(client)
				}
				return
			}
		}
	}
}

func (b *Broadcaster) setActiveGauge(n int) {
	if b.wsMetrics != nil {
		b.wsMetrics.ActiveConnections.Set(float64(n))
	}
}
