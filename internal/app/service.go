package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/pscheid92/impact-snapshot/internal/adapter/metrics"
	"github.com/pscheid92/impact-snapshot/internal/domain"
)

const (
	sourceLocal  = "local"
	sourceRemote = "remote"

	rollbackMessage = "Rollback triggered successfully"
)

// InjectRequest is the input of InjectError. Empty fields take their defaults.
type InjectRequest struct {
	Endpoint  string
	ErrorType string
}

// InjectResult is returned after a successful injection.
type InjectResult struct {
	Message  string        `json:"message"`
	Status   domain.Status `json:"status"`
	Endpoint string        `json:"endpoint"`
}

// RollbackResult is returned after a successful rollback.
type RollbackResult struct {
	Message   string        `json:"message"`
	Status    domain.Status `json:"status"`
	Timestamp string        `json:"timestamp"`
}

// Service is the application layer. It is the only component that touches the store,
// the broadcaster and the publisher together.
type Service struct {
	store        domain.StateStore
	broadcaster  domain.SnapshotBroadcaster
	publisher    domain.StatusPublisher
	stateMetrics *metrics.StateMetrics
	clock        clockwork.Clock
	settings     domain.SnapshotSettings

	// mutateMu keeps write-then-broadcast sequences in write order, so the last
	// broadcast always matches the final status.
	mutateMu   sync.Mutex
	statusRead singleflight.Group
}

// NewService creates the application layer service.
// publisher and stateMetrics may be nil.
func NewService(store domain.StateStore, broadcaster domain.SnapshotBroadcaster, publisher domain.StatusPublisher, stateMetrics *metrics.StateMetrics, clock clockwork.Clock, settings domain.SnapshotSettings) *Service {
	return &Service{
		store:        store,
		broadcaster:  broadcaster,
		publisher:    publisher,
		stateMetrics: stateMetrics,
		clock:        clock,
		settings:     settings,
	}
}

// Snapshot derives the snapshot for the current status.
func (s *Service) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	status, err := s.currentStatus(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.DeriveSnapshot(status, s.clock.Now(), s.settings)
}

// CurrentSnapshot adapts Snapshot to the shape the periodic pusher expects.
func (s *Service) CurrentSnapshot(ctx context.Context) (any, error) {
	return s.Snapshot(ctx)
}

// InjectError sets the status named by req.ErrorType (critical when empty) and
// broadcasts the new snapshot once.
func (s *Service) InjectError(ctx context.Context, req InjectRequest) (InjectResult, error) {
	errorType := strings.TrimSpace(req.ErrorType)
	if errorType == "" {
		errorType = string(domain.StatusCritical)
	}
	status, err := domain.ParseStatus(errorType)
	if err != nil {
		return InjectResult{}, err
	}

	endpoint := req.Endpoint
	if endpoint == "" {
		endpoint = domain.DefaultEndpoint
	}

	if err := s.apply(ctx, status); err != nil {
		return InjectResult{}, err
	}

	slog.InfoContext(ctx, "Error injected", "status", string(status), "endpoint", endpoint)
	return InjectResult{
		Message:  "Error injected: " + string(status),
		Status:   status,
		Endpoint: endpoint,
	}, nil
}

// Rollback restores the healthy status and broadcasts once. Rolling back an already
// healthy system is allowed and still broadcasts.
func (s *Service) Rollback(ctx context.Context) (RollbackResult, error) {
	if err := s.apply(ctx, domain.StatusHealthy); err != nil {
		return RollbackResult{}, err
	}

	slog.InfoContext(ctx, "Rollback triggered")
	return RollbackResult{
		Message:   rollbackMessage,
		Status:    domain.StatusHealthy,
		Timestamp: domain.FormatTimestamp(s.clock.Now()),
	}, nil
}

// HandleRemoteChange broadcasts a change announced by another instance. The change is
// already stored, so it is neither written nor re-published.
func (s *Service) HandleRemoteChange(ctx context.Context, status domain.Status) {
	s.mutateMu.Lock()
	defer s.mutateMu.Unlock()

	snapshot, err := domain.DeriveSnapshot(status, s.clock.Now(), s.settings)
	if err != nil {
		slog.WarnContext(ctx, "Ignoring remote change with invalid status", "status", string(status), "error", err)
		return
	}

	s.observe(status, sourceRemote)
	result := s.broadcaster.Broadcast(ctx, snapshot)
	slog.DebugContext(ctx, "Remote change broadcast", "status", string(status), "delivered", result.Delivered, "dropped", result.Dropped)
}

func (s *Service) apply(ctx context.Context, status domain.Status) error {
	s.mutateMu.Lock()
	defer s.mutateMu.Unlock()

	snapshot, err := domain.DeriveSnapshot(status, s.clock.Now(), s.settings)
	if err != nil {
		return err
	}

	if err := s.store.SetStatus(ctx, status); err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	s.observe(status, sourceLocal)

	// The change is stored; it reaches every connection and instance even if the
	// caller has gone away.
	ctx = context.WithoutCancel(ctx)

	result := s.broadcaster.Broadcast(ctx, snapshot)
	if result.Dropped > 0 {
		slog.InfoContext(ctx, "Broadcast dropped connections", "dropped", result.Dropped, "delivered", result.Delivered)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishStatus(ctx, status); err != nil {
			slog.WarnContext(ctx, "Failed to publish status change", "status", string(status), "error", err)
		}
	}
	return nil
}

// currentStatus collapses concurrent reads into one store call.
func (s *Service) currentStatus(ctx context.Context) (domain.Status, error) {
	v, err, _ := s.statusRead.Do("status", func() (any, error) {
		// The flight is shared, so it must not end with the first caller's context.
		return s.store.Status(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", fmt.Errorf("failed to read status: %w", err)
	}
	return v.(domain.Status), nil
}

func (s *Service) observe(status domain.Status, source string) {
	if s.stateMetrics != nil {
		s.stateMetrics.Observe(status, source)
	}
}
