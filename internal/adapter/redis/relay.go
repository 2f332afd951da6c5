package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/impact-snapshot/internal/domain"
)

const statusChannel = "impact:status-changed"

// StatusChange is the message published on the status channel.
type StatusChange struct {
	InstanceID string        `json:"instance_id"`
	Status     domain.Status `json:"status"`
}

// ChangeHandler is called for every change announced by another instance.
type ChangeHandler func(ctx context.Context, status domain.Status)

// Relay announces local status changes and delivers remote ones. Each process gets its
// own instance id so it can skip its own messages.
type Relay struct {
	rdb        *goredis.Client
	instanceID string
	ready      chan struct{}
}

var _ domain.StatusPublisher = (*Relay)(nil)

func NewRelay(rdb *goredis.Client) *Relay {
	return &Relay{
		rdb:        rdb,
		instanceID: uuid.NewString(),
		ready:      make(chan struct{}),
	}
}

// InstanceID identifies this process on the channel.
func (r *Relay) InstanceID() string { return r.instanceID }

// Ready is closed once Run has an active subscription.
func (r *Relay) Ready() <-chan struct{} { return r.ready }

func (r *Relay) PublishStatus(ctx context.Context, status domain.Status) error {
	data, err := json.Marshal(StatusChange{InstanceID: r.instanceID, Status: status})
	if err != nil {
		return fmt.Errorf("failed to marshal status change: %w", err)
	}
	if err := r.rdb.Publish(ctx, statusChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish status change: %w", err)
	}
	return nil
}

// Run subscribes to the status channel and calls handle for every change published by
// another instance. It blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, handle ChangeHandler) error {
	sub := r.rdb.Subscribe(ctx, statusChannel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", statusChannel, err)
	}
	close(r.ready)
	slog.Info("Status relay subscribed", "channel", statusChannel, "instance_id", r.instanceID)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.dispatch(ctx, msg.Payload, handle)
		}
	}
}

func (r *Relay) dispatch(ctx context.Context, payload string, handle ChangeHandler) {
	var change StatusChange
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		slog.WarnContext(ctx, "Discarding malformed status change", "error", err)
		return
	}
	if change.InstanceID == r.instanceID {
		return
	}
	if !change.Status.Valid() {
		slog.WarnContext(ctx, "Discarding status change with invalid status", "status", string(change.Status))
		return
	}
	handle(ctx, change.Status)
}
