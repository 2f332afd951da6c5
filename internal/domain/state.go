package domain

import "context"

// StateStore holds the current Status. SetStatus overwrites unconditionally; concurrent
// writers race and the last one wins.
type StateStore interface {
	Status(ctx context.Context) (Status, error)
	SetStatus(ctx context.Context, status Status) error
}

// SnapshotBroadcaster pushes a value to every open push connection.
type SnapshotBroadcaster interface {
	Broadcast(ctx context.Context, v any) BroadcastResult
}

// StatusPublisher announces a local status change to other instances.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, status Status) error
}

// BroadcastResult summarises one fan-out.
type BroadcastResult struct {
	Delivered int
	Dropped   int
}
