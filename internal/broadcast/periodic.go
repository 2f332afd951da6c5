package broadcast

import (
	"context"
	"log/slog"
	"time"
)

// SnapshotSource produces the value for one periodic push.
type SnapshotSource func(ctx context.Context) (any, error)

// RunPeriodic pushes a fresh value from source to client immediately and then every
// interval. It returns nil when ctx ends or the client closes, and the push error when
// a push fails; it never retries a failed push.
func (b *Broadcaster) RunPeriodic(ctx context.Context, client *Client, interval time.Duration, source SnapshotSource) error {
	ticker := b.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-client.Done():
			return nil
		default:
		}

		v, err := source(ctx)
		if err != nil {
			slog.WarnContext(ctx, "Periodic push skipped: snapshot unavailable", "client_id", client.ID().String(), "error", err)
		} else if err := b.push(ctx, client, v, pathPeriodic); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-client.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}
