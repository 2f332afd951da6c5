package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/impact-snapshot/internal/domain"
)

func startRelay(t *testing.T, relay *Relay, handle ChangeHandler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx, handle) }()

	select {
	case <-relay.Ready():
	case err := <-done:
		t.Fatalf("relay stopped before subscribing: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not subscribe")
	}

	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestRelay_DeliversToOtherInstances(t *testing.T) {
	client := setupTestClient(t)
	sender := NewRelay(client)
	receiver := NewRelay(client)

	received := make(chan domain.Status, 4)
	startRelay(t, receiver, func(_ context.Context, status domain.Status) { received <- status })

	require.NoError(t, sender.PublishStatus(context.Background(), domain.StatusCritical))

	select {
	case status := <-received:
		assert.Equal(t, domain.StatusCritical, status)
	case <-time.After(5 * time.Second):
		t.Fatal("status change was not relayed")
	}
}

func TestRelay_SkipsOwnMessages(t *testing.T) {
	client := setupTestClient(t)
	relay := NewRelay(client)
	other := NewRelay(client)

	received := make(chan domain.Status, 4)
	startRelay(t, relay, func(_ context.Context, status domain.Status) { received <- status })

	require.NoError(t, relay.PublishStatus(context.Background(), domain.StatusWarning))
	// A message from another instance acts as a barrier: the own message was published first.
	require.NoError(t, other.PublishStatus(context.Background(), domain.StatusHealthy))

	select {
	case status := <-received:
		assert.Equal(t, domain.StatusHealthy, status)
	case <-time.After(5 * time.Second):
		t.Fatal("status change was not relayed")
	}
	assert.Empty(t, received)
}
