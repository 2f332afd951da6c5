package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	// ErrConnectionLost marks a push whose target can no longer be reached.
	ErrConnectionLost = errors.New("connection lost")
	// ErrClientClosed is returned for pushes to a client that already left the set.
	ErrClientClosed = errors.New("client closed")
	// ErrTooManyConnections is returned by Register when the set is full.
	ErrTooManyConnections = errors.New("too many connections")
)

// Conn is the subset of *websocket.Conn the broadcaster writes through.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Client is one push connection.
type Client struct {
	id           uuid.UUID
	conn         Conn
	writeTimeout time.Duration

	state     atomic.Int32
	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn Conn, writeTimeout time.Duration) *Client {
	return &Client{
		id:           uuid.New(),
		conn:         conn,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

func (c *Client) ID() uuid.UUID { return c.id }

func (c *Client) State() State { return State(c.state.Load()) }

// Done is closed once the client reaches StateClosed.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) open() bool {
	return c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

// Send writes one text frame. Pushes to a closed client are no-ops returning
// ErrClientClosed; write failures wrap ErrConnectionLost.
func (c *Client) Send(ctx context.Context, data []byte) error {
	if c.State() != StateOpen {
		return ErrClientClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("push cancelled: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	// Re-check under the lock: close may have won the race.
	if c.State() != StateOpen {
		return ErrClientClosed
	}

	if err := c.conn.SetWriteDeadline(c.deadline(ctx)); err != nil {
		return fmt.Errorf("%w: set write deadline: %w", ErrConnectionLost, err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	return nil
}

// ping writes a ping control frame; control frames may be written concurrently with Send.
func (c *Client) ping(ctx context.Context) error {
	if c.State() != StateOpen {
		return ErrClientClosed
	}
	if err := c.conn.WriteControl(websocket.PingMessage, nil, c.deadline(ctx)); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrConnectionLost, err)
	}
	return nil
}

func (c *Client) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		return d
	}
	return deadline
}

// close moves the client to StateClosed. A non-empty reason is sent to the peer in a
// close frame first.
func (c *Client) close(reason string) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)

		if reason != "" {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
		}
		_ = c.conn.Close()
	})
}
