package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
)

var (
	ErrConnectionClosed = errors.New("connection is not open")
	ErrSendQueueFull    = errors.New("send queue full")
)

const writeTimeout = 10 * time.Second

// State is the lifecycle of a Conn. Only StateOpen sends or receives.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Frame is one opaque message together with its websocket frame type.
type Frame struct {
	Type websocket.MessageType
	Data []byte
}

// transport is the subset of *websocket.Conn a Conn drives.
type transport interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

// Conn is one live client connection. It owns a bounded send queue that a
// single WriteLoop drains, so frames reach the peer in enqueue order.
type Conn struct {
	id    string
	ws    transport
	out   chan Frame
	state atomic.Int32

	mu     sync.Mutex
	roomID string

	closing   chan struct{}
	closeOnce sync.Once
	code      websocket.StatusCode
	reason    string
}

// Accept upgrades HTTP to websocket (allow all origins)
func Accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionDisabled,
	})
}

// newConn wraps a transport in CONNECTING state with a send queue of size queue
func newConn(id string, ws transport, queue int) *Conn {
	if queue <= 0 {
		queue = 1
	}
	return &Conn{
		id:      id,
		ws:      ws,
		out:     make(chan Frame, queue),
		closing: make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) State() State { return State(c.state.Load()) }

// RoomID returns the room this connection joined, or "" when inert
func (c *Conn) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// setRoom records a new room and returns the previous one
func (c *Conn) setRoom(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.roomID
	c.roomID = id
	return prev
}

// clearRoom forgets the room only if it still is id
func (c *Conn) clearRoom(id string) {
	c.mu.Lock()
	if c.roomID == id {
		c.roomID = ""
	}
	c.mu.Unlock()
}

// open moves CONNECTING to OPEN
func (c *Conn) open() bool {
	return c.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

// Send enqueues f for delivery. It never blocks: a closed connection
// reports ErrConnectionClosed and a full queue drops the frame.
func (c *Conn) Send(f Frame) error {
	if c.State() != StateOpen {
		return ErrConnectionClosed
	}
	select {
	case c.out <- f:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Read blocks until it receives a text/binary message
// Returns false if connection is closed
func (c *Conn) Read(ctx context.Context) (Frame, bool) {
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			return Frame{}, false
		}
		if typ == websocket.MessageText || typ == websocket.MessageBinary {
			return Frame{Type: typ, Data: data}, true
		}
	}
}

// WriteLoop sends outbound frames + periodic pings.
// Exits when ctx is cancelled, a write or ping fails, or Shutdown is
// called, in which case queued frames are flushed before the close frame.
func (c *Conn) WriteLoop(ctx context.Context, ping time.Duration) {
	var tick <-chan time.Time
	if ping > 0 {
		t := time.NewTicker(ping)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case f := <-c.out:
			if err := c.write(ctx, f); err != nil {
				c.Close()
				return
			}
		case <-tick:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Ping(pctx)
			cancel()
			if err != nil {
				c.Close()
				return
			}
		case <-c.closing:
			c.flush(ctx)
			_ = c.ws.Close(c.code, c.reason)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Conn) write(ctx context.Context, f Frame) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.ws.Write(wctx, f.Type, f.Data)
}

// flush writes whatever is already queued
func (c *Conn) flush(ctx context.Context) {
	for {
		select {
		case f := <-c.out:
			if err := c.write(ctx, f); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Shutdown moves OPEN to CLOSING and asks the WriteLoop to flush the queue
// and close with code. Sends after this report ErrConnectionClosed.
func (c *Conn) Shutdown(code websocket.StatusCode, reason string) {
	c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing))
	c.closeOnce.Do(func() {
		c.code, c.reason = code, reason
		close(c.closing)
	})
}

// Close tears the transport down immediately with a normal closure.
func (c *Conn) Close() error {
	c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing))
	c.state.CompareAndSwap(int32(StateConnecting), int32(StateClosing))
	if c.ws == nil {
		return nil
	}
	return c.ws.Close(websocket.StatusNormalClosure, "bye")
}

// markClosed is the terminal transition, done once by the owning registry
func (c *Conn) markClosed() { c.state.Store(int32(StateClosed)) }
