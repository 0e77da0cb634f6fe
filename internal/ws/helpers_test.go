package ws

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// fakeTransport records writes and feeds reads from a channel.
type fakeTransport struct {
	reads chan Frame

	mu       sync.Mutex
	written  []Frame
	failNext bool
	code     websocket.StatusCode
	closed   chan struct{}
	once     sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{reads: make(chan Frame, 16), closed: make(chan struct{})}
}

func (f *fakeTransport) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case fr, ok := <-f.reads:
		if !ok {
			return 0, nil, io.EOF
		}
		return fr.Type, fr.Data, nil
	case <-f.closed:
		return 0, nil, io.EOF
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (f *fakeTransport) Write(_ context.Context, typ websocket.MessageType, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return io.ErrClosedPipe
	}
	f.written = append(f.written, Frame{Type: typ, Data: p})
	return nil
}

func (f *fakeTransport) Ping(context.Context) error { return nil }

func (f *fakeTransport) Close(code websocket.StatusCode, _ string) error {
	f.once.Do(func() {
		f.mu.Lock()
		f.code = code
		f.mu.Unlock()
		close(f.closed)
	})
	return nil
}

func (f *fakeTransport) frames() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Frame(nil), f.written...)
}

func (f *fakeTransport) closeCode() websocket.StatusCode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code
}

// openConn returns an OPEN connection with no transport, for registry tests
func openConn(id string, queue int) *Conn {
	c := newConn(id, nil, queue)
	c.open()
	return c
}

// drain pops everything queued on c
func drain(c *Conn) []string {
	var out []string
	for {
		select {
		case f := <-c.out:
			out = append(out, string(f.Data))
		default:
			return out
		}
	}
}

func text(s string) Frame { return Frame{Type: websocket.MessageText, Data: []byte(s)} }

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
