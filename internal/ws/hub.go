package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
)

// RoomDirectory is the hub's view of durable room records.
type RoomDirectory interface {
	Exists(ctx context.Context, roomID string) (bool, error)
	SyncParticipants(ctx context.Context, roomID string, n int) error
}

type Options struct {
	SendQueue    int           // per-connection queue bound
	ReadLimit    int64         // max inbound message bytes, 0 keeps the library default
	PingInterval time.Duration // 0 disables keepalive pings
	RequireRoom  bool          // reject connections without an existing roomId
	SyncInterval time.Duration // participant count write-back debounce
}

type Hub struct {
	log   *slog.Logger
	dir   RoomDirectory
	opts  Options
	conns *ConnRegistry
	rooms *RoomRegistry
	relay *Relay

	dirtyMu sync.Mutex
	dirty   map[string]struct{} // rooms whose count changed since the last sync

	drainMu  sync.Mutex
	draining bool
	live     sync.WaitGroup // serve calls admitted before draining began
}

// NewHub sets up the relay with its registries. dir may be nil, in which
// case rooms are never checked or synced.
func NewHub(logger *slog.Logger, dir RoomDirectory, opts Options) *Hub {
	if opts.SendQueue <= 0 {
		opts.SendQueue = 256
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = 250 * time.Millisecond
	}
	rooms := NewRoomRegistry()
	return &Hub{
		log:   logger,
		dir:   dir,
		opts:  opts,
		conns: NewConnRegistry(),
		rooms: rooms,
		relay: NewRelay(rooms, logger),
		dirty: map[string]struct{}{},
	}
}

func (h *Hub) Rooms() *RoomRegistry { return h.rooms }

func (h *Hub) Conns() *ConnRegistry { return h.conns }

// Run writes changed participant counts back to the directory until ctx
// is cancelled, then flushes once more.
func (h *Hub) Run(ctx context.Context) {
	if h.dir == nil {
		<-ctx.Done()
		return
	}
	t := time.NewTicker(h.opts.SyncInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			h.syncParticipants(ctx)
		case <-ctx.Done():
			fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			h.syncParticipants(fctx)
			cancel()
			return
		}
	}
}

// Touch marks roomID for the next participant sync, e.g. when its durable
// record appears while members are already attached
func (h *Hub) Touch(roomID string) { h.markDirty(roomID) }

func (h *Hub) markDirty(roomID string) {
	h.dirtyMu.Lock()
	h.dirty[roomID] = struct{}{}
	h.dirtyMu.Unlock()
}

// syncParticipants writes the current count, not the count at mark time,
// so a burst of joins and leaves costs one write per room
func (h *Hub) syncParticipants(ctx context.Context) {
	h.dirtyMu.Lock()
	dirty := h.dirty
	h.dirty = map[string]struct{}{}
	h.dirtyMu.Unlock()

	for roomID := range dirty {
		n := h.rooms.Count(roomID)
		if err := h.dir.SyncParticipants(ctx, roomID, n); err != nil {
			h.log.Warn("room.participants.sync", "room", roomID, "err", err)
			if ctx.Err() == nil {
				h.markDirty(roomID)
			}
		}
	}
}

// ServeWS handles a new /ws connection, optionally bound to ?roomId=
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimSpace(r.URL.Query().Get("roomId"))
	if h.opts.RequireRoom {
		if roomID == "" {
			http.Error(w, "roomId required", http.StatusBadRequest)
			return
		}
		if h.dir != nil {
			ok, err := h.dir.Exists(r.Context(), roomID)
			if err != nil {
				h.log.Error("ws.room.lookup", "room", roomID, "err", err)
				http.Error(w, "room lookup failed", http.StatusInternalServerError)
				return
			}
			if !ok {
				http.Error(w, "room not found", http.StatusNotFound)
				return
			}
		}
	}

	conn, err := Accept(w, r)
	if err != nil {
		h.log.Error("ws.accept", "err", err)
		return
	}
	if h.opts.ReadLimit > 0 {
		conn.SetReadLimit(h.opts.ReadLimit)
	}

	h.serve(r.Context(), newConn(uuid.NewString(), conn, h.opts.SendQueue), roomID)
}

// serve runs one connection's receive loop. Frames from this connection are
// relayed in read order, which gives per-sender FIFO to every recipient.
func (h *Hub) serve(parent context.Context, c *Conn, roomID string) {
	if !h.admit(c) {
		if c.ws != nil {
			_ = c.ws.Close(websocket.StatusGoingAway, "server shutting down")
		}
		c.markClosed()
		h.log.Info("ws.rejected", "conn", c.ID(), "reason", "draining")
		return
	}
	defer h.live.Done()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if roomID != "" {
		h.Join(roomID, c)
	}
	h.log.Info("ws.open", "conn", c.ID(), "room", roomID)

	// Outbound writer
	go c.WriteLoop(ctx, h.opts.PingInterval)

	for {
		f, ok := c.Read(ctx)
		if !ok || c.State() != StateOpen {
			break
		}
		h.relay.Relay(c, f)
	}

	h.teardown(c)
}

// admit registers c unless the hub is draining. Registration and the
// drain snapshot share drainMu, so every admitted connection is drained.
func (h *Hub) admit(c *Conn) bool {
	h.drainMu.Lock()
	defer h.drainMu.Unlock()
	if h.draining {
		return false
	}
	h.live.Add(1)
	h.conns.Add(c)
	return true
}

// Join binds c to roomID, moving it out of any previous room
func (h *Hub) Join(roomID string, c *Conn) int {
	prev := c.RoomID()
	n := h.rooms.Join(roomID, c)
	if prev != "" && prev != roomID {
		h.markDirty(prev)
	}
	h.markDirty(roomID)
	h.log.Debug("room.join", "room", roomID, "conn", c.ID(), "participants", n)
	return n
}

// teardown evicts c from its room before releasing the transport. The
// registry guarantees it runs once per connection.
func (h *Hub) teardown(c *Conn) {
	if !h.conns.Remove(c) {
		return
	}
	if roomID := c.RoomID(); roomID != "" {
		n, _ := h.rooms.Leave(roomID, c)
		h.markDirty(roomID)
		h.log.Debug("room.leave", "room", roomID, "conn", c.ID(), "participants", n)
	}
	_ = c.Close()
	h.log.Info("ws.close", "conn", c.ID())
}

type roomEvent struct {
	Event  string `json:"event"`
	RoomID string `json:"roomId"`
}

// Evict notifies every member of roomID that the room is gone, then closes
// them once their queues flush. Returns the number of members evicted.
func (h *Hub) Evict(roomID string) int {
	notice, _ := json.Marshal(roomEvent{Event: "room.deleted", RoomID: roomID})
	members := h.rooms.Audience(roomID, nil)
	for _, c := range members {
		_ = c.Send(Frame{Type: websocket.MessageText, Data: notice})
		c.Shutdown(websocket.StatusNormalClosure, "room deleted")
	}
	if len(members) > 0 {
		h.log.Info("room.evicted", "room", roomID, "conns", len(members))
	}
	return len(members)
}

// Drain stops admitting connections and closes every live one with
// going-away
func (h *Hub) Drain() int {
	h.drainMu.Lock()
	defer h.drainMu.Unlock()
	h.draining = true
	return h.conns.Drain()
}

// Wait blocks until every connection handler has returned or ctx ends.
// Call it after Drain.
func (h *Hub) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.live.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
