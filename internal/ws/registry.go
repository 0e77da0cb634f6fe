package ws

import (
	"sync"

	"nhooyr.io/websocket"

	"github.com/keerthanachowdary21/Live-Video-Calls/pkg/metrics"
)

// ConnRegistry exclusively owns every live Conn of the process. Teardown
// goes through Remove, which succeeds once per connection.
type ConnRegistry struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{conns: map[string]*Conn{}}
}

// Add registers c and opens it
func (r *ConnRegistry) Add(c *Conn) {
	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()
	c.open()
	metrics.ConnectionsActive.Inc()
}

// Remove unregisters c and marks it closed. Only the first call for a
// given connection returns true.
func (r *ConnRegistry) Remove(c *Conn) bool {
	r.mu.Lock()
	cur, ok := r.conns[c.id]
	if ok && cur == c {
		delete(r.conns, c.id)
	}
	r.mu.Unlock()
	if !ok || cur != c {
		return false
	}
	c.markClosed()
	metrics.ConnectionsActive.Dec()
	return true
}

func (r *ConnRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Drain asks every connection to close with going-away. Each connection's
// own receive loop performs the teardown.
func (r *ConnRegistry) Drain() int {
	r.mu.RLock()
	conns := make([]*Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		c.Shutdown(websocket.StatusGoingAway, "server shutting down")
	}
	return len(conns)
}
