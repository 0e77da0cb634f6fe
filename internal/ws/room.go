package ws

import (
	"sync"

	"github.com/keerthanachowdary21/Live-Video-Calls/pkg/metrics"
)

// roomSet is one room's membership. A set marked dead has been pruned from
// the registry and must not gain members.
type roomSet struct {
	mu      sync.Mutex
	members map[*Conn]struct{}
	dead    bool
}

// RoomRegistry maps room id to its member connections. Each room has its
// own lock; the registry lock only guards the map of rooms. Lock order is
// roomSet.mu before RoomRegistry.mu.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*roomSet
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: map[string]*roomSet{}}
}

// entry returns the live set for roomID, creating it if needed
func (r *RoomRegistry) entry(roomID string) *roomSet {
	r.mu.RLock()
	set := r.rooms[roomID]
	r.mu.RUnlock()
	if set != nil {
		return set
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	set = r.rooms[roomID]
	if set == nil {
		set = &roomSet{members: map[*Conn]struct{}{}}
		r.rooms[roomID] = set
		metrics.RoomsActive.Inc()
	}
	return set
}

func (r *RoomRegistry) lookup(roomID string) *roomSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID]
}

// Join adds c to roomID and returns the new participant count. A connection
// belongs to at most one room, so joining moves it out of its previous one.
func (r *RoomRegistry) Join(roomID string, c *Conn) int {
	if prev := c.setRoom(roomID); prev != "" && prev != roomID {
		r.leave(prev, c)
	}
	for {
		set := r.entry(roomID)
		set.mu.Lock()
		if set.dead {
			set.mu.Unlock()
			continue
		}
		set.members[c] = struct{}{}
		n := len(set.members)
		set.mu.Unlock()
		return n
	}
}

// Leave removes c from roomID. Removing an absent connection is a no-op.
// It returns the remaining count and whether c was a member.
func (r *RoomRegistry) Leave(roomID string, c *Conn) (int, bool) {
	c.clearRoom(roomID)
	return r.leave(roomID, c)
}

func (r *RoomRegistry) leave(roomID string, c *Conn) (int, bool) {
	set := r.lookup(roomID)
	if set == nil {
		return 0, false
	}

	set.mu.Lock()
	defer set.mu.Unlock()
	if _, ok := set.members[c]; !ok {
		return len(set.members), false
	}
	delete(set.members, c)
	n := len(set.members)
	if n == 0 {
		set.dead = true
		r.mu.Lock()
		if r.rooms[roomID] == set {
			delete(r.rooms, roomID)
			metrics.RoomsActive.Dec()
		}
		r.mu.Unlock()
	}
	return n, true
}

// Audience returns a point-in-time copy of roomID's members minus excluding
func (r *RoomRegistry) Audience(roomID string, excluding *Conn) []*Conn {
	set := r.lookup(roomID)
	if set == nil {
		return nil
	}

	set.mu.Lock()
	defer set.mu.Unlock()
	out := make([]*Conn, 0, len(set.members))
	for c := range set.members {
		if c != excluding {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the participant count, zero for unknown rooms
func (r *RoomRegistry) Count(roomID string) int {
	set := r.lookup(roomID)
	if set == nil {
		return 0
	}
	set.mu.Lock()
	defer set.mu.Unlock()
	return len(set.members)
}

// Len is the number of rooms with at least one member
func (r *RoomRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
