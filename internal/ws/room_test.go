package ws

import (
	"fmt"
	"sync"
	"testing"
)

func TestJoinLeaveCount(t *testing.T) {
	r := NewRoomRegistry()
	a, b := openConn("a", 1), openConn("b", 1)

	if n := r.Join("r1", a); n != 1 {
		t.Fatalf("join a: %d", n)
	}
	if n := r.Join("r1", b); n != 2 {
		t.Fatalf("join b: %d", n)
	}
	if n := r.Join("r1", b); n != 2 {
		t.Fatalf("rejoin must not double count: %d", n)
	}
	if got := r.Count("r1"); got != 2 {
		t.Fatalf("count=%d", got)
	}
	if got := r.Count("nope"); got != 0 {
		t.Fatalf("unknown room count=%d", got)
	}

	if n, ok := r.Leave("r1", a); !ok || n != 1 {
		t.Fatalf("leave a: n=%d ok=%v", n, ok)
	}
	if a.RoomID() != "" {
		t.Fatalf("leave should clear the connection's room, got %q", a.RoomID())
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	r := NewRoomRegistry()
	a, b := openConn("a", 1), openConn("b", 1)
	r.Join("r1", a)
	r.Join("r1", b)

	r.Leave("r1", a)
	if n, ok := r.Leave("r1", a); ok || n != 1 {
		t.Fatalf("second leave: n=%d ok=%v", n, ok)
	}
	if got := r.Count("r1"); got != 1 {
		t.Fatalf("count=%d, want 1", got)
	}
	if _, ok := r.Leave("ghost", a); ok {
		t.Fatal("leave on unknown room should be a no-op")
	}
}

func TestEmptyRoomIsPruned(t *testing.T) {
	r := NewRoomRegistry()
	a := openConn("a", 1)
	r.Join("r1", a)
	r.Leave("r1", a)
	if r.Len() != 0 {
		t.Fatalf("rooms=%d, want 0", r.Len())
	}
	if n := r.Join("r1", a); n != 1 {
		t.Fatalf("join after prune: %d", n)
	}
}

func TestJoinMovesBetweenRooms(t *testing.T) {
	r := NewRoomRegistry()
	a := openConn("a", 1)
	r.Join("r1", a)
	r.Join("r2", a)

	if r.Count("r1") != 0 || r.Count("r2") != 1 {
		t.Fatalf("r1=%d r2=%d", r.Count("r1"), r.Count("r2"))
	}
	if a.RoomID() != "r2" {
		t.Fatalf("room=%q", a.RoomID())
	}
}

func TestAudienceIsSnapshotExcludingSender(t *testing.T) {
	r := NewRoomRegistry()
	a, b, c := openConn("a", 1), openConn("b", 1), openConn("c", 1)
	r.Join("r1", a)
	r.Join("r1", b)
	r.Join("r2", c)

	aud := r.Audience("r1", a)
	if len(aud) != 1 || aud[0] != b {
		t.Fatalf("audience=%v", aud)
	}

	// mutating the room does not change an existing snapshot
	r.Leave("r1", b)
	if len(aud) != 1 || aud[0] != b {
		t.Fatal("snapshot changed under mutation")
	}
	if got := r.Audience("r1", a); len(got) != 0 {
		t.Fatalf("audience after leave=%v", got)
	}
	if got := r.Audience("r1", nil); len(got) != 1 {
		t.Fatalf("audience without exclusion=%d, want 1", len(got))
	}
}

func TestConcurrentJoinLeaveKeepsCount(t *testing.T) {
	r := NewRoomRegistry()
	const rooms, perRoom = 4, 50

	conns := make([][]*Conn, rooms)
	var wg sync.WaitGroup
	for i := 0; i < rooms; i++ {
		for j := 0; j < perRoom; j++ {
			c := openConn(fmt.Sprintf("c%d-%d", i, j), 1)
			conns[i] = append(conns[i], c)
			wg.Add(1)
			go func(room string, c *Conn) {
				defer wg.Done()
				r.Join(room, c)
			}(fmt.Sprintf("r%d", i), c)
		}
	}
	wg.Wait()
	for i := 0; i < rooms; i++ {
		if got := r.Count(fmt.Sprintf("r%d", i)); got != perRoom {
			t.Fatalf("r%d count=%d, want %d", i, got, perRoom)
		}
	}

	// leave half, twice each, concurrently with readers
	for i := 0; i < rooms; i++ {
		room := fmt.Sprintf("r%d", i)
		for _, c := range conns[i][:perRoom/2] {
			wg.Add(3)
			go func(c *Conn) { defer wg.Done(); r.Leave(room, c) }(c)
			go func(c *Conn) { defer wg.Done(); r.Leave(room, c) }(c)
			go func(c *Conn) { defer wg.Done(); _ = r.Audience(room, c) }(c)
		}
	}
	wg.Wait()
	for i := 0; i < rooms; i++ {
		room := fmt.Sprintf("r%d", i)
		if got := r.Count(room); got != perRoom/2 {
			t.Fatalf("%s count=%d, want %d", room, got, perRoom/2)
		}
		if got := len(r.Audience(room, nil)); got != perRoom/2 {
			t.Fatalf("%s audience=%d, want %d", room, got, perRoom/2)
		}
	}
}

func TestJoinNeverLandsInPrunedSet(t *testing.T) {
	r := NewRoomRegistry()
	for i := 0; i < 500; i++ {
		a, b := openConn("a", 1), openConn("b", 1)
		r.Join("r", a)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); r.Leave("r", a) }()
		go func() { defer wg.Done(); r.Join("r", b) }()
		wg.Wait()

		if got := r.Count("r"); got != 1 {
			t.Fatalf("iteration %d: count=%d, want 1", i, got)
		}
		r.Leave("r", b)
	}
}
