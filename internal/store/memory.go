package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process RoomStore for dev runs and tests.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]Room
}

func NewMemory() *Memory { return &Memory{rooms: map[string]Room{}} }

func (m *Memory) FindByRoomID(_ context.Context, id string) (Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return Room{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) Insert(_ context.Context, r Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[r.RoomID]; ok {
		return ErrDuplicateKey
	}
	m.rooms[r.RoomID] = r
	return nil
}

func (m *Memory) DeleteByRoomID(_ context.Context, id string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return Room{}, ErrNotFound
	}
	delete(m.rooms, id)
	return r, nil
}

// ListAll returns rooms oldest first
func (m *Memory) ListAll(_ context.Context) ([]Room, error) {
	m.mu.RLock()
	out := make([]Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RoomID < out[j].RoomID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) SetParticipants(_ context.Context, id string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return ErrNotFound
	}
	r.Participants = n
	m.rooms[id] = r
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() {}
