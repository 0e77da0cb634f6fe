// Package rooms owns the durable room lifecycle: ABSENT -> EXISTS -> ABSENT.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/keerthanachowdary21/Live-Video-Calls/internal/store"
	"github.com/keerthanachowdary21/Live-Video-Calls/pkg/metrics"
)

const maxRoomIDLen = 128

var (
	ErrAlreadyExists = errors.New("room already exists")
	ErrNotFound      = errors.New("room not found")
	ErrInvalidRoomID = errors.New("invalid room id")
)

type Service struct {
	store    store.RoomStore
	log      *slog.Logger
	now      func() time.Time
	onCreate func(roomID string)
	onDelete func(roomID string)
}

type Option func(*Service)

// WithCreateHook runs fn after a room record is inserted, e.g. to write back
// the count of members that joined before the record existed
func WithCreateHook(fn func(roomID string)) Option {
	return func(s *Service) { s.onCreate = fn }
}

// WithDeleteHook runs fn after a room record is deleted, e.g. to evict its
// live connections
func WithDeleteHook(fn func(roomID string)) Option {
	return func(s *Service) { s.onDelete = fn }
}

func NewService(st store.RoomStore, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{store: st, log: logger, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NormalizeRoomID trims id and checks it is usable as a key
func NormalizeRoomID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxRoomIDLen {
		return "", ErrInvalidRoomID
	}
	return id, nil
}

// Create persists a new room with zero participants
func (s *Service) Create(ctx context.Context, roomID string) (store.Room, error) {
	id, err := NormalizeRoomID(roomID)
	if err != nil {
		return store.Room{}, err
	}
	room := store.Room{RoomID: id, CreatedAt: s.now().UTC()}
	if err := s.store.Insert(ctx, room); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			metrics.RoomOps.WithLabelValues("create", "exists").Inc()
			return store.Room{}, ErrAlreadyExists
		}
		metrics.RoomOps.WithLabelValues("create", "error").Inc()
		return store.Room{}, fmt.Errorf("create room %s: %w", id, err)
	}
	metrics.RoomOps.WithLabelValues("create", "ok").Inc()
	s.log.Info("room.created", "room", id)
	if s.onCreate != nil {
		s.onCreate(id)
	}
	return room, nil
}

// List returns every durable room record
func (s *Service) List(ctx context.Context) ([]store.Room, error) {
	rooms, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// Get returns one room or ErrNotFound
func (s *Service) Get(ctx context.Context, roomID string) (store.Room, error) {
	id, err := NormalizeRoomID(roomID)
	if err != nil {
		return store.Room{}, ErrNotFound
	}
	room, err := s.store.FindByRoomID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Room{}, ErrNotFound
	}
	if err != nil {
		return store.Room{}, fmt.Errorf("find room %s: %w", id, err)
	}
	return room, nil
}

// Delete removes the durable record. Connections still attached to the
// room are left alone unless a delete hook evicts them.
func (s *Service) Delete(ctx context.Context, roomID string) (store.Room, error) {
	id, err := NormalizeRoomID(roomID)
	if err != nil {
		metrics.RoomOps.WithLabelValues("delete", "not_found").Inc()
		return store.Room{}, ErrNotFound
	}
	room, err := s.store.DeleteByRoomID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		metrics.RoomOps.WithLabelValues("delete", "not_found").Inc()
		return store.Room{}, ErrNotFound
	}
	if err != nil {
		metrics.RoomOps.WithLabelValues("delete", "error").Inc()
		return store.Room{}, fmt.Errorf("delete room %s: %w", id, err)
	}
	metrics.RoomOps.WithLabelValues("delete", "ok").Inc()
	s.log.Info("room.deleted", "room", id)
	if s.onDelete != nil {
		s.onDelete(id)
	}
	return room, nil
}

// Exists reports whether a durable record exists for roomID
func (s *Service) Exists(ctx context.Context, roomID string) (bool, error) {
	_, err := s.Get(ctx, roomID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// SyncParticipants writes the relay's live count to the durable record.
// Rooms without a record (never created or already deleted) are skipped.
func (s *Service) SyncParticipants(ctx context.Context, roomID string, n int) error {
	err := s.store.SetParticipants(ctx, roomID, n)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// Ready pings the backing store
func (s *Service) Ready(ctx context.Context) error { return s.store.Ping(ctx) }
