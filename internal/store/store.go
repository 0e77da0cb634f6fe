package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("room not found")
	ErrDuplicateKey = errors.New("duplicate room id")
)

// RoomStore is the durable room repository. Implementations must make
// Insert fail with ErrDuplicateKey atomically when the id is taken.
type RoomStore interface {
	FindByRoomID(ctx context.Context, id string) (Room, error)
	Insert(ctx context.Context, r Room) error
	DeleteByRoomID(ctx context.Context, id string) (Room, error)
	ListAll(ctx context.Context) ([]Room, error)
	SetParticipants(ctx context.Context, id string, n int) error
	Ping(ctx context.Context) error
	Close()
}
