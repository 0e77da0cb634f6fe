package token

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/keerthanachowdary21/Live-Video-Calls/internal/store"
	"github.com/keerthanachowdary21/Live-Video-Calls/pkg/metrics"
)

// Request is the body sent to the credential provider.
type Request struct {
	RoomID string `json:"room_id"`
	Role   string `json:"role"`
	Exp    int64  `json:"exp"`
}

type Provider interface {
	IssueToken(ctx context.Context, req Request) (string, error)
}

// RoomLookup confirms a room exists; rooms.Service satisfies it.
type RoomLookup interface {
	Get(ctx context.Context, roomID string) (store.Room, error)
}

type Gateway struct {
	rooms    RoomLookup
	provider Provider
	log      *slog.Logger
	role     string
	ttl      time.Duration
	now      func() time.Time
}

func NewGateway(rooms RoomLookup, provider Provider, logger *slog.Logger, role string, ttl time.Duration) *Gateway {
	if role == "" {
		role = "participant"
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Gateway{rooms: rooms, provider: provider, log: logger, role: role, ttl: ttl, now: time.Now}
}

// IssueToken returns a session token for an existing room. Lookup errors
// (rooms.ErrNotFound) pass through unchanged; provider failures always
// match ErrTokenIssuanceFailed and never come with a token.
func (g *Gateway) IssueToken(ctx context.Context, roomID string) (string, error) {
	room, err := g.rooms.Get(ctx, roomID)
	if err != nil {
		metrics.TokenRequests.WithLabelValues("room_error").Inc()
		return "", err
	}

	tok, err := g.provider.IssueToken(ctx, Request{
		RoomID: room.RoomID,
		Role:   g.role,
		Exp:    g.now().Add(g.ttl).Unix(),
	})
	if err != nil {
		var pe *ProviderError
		if !errors.As(err, &pe) {
			err = &ProviderError{Err: err}
		}
		metrics.TokenRequests.WithLabelValues("provider_error").Inc()
		g.log.Error("token.issue", "room", room.RoomID, "err", err)
		return "", err
	}
	metrics.TokenRequests.WithLabelValues("ok").Inc()
	g.log.Info("token.issue", "room", room.RoomID, "role", g.role)
	return tok, nil
}
