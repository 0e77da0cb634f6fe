package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keerthanachowdary21/Live-Video-Calls/internal/app"
)

// unique_violation
const pgUniqueViolation = "23505"

type Postgres struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgres connects to postgres and returns a pool wrapper
func NewPostgres(ctx context.Context, cfg app.Config, log *slog.Logger) (*Postgres, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.PGURL)
	if err != nil {
		return nil, err
	}
	if cfg.PGMaxConn > 0 {
		pcfg.MaxConns = int32(cfg.PGMaxConn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &Postgres{pool: pool, log: log}, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

// FindByRoomID fetches a room by its id
func (p *Postgres) FindByRoomID(ctx context.Context, id string) (Room, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT room_id, participants, created_at
		FROM rooms
		WHERE room_id = $1
	`, id)
	return scanRoom(row)
}

// Insert creates the room, relying on the primary key for uniqueness
func (p *Postgres) Insert(ctx context.Context, r Room) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO rooms (room_id, participants, created_at)
		VALUES ($1, $2, $3)
	`, r.RoomID, r.Participants, r.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateKey
	}
	return err
}

// DeleteByRoomID removes a room and returns the deleted row
func (p *Postgres) DeleteByRoomID(ctx context.Context, id string) (Room, error) {
	row := p.pool.QueryRow(ctx, `
		DELETE FROM rooms
		WHERE room_id = $1
		RETURNING room_id, participants, created_at
	`, id)
	return scanRoom(row)
}

// ListAll returns rooms oldest first
func (p *Postgres) ListAll(ctx context.Context) ([]Room, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT room_id, participants, created_at
		FROM rooms
		ORDER BY created_at, room_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Room{}
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.RoomID, &r.Participants, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SetParticipants overwrites the derived participant count
func (p *Postgres) SetParticipants(ctx context.Context, id string, n int) error {
	ct, err := p.pool.Exec(ctx, `
		UPDATE rooms
		SET participants = $2
		WHERE room_id = $1
	`, id, n)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	p.log.Debug("room.participants.saved", "room", id, "participants", n)
	return nil
}

func scanRoom(row pgx.Row) (Room, error) {
	var r Room
	if err := row.Scan(&r.RoomID, &r.Participants, &r.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Room{}, ErrNotFound
		}
		return Room{}, err
	}
	return r, nil
}
