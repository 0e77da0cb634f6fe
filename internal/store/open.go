package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/keerthanachowdary21/Live-Video-Calls/internal/app"
)

// Open builds the RoomStore selected by cfg.StoreDriver. Postgres
// migrations run before the store is returned.
func Open(ctx context.Context, cfg app.Config, log *slog.Logger) (RoomStore, error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn("store.memory", "note", "rooms are lost on restart")
		return NewMemory(), nil
	case "postgres":
		pg, err := NewPostgres(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := RunMigrations(ctx, pg, log); err != nil {
			pg.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		return pg, nil
	case "redis":
		r, err := NewRedis(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("redis connect: %w", err)
		}
		return r, nil
	case "mongo":
		m, err := NewMongo(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
