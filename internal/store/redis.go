package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keerthanachowdary21/Live-Video-Calls/internal/app"
)

// Each room is a hash at room:<id>; room ids are indexed in a set.
const redisIndexKey = "rooms:index"

var (
	insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
redis.call('HSET', KEYS[1], 'participants', ARGV[2], 'created_at', ARGV[3])
redis.call('SADD', KEYS[2], ARGV[1])
return 1`)

	deleteScript = redis.NewScript(`
local v = redis.call('HGETALL', KEYS[1])
if #v == 0 then return false end
redis.call('DEL', KEYS[1])
redis.call('SREM', KEYS[2], ARGV[1])
return v`)

	setParticipantsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return 0 end
redis.call('HSET', KEYS[1], 'participants', ARGV[1])
return 1`)
)

type Redis struct {
	rdb *redis.Client
	log *slog.Logger
}

// NewRedis connects to redis and verifies connectivity
func NewRedis(ctx context.Context, cfg app.Config, log *slog.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Redis{rdb: rdb, log: log}, nil
}

func (r *Redis) Close() { _ = r.rdb.Close() }

func (r *Redis) Ping(ctx context.Context) error { return r.rdb.Ping(ctx).Err() }

func (r *Redis) FindByRoomID(ctx context.Context, id string) (Room, error) {
	fields, err := r.rdb.HGetAll(ctx, roomKey(id)).Result()
	if err != nil {
		return Room{}, err
	}
	if len(fields) == 0 {
		return Room{}, ErrNotFound
	}
	return decodeRoomHash(id, fields)
}

func (r *Redis) Insert(ctx context.Context, room Room) error {
	ok, err := insertScript.Run(ctx, r.rdb,
		[]string{roomKey(room.RoomID), redisIndexKey},
		room.RoomID, room.Participants, room.CreatedAt.UnixNano(),
	).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrDuplicateKey
	}
	return nil
}

func (r *Redis) DeleteByRoomID(ctx context.Context, id string) (Room, error) {
	raw, err := deleteScript.Run(ctx, r.rdb, []string{roomKey(id), redisIndexKey}, id).Slice()
	if errors.Is(err, redis.Nil) {
		return Room{}, ErrNotFound
	}
	if err != nil {
		return Room{}, err
	}
	fields := make(map[string]string, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		fields[fmt.Sprint(raw[i])] = fmt.Sprint(raw[i+1])
	}
	return decodeRoomHash(id, fields)
}

// ListAll returns rooms oldest first
func (r *Redis) ListAll(ctx context.Context) ([]Room, error) {
	ids, err := r.rdb.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, err
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, roomKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]Room, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// deleted between SMEMBERS and HGETALL
			continue
		}
		room, err := decodeRoomHash(ids[i], fields)
		if err != nil {
			return nil, err
		}
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].RoomID < out[j].RoomID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Redis) SetParticipants(ctx context.Context, id string, n int) error {
	ok, err := setParticipantsScript.Run(ctx, r.rdb, []string{roomKey(id)}, n).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeRoomHash(id string, fields map[string]string) (Room, error) {
	n, err := strconv.Atoi(fields["participants"])
	if err != nil {
		return Room{}, fmt.Errorf("room %s: participants: %w", id, err)
	}
	ns, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return Room{}, fmt.Errorf("room %s: created_at: %w", id, err)
	}
	return Room{RoomID: id, Participants: n, CreatedAt: time.Unix(0, ns).UTC()}, nil
}

// roomKey namespaces room hashes
func roomKey(id string) string { return "room:" + id }
