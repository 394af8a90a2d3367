package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/eventbot/core/logger"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Prefix string
	// TTL expires idle sessions; zero keeps them until the dialogue ends.
	TTL time.Duration
}

// RedisStore keeps JSON-encoded sessions in Redis so dialogues survive restarts.
type RedisStore[S any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client.
func NewRedisStore[S any](client *redis.Client, opts RedisOptions) *RedisStore[S] {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "session"
	}
	return &RedisStore[S]{client: client, prefix: prefix, ttl: opts.TTL}
}

// Dial connects to Redis and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.Sessions.Error("redis ping failed",
			slog.String("event", "sessions.connect"),
			slog.String("backend", "redis"),
			slog.String("host", addr),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Sessions.Info("redis connected",
		slog.String("event", "sessions.connect"),
		slog.String("backend", "redis"),
		slog.String("host", addr),
		slog.Int("db", db),
	)
	return client, nil
}

func (r *RedisStore[S]) key(userID int64) string {
	return r.prefix + ":" + strconv.FormatInt(userID, 10)
}

// Load returns the session of userID if present.
func (r *RedisStore[S]) Load(ctx context.Context, userID int64) (S, bool, error) {
	var zero S
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("load session %d: %w", userID, err)
	}
	var s S
	if err := json.Unmarshal(raw, &s); err != nil {
		// A session written by an older release is dropped rather than blocking the user.
		logger.Sessions.Warn("session decode failed",
			slog.String("event", "sessions.decode"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		_ = r.client.Del(ctx, r.key(userID)).Err()
		return zero, false, nil
	}
	return s, true, nil
}

// Save replaces the session of userID.
func (r *RedisStore[S]) Save(ctx context.Context, userID int64, session S) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %d: %w", userID, err)
	}
	if err := r.client.Set(ctx, r.key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %d: %w", userID, err)
	}
	return nil
}

// Delete drops the session of userID.
func (r *RedisStore[S]) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("delete session %d: %w", userID, err)
	}
	return nil
}
