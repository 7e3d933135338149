package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/elefant-ai/p2vn/pkg/state"
)

const playerStateTTL = 24 * time.Hour

// RedisStorage persists player state in Redis, one key per session.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis storage instance.
func NewRedisStorage(redisAddr string, logger *slog.Logger) *RedisStorage {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	return &RedisStorage{
		client: rdb,
		logger: logger,
	}
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	return nil
}

// WaitForConnection blocks until Redis answers, for use during startup.
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}
		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func playerStateKey(id uuid.UUID) string {
	return "playerstate:" + id.String()
}

func (r *RedisStorage) SavePlayerState(ctx context.Context, id uuid.UUID, ps *state.PlayerState) error {
	ps.UpdatedAt = time.Now()

	data, err := json.Marshal(ps)
	if err != nil {
		r.logger.Error("Failed to marshal player state", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal player state: %w", err)
	}

	if err := r.client.Set(ctx, playerStateKey(id), string(data), playerStateTTL).Err(); err != nil {
		r.logger.Error("Failed to save player state", "uuid", id, "error", err)
		return fmt.Errorf("failed to save player state: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadPlayerState(ctx context.Context, id uuid.UUID) (*state.PlayerState, error) {
	cmd := r.client.Get(ctx, playerStateKey(id))
	if err := cmd.Err(); err != nil {
		if err == redis.Nil {
			r.logger.Warn("Player state not found", "uuid", id)
			return nil, nil // not found
		}
		r.logger.Error("Failed to load player state", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load player state: %w", err)
	}

	var ps state.PlayerState
	if err := json.Unmarshal([]byte(cmd.Val()), &ps); err != nil {
		r.logger.Error("Failed to unmarshal player state", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal player state: %w", err)
	}
	return &ps, nil
}

func (r *RedisStorage) DeletePlayerState(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, playerStateKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete player state", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete player state: %w", err)
	}
	return nil
}
