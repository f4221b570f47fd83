package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/mailbridge/internal/models"
)

// RedisStateRepository persists the sync state mapping as one JSON value in
// Redis. Selected by configuration when several machines take turns running
// the bridge against a shared source.
type RedisStateRepository struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStateRepository constructs the repository.
func NewRedisStateRepository(client *redis.Client, key string, logger *zap.Logger) *RedisStateRepository {
	if key == "" {
		key = "mailbridge:sync_state"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStateRepository{client: client, key: key, logger: logger}
}

// Load returns the persisted mapping; an absent key or corrupt value yields
// an empty mapping, matching the file-backed semantics.
func (r *RedisStateRepository) Load(ctx context.Context) (models.StateMap, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.StateMap{}, nil
		}
		return nil, fmt.Errorf("load sync state: %w", err)
	}

	state := models.StateMap{}
	if err := json.Unmarshal(raw, &state); err != nil {
		r.logger.Sugar().Warnw("stored state corrupt, starting empty", "error", err)
		return models.StateMap{}, nil
	}
	return state, nil
}

// Save replaces the whole mapping in one write.
func (r *RedisStateRepository) Save(ctx context.Context, state models.StateMap) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode sync state: %w", err)
	}
	if err := r.client.Set(ctx, r.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("persist sync state: %w", err)
	}
	return nil
}
