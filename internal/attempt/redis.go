package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore хранит попытки в Redis в виде JSON с TTL
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, a *model.Attempt) error {
	const op = "attempt.RedisStore.Save"

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	if err := s.client.Set(ctx, attemptKey(a.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	const op = "attempt.RedisStore.Get"

	data, err := s.client.Get(ctx, attemptKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var a model.Attempt
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%s: unmarshal: %w", op, err)
	}
	return &a, nil
}

func attemptKey(id uuid.UUID) string {
	return "attempt:" + id.String()
}
