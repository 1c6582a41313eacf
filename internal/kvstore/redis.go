package kvstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store over a shared go-redis client.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an already-constructed client. The client is
// constructed once in cmd/tipline and threaded in, per the no-package-
// level-singletons convention.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) MGet(ctx context.Context, keys []string) ([][]byte, []bool, error) {
	if len(keys) == 0 {
		return nil, nil, nil
	}
	raw, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}
	values := make([][]byte, len(raw))
	present := make([]bool, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			values[i] = []byte(s)
			present[i] = true
		}
	}
	return values, present, nil
}

func (s *RedisStore) Scan(ctx context.Context, cursor uint64, prefix string, count int64) (uint64, []string, error) {
	keys, next, err := s.client.Scan(ctx, cursor, prefix+"*", count).Result()
	if err != nil {
		return 0, nil, err
	}
	return next, keys, nil
}
