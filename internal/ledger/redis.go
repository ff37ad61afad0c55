package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the processed set of one season in a Redis set, with the
// last-updated time in a sibling key
type RedisStore struct {
	client     *redis.Client
	setKey     string
	updatedKey string
}

// NewRedisStore creates a store for season under the given key prefix
func NewRedisStore(client *redis.Client, prefix, season string) *RedisStore {
	if prefix == "" {
		prefix = "fantasy_hoops:"
	}
	base := fmt.Sprintf("%sledger:%s", prefix, season)
	return &RedisStore{
		client:     client,
		setKey:     base + ":processed",
		updatedKey: base + ":updated",
	}
}

// Load returns the set members and the last-updated time
func (s *RedisStore) Load(ctx context.Context) ([]string, time.Time, error) {
	keys, err := s.client.SMembers(ctx, s.setKey).Result()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read processed set: %w", err)
	}

	var lastUpdated time.Time
	raw, err := s.client.Get(ctx, s.updatedKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, time.Time{}, fmt.Errorf("failed to read ledger timestamp: %w", err)
	default:
		if t, perr := time.Parse(time.RFC3339Nano, raw); perr == nil {
			lastUpdated = t
		}
	}

	return keys, lastUpdated, nil
}

// Append adds keys and stamps the update time in one MULTI/EXEC
func (s *RedisStore) Append(ctx context.Context, keys []string, at time.Time) error {
	if len(keys) == 0 {
		return nil
	}

	members := make([]interface{}, len(keys))
	for i, k := range keys {
		members[i] = k
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, s.setKey, members...)
		pipe.Set(ctx, s.updatedKey, at.UTC().Format(time.RFC3339Nano), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append ledger keys: %w", err)
	}
	return nil
}

// Reset deletes the set and stamps the reset time
func (s *RedisStore) Reset(ctx context.Context) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.setKey)
		pipe.Set(ctx, s.updatedKey, time.Now().UTC().Format(time.RFC3339Nano), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reset ledger: %w", err)
	}
	return nil
}
