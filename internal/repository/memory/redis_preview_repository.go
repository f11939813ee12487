package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"game-exploration-be/pkg/exploration/preview"

	"github.com/redis/go-redis/v9"
)

// RedisPreviewRepository shares previews across instances with SET EX.
type RedisPreviewRepository struct {
	rdb *redis.Client
}

var _ preview.Store = (*RedisPreviewRepository)(nil)

func NewRedisPreviewRepository(rdb *redis.Client) *RedisPreviewRepository {
	return &RedisPreviewRepository{rdb: rdb}
}

func (r *RedisPreviewRepository) Put(ctx context.Context, entry *preview.Entry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal preview: %w", err)
	}
	return r.rdb.Set(ctx, entry.Key, payload, ttl).Err()
}

func (r *RedisPreviewRepository) Get(ctx context.Context, key string) (*preview.Entry, bool, error) {
	payload, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var e preview.Entry
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, false, fmt.Errorf("unmarshal preview: %w", err)
	}
	return &e, true, nil
}
