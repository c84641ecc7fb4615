package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCache shares summaries across instances with a server-side TTL.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the given URL (redis://host:port) and
// verifies the connection before returning.
func NewRedisCache(url string, ttl time.Duration) (CacheStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("summarize: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("summarize: connect redis: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisCache{client: client, ttl: ttl}, nil
}

func (r *redisCache) redisKey(key CacheKey) string {
	return "threadlens:summary:" + key.String()
}

func (r *redisCache) Get(ctx context.Context, key CacheKey) (*Record, bool, error) {
	raw, err := r.client.Get(ctx, r.redisKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		// Stale or foreign payload: treat as a miss and drop it.
		_ = r.client.Del(ctx, r.redisKey(key)).Err()
		return nil, false, nil
	}
	return &rec, true, nil
}

func (r *redisCache) Put(ctx context.Context, key CacheKey, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.redisKey(key), raw, r.ttl).Err()
}
