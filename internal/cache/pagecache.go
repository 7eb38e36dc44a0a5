package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PageCache keeps recently fetched page bodies in Redis so repeated fetches
// of the same URL skip the outbound round trip. A nil *PageCache disables
// caching entirely; all methods are nil-safe.
type PageCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewPageCache(redisURL string, ttl time.Duration) (*PageCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return &PageCache{
		redis: redis.NewClient(opt),
		ttl:   ttl,
	}, nil
}

func (pc *PageCache) key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return fmt.Sprintf("pagecache:%x", hash)
}

func (pc *PageCache) Get(ctx context.Context, url string) (string, bool) {
	if pc == nil {
		return "", false
	}

	body, err := pc.redis.Get(ctx, pc.key(url)).Result()
	if err != nil {
		return "", false
	}
	return body, true
}

func (pc *PageCache) Set(ctx context.Context, url, body string) error {
	if pc == nil {
		return nil
	}
	return pc.redis.Set(ctx, pc.key(url), body, pc.ttl).Err()
}

func (pc *PageCache) Close() error {
	if pc == nil {
		return nil
	}
	return pc.redis.Close()
}
