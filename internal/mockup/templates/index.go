package templates

import (
	"context"
	"errors"
	"time"

	"mockup-workers/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// CacheIndex remembers where a downloaded template was cached.
// Implementations are best-effort: failures behave like misses.
type CacheIndex interface {
	Lookup(ctx context.Context, productID string) (string, bool)
	Remember(ctx context.Context, productID, path string)
}

type NopIndex struct{}

func (NopIndex) Lookup(context.Context, string) (string, bool) { return "", false }
func (NopIndex) Remember(context.Context, string, string)      {}

const keyPrefix = "mockup:template:"

// RedisIndex stores productID → cached path in redis so replicas sharing a
// cache volume can skip downloads.
type RedisIndex struct {
	client redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewRedisIndex(client redis.Cmdable, ttl time.Duration, log logger.Logger) *RedisIndex {
	return &RedisIndex{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "template-index"}),
	}
}

func Key(productID string) string {
	return keyPrefix + productID
}

func (i *RedisIndex) Lookup(ctx context.Context, productID string) (string, bool) {
	val, err := i.client.Get(ctx, Key(productID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			i.logger.Warn("template index lookup failed", map[string]interface{}{
				"productId": productID,
				"error":     err.Error(),
			})
		}
		return "", false
	}
	return val, val != ""
}

func (i *RedisIndex) Remember(ctx context.Context, productID, path string) {
	if err := i.client.Set(ctx, Key(productID), path, i.ttl).Err(); err != nil {
		i.logger.Warn("template index update failed", map[string]interface{}{
			"productId": productID,
			"error":     err.Error(),
		})
	}
}
