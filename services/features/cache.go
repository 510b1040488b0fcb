package features

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/upb/bandit-router/models"
)

const cacheKeyPrefix = "features:v1:"

// Cache memoizes extracted features keyed by query text so repeated
// queries skip the embedding call. Every operation fails open: a Redis
// error is logged and treated as a miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCache creates a feature cache backed by the given Redis client.
func NewCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns cached features for the query text, if present.
func (c *Cache) Get(ctx context.Context, text string) (models.QueryFeatures, bool) {
	data, err := c.client.Get(ctx, cacheKey(text)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("feature cache read failed, recomputing", zap.Error(err))
		}
		return models.QueryFeatures{}, false
	}

	var feats models.QueryFeatures
	if err := json.Unmarshal(data, &feats); err != nil {
		c.logger.Debug("feature cache entry corrupt, recomputing", zap.Error(err))
		return models.QueryFeatures{}, false
	}
	return feats, true
}

// Set stores features for the query text. Failures are logged and
// ignored.
func (c *Cache) Set(ctx context.Context, text string, feats models.QueryFeatures) {
	data, err := json.Marshal(feats)
	if err != nil {
		c.logger.Debug("feature cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, cacheKey(text), data, c.ttl).Err(); err != nil {
		c.logger.Debug("feature cache write failed", zap.Error(err))
	}
}
