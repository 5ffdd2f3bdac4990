// internal/findata/cache.go
package findata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finlife-navigator/internal/common/database"
	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/common/metrics"

	"github.com/dgraph-io/ristretto"
)

const (
	layerMemory = "l1"
	layerRedis  = "l2"
)

// LayeredCache keeps JSON payloads in process memory (L1) in front of Redis
// (L2). Redis is optional. Cache failures are logged and treated as misses.
type LayeredCache struct {
	mem    *ristretto.Cache
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewLayeredCache(maxCost int64, ttl time.Duration, redis *database.RedisClient, log logger.Logger) (*LayeredCache, error) {
	if maxCost <= 0 {
		return nil, fmt.Errorf("cache max cost must be positive")
	}

	mem, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxCost * 10,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create memory cache: %w", err)
	}

	return &LayeredCache{
		mem:    mem,
		redis:  redis,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "findata-cache"}),
	}, nil
}

// Get decodes the cached value into dest and reports whether it was found.
func (c *LayeredCache) Get(ctx context.Context, key string, dest interface{}) bool {
	if raw, ok := c.mem.Get(key); ok {
		if data, ok := raw.([]byte); ok && json.Unmarshal(data, dest) == nil {
			metrics.FinDataCacheRequests.WithLabelValues(layerMemory, "hit").Inc()
			return true
		}
	}
	metrics.FinDataCacheRequests.WithLabelValues(layerMemory, "miss").Inc()

	if c.redis == nil {
		return false
	}

	var data json.RawMessage
	if err := c.redis.GetJSON(ctx, key, &data); err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			c.logger.Warn("redis get failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
		metrics.FinDataCacheRequests.WithLabelValues(layerRedis, "miss").Inc()
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		metrics.FinDataCacheRequests.WithLabelValues(layerRedis, "miss").Inc()
		return false
	}

	metrics.FinDataCacheRequests.WithLabelValues(layerRedis, "hit").Inc()
	c.mem.SetWithTTL(key, []byte(data), 1, c.ttl)
	return true
}

// Set writes through to Redis, then memory.
func (c *LayeredCache) Set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache encode failed", map[string]interface{}{"key": key, "error": err.Error()})
		return
	}

	if c.redis != nil {
		if err := c.redis.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("redis set failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}
	c.mem.SetWithTTL(key, data, 1, c.ttl)
}

// Wait blocks until pending memory writes are applied.
func (c *LayeredCache) Wait() {
	c.mem.Wait()
}

func (c *LayeredCache) Close() {
	c.mem.Close()
}
