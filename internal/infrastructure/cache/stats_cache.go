// Package cache provides the per-tenant stats summary cache. The redis
// implementation shares entries across replicas; the in-process fallback
// keeps single-node deployments dependency-free.
package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/edusight/edusight/internal/config"
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/pkg/logger"
)

// StatsCache caches one partition's aggregate view between writes.
// A miss is never an error; callers fall through to storage.
type StatsCache interface {
	Get(ctx context.Context, tenantID string) (*models.TenantStats, bool)
	Set(ctx context.Context, tenantID string, stats *models.TenantStats)
	Invalidate(ctx context.Context, tenantID string)
}

// NewStatsCache selects the backend from configuration.
func NewStatsCache(cfg config.RedisConfig, log logger.Logger) StatsCache {
	ttl := time.Duration(cfg.StatsTTL) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	if !cfg.Enabled {
		return newLocalStatsCache(ttl)
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addresses[0],
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})
	return NewRedisStatsCache(client, ttl, log)
}

// ================================================================================
// Redis Implementation
// ================================================================================

// RedisStatsCache stores serialized stats under a per-tenant key.
type RedisStatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewRedisStatsCache creates the redis-backed cache.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration, log logger.Logger) *RedisStatsCache {
	return &RedisStatsCache{
		client: client,
		ttl:    ttl,
		logger: log.WithComponent("StatsCache"),
	}
}

func statsKey(tenantID string) string {
	return "edusight:stats:" + tenantID
}

// Get returns the cached stats, or a miss on any redis failure.
func (c *RedisStatsCache) Get(ctx context.Context, tenantID string) (*models.TenantStats, bool) {
	raw, err := c.client.Get(ctx, statsKey(tenantID)).Bytes()
	if err != nil {
		return nil, false
	}
	var stats models.TenantStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.logger.Warn(ctx, "Corrupt stats cache entry dropped", logger.String("tenant_id", tenantID))
		c.client.Del(ctx, statsKey(tenantID))
		return nil, false
	}
	return &stats, true
}

// Set stores the stats with the configured TTL. Failures are logged, not returned.
func (c *RedisStatsCache) Set(ctx context.Context, tenantID string, stats *models.TenantStats) {
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statsKey(tenantID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn(ctx, "Stats cache write failed",
			logger.String("tenant_id", tenantID), logger.Error(err))
	}
}

// Invalidate drops the cached entry after a partition write.
func (c *RedisStatsCache) Invalidate(ctx context.Context, tenantID string) {
	c.client.Del(ctx, statsKey(tenantID))
}

// ================================================================================
// In-Process Fallback
// ================================================================================

type localStatsCache struct {
	cache *gocache.Cache
}

func newLocalStatsCache(ttl time.Duration) *localStatsCache {
	return &localStatsCache{cache: gocache.New(ttl, 2*ttl)}
}

func (c *localStatsCache) Get(ctx context.Context, tenantID string) (*models.TenantStats, bool) {
	if v, ok := c.cache.Get(tenantID); ok {
		if stats, ok := v.(*models.TenantStats); ok {
			return stats, true
		}
	}
	return nil, false
}

func (c *localStatsCache) Set(ctx context.Context, tenantID string, stats *models.TenantStats) {
	c.cache.SetDefault(tenantID, stats)
}

func (c *localStatsCache) Invalidate(ctx context.Context, tenantID string) {
	c.cache.Delete(tenantID)
}
