package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusight/edusight/internal/config"
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/logger"
)

func demoStats() *models.TenantStats {
	return &models.TenantStats{
		TenantID:      "gpj",
		TotalStudents: 3,
		HighRiskCount: 1,
		AverageScore:  49.33,
		RiskLevels:    map[constants.RiskLevel]int64{constants.RiskLevelCritical: 1, constants.RiskLevelLow: 2},
		Departments:   map[string]int64{"CS": 3},
	}
}

func TestRedisStatsCacheRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	c := NewRedisStatsCache(client, time.Minute, logger.NewNoopLogger())
	ctx := context.Background()

	_, ok := c.Get(ctx, "gpj")
	assert.False(t, ok)

	c.Set(ctx, "gpj", demoStats())

	got, ok := c.Get(ctx, "gpj")
	require.True(t, ok)
	assert.Equal(t, demoStats(), got)

	c.Invalidate(ctx, "gpj")
	_, ok = c.Get(ctx, "gpj")
	assert.False(t, ok)
}

func TestRedisStatsCacheExpires(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	c := NewRedisStatsCache(client, time.Second, logger.NewNoopLogger())
	ctx := context.Background()

	c.Set(ctx, "gpj", demoStats())
	srv.FastForward(2 * time.Second)

	_, ok := c.Get(ctx, "gpj")
	assert.False(t, ok)
}

func TestRedisStatsCacheFailureIsAMiss(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	c := NewRedisStatsCache(client, time.Minute, logger.NewNoopLogger())
	ctx := context.Background()

	c.Set(ctx, "gpj", demoStats())
	srv.Close()

	_, ok := c.Get(ctx, "gpj")
	assert.False(t, ok)
}

func TestLocalStatsCacheSelectedWhenRedisDisabled(t *testing.T) {
	c := NewStatsCache(config.RedisConfig{Enabled: false}, logger.NewNoopLogger())
	ctx := context.Background()

	c.Set(ctx, "rtu", demoStats())

	got, ok := c.Get(ctx, "rtu")
	require.True(t, ok)
	assert.Equal(t, demoStats(), got)

	c.Invalidate(ctx, "rtu")
	_, ok = c.Get(ctx, "rtu")
	assert.False(t, ok)
}
