package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusight/edusight/internal/domain/models"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, v, err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Audit.KafkaEnabled)
	assert.Equal(t, 8, cfg.Aggregation.MaxConcurrency)
	require.NoError(t, cfg.Validate())
}

func TestDefaultRiskConfigMatchesReferencePolicy(t *testing.T) {
	cfg, _, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, models.DefaultRiskPolicy(), cfg.Risk.Policy())
}

func TestValidateRejectsBadWeights(t *testing.T) {
	cfg, _, err := LoadConfig()
	require.NoError(t, err)

	cfg.Risk.Weights.Attendance = 0.9
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights")
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg, _, err := LoadConfig()
	require.NoError(t, err)

	cfg.Database.Driver = "oracle"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg, _, err := LoadConfig()
	require.NoError(t, err)

	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())
}
