package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                 "8080",
		VectorBackend:        "memory",
		SegmentWindowSeconds: 30,
		OverfetchFactor:      2,
		RunnerSlots:          4,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := validConfig()
	cfg.VectorBackend = "redis"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vector backend")
}

func TestValidateRejectsBadNumbers(t *testing.T) {
	cfg := validConfig()
	cfg.SegmentWindowSeconds = 0
	cfg.OverfetchFactor = 0
	cfg.RunnerSlots = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment window")
	assert.Contains(t, err.Error(), "overfetch factor")
	assert.Contains(t, err.Error(), "runner slots")
}

func TestHasValidAPI(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.HasValidAPI())

	cfg.APIKey = "sk-test"
	cfg.BaseURL = "https://api.openai.com/v1"
	assert.True(t, cfg.HasValidAPI())

	cfg.APIKey = "   "
	assert.False(t, cfg.HasValidAPI())
}

func TestBackendIsCaseInsensitive(t *testing.T) {
	cfg := validConfig()
	cfg.VectorBackend = "PgVector"
	assert.NoError(t, cfg.Validate())
}
