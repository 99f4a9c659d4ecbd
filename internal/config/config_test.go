package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 10000, cfg.Budget.MaxTokensPerMinute)
		assert.Equal(t, 2000, cfg.Budget.MaxTokensPerRequest)
		assert.Equal(t, 5, cfg.Breaker.Threshold)
		assert.Equal(t, 30*time.Second, cfg.Breaker.Cooldown)
		assert.Equal(t, time.Hour, cfg.Cache.DefaultTTL)
		assert.Equal(t, 30*time.Minute, cfg.Cache.AgentTTL)
		assert.Equal(t, 3, cfg.Scheduler.Workers)
		assert.Equal(t, 80.0, cfg.Governor.CPUMaxPercent)
		assert.Equal(t, 85.0, cfg.Governor.MemoryMaxPercent)
		assert.Equal(t, 30*time.Second, cfg.Health.Interval)
		assert.Equal(t, "8080", cfg.App.Port)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("MENTOR_SCHEDULER_WORKERS", "7")
		t.Setenv("MENTOR_BREAKER_COOLDOWN", "45s")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.Scheduler.Workers)
		assert.Equal(t, 45*time.Second, cfg.Breaker.Cooldown)
	})
}
