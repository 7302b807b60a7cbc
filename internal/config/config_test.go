// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, 30*time.Second, cfg.Engine.DefaultTimeout)
	assert.Equal(t, 30*time.Second, cfg.Engine.DefaultNavigationTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Engine.PollInterval)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "console", cfg.Logger.Format)
}

func TestLoadOverridesDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("engine.poll_interval", "25ms")
	v.Set("engine.default_timeout", "5s")
	v.Set("browser.headless", false)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 25*time.Millisecond, cfg.Engine.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Engine.DefaultTimeout)
	assert.False(t, cfg.Browser.Headless)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero poll interval", func(c *Config) { c.Engine.PollInterval = 0 }},
		{"negative default timeout", func(c *Config) { c.Engine.DefaultTimeout = -time.Second }},
		{"negative navigation timeout", func(c *Config) { c.Engine.DefaultNavigationTimeout = -time.Second }},
		{"zero launch timeout", func(c *Config) { c.Browser.LaunchTimeout = 0 }},
		{"unknown log format", func(c *Config) { c.Logger.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestZeroActionTimeoutIsAllowed(t *testing.T) {
	// An explicit zero default means "no deadline"; it must pass validation
	// rather than being clamped to something "very large".
	cfg := Default()
	cfg.Engine.DefaultTimeout = 0
	assert.NoError(t, cfg.Validate())
}
