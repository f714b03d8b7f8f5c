package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("MAX_CONCURRENT", "")
	t.Setenv("DELAY_BETWEEN_CALLS", "")

	cfg := New()
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultPacingDelay, cfg.PacingDelay)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("GEMINI_MODEL", "gemini-3-pro")
	t.Setenv("MAX_CONCURRENT", "12")
	t.Setenv("DELAY_BETWEEN_CALLS", "0.5")

	cfg := New()
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "gemini-3-pro", cfg.Model)
	assert.Equal(t, 12, cfg.Concurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.PacingDelay)
}

func TestNewIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("MAX_CONCURRENT", "lots")
	t.Setenv("DELAY_BETWEEN_CALLS", "-3")

	cfg := New()
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultPacingDelay, cfg.PacingDelay)
}

func TestValidate(t *testing.T) {
	valid := Config{Domain: "business", APIKey: "k", Concurrency: 5}
	assert.NoError(t, valid.Validate())

	missing := valid
	missing.Domain = ""
	assert.ErrorContains(t, missing.Validate(), "domain")

	missing = valid
	missing.APIKey = ""
	assert.ErrorContains(t, missing.Validate(), "API key")

	missing = valid
	missing.Concurrency = 0
	assert.ErrorContains(t, missing.Validate(), "concurrency")

	missing = valid
	missing.PacingDelay = -time.Second
	assert.ErrorContains(t, missing.Validate(), "delay")
}
