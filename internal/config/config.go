// Package config holds process configuration and domain template loading.
// Everything here is threaded explicitly into the pipeline at construction
// time; nothing reads ambient state after startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults for externally supplied tunables.
const (
	DefaultModel       = "gemini-2.0-flash"
	DefaultConcurrency = 5
	DefaultPacingDelay = time.Second
	DefaultOutputDir   = "results"
	DefaultTemperature = 0.7
)

// Config carries the run parameters for one batch invocation.
type Config struct {
	Domain      string
	APIKey      string
	Model       string
	Concurrency int
	PacingDelay time.Duration
	OutputDir   string
	Temperature float64

	// Category limits the run to one category; Count caps hypotheses per
	// category. Zero values mean no filtering.
	Category string
	Count    int
}

// New returns a Config populated with defaults and environment overrides.
// Flags layered on top by the CLI win over both.
func New() Config {
	cfg := Config{
		Model:       DefaultModel,
		Concurrency: DefaultConcurrency,
		PacingDelay: DefaultPacingDelay,
		OutputDir:   DefaultOutputDir,
		Temperature: DefaultTemperature,
	}
	cfg.applyEnv()
	return cfg
}

// applyEnv reads the supported environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Concurrency = n
		}
	}
	if v := os.Getenv("DELAY_BETWEEN_CALLS"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
			c.PacingDelay = time.Duration(secs * float64(time.Second))
		}
	}
}

// Validate reports configuration problems before a run starts.
func (c Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("API key not configured (set GEMINI_API_KEY)")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.PacingDelay < 0 {
		return fmt.Errorf("pacing delay must not be negative")
	}
	return nil
}
