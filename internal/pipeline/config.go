package pipeline

import (
	"fmt"
	"time"

	"github.com/openintake/triage/internal/config"
)

// Config holds configuration for the pipeline orchestrator.
type Config struct {
	// FetchLimit bounds how many raw records one run pulls from the
	// source.
	// Default: 100
	FetchLimit int

	// StatusFilter selects which raw records to fetch.
	// Default: "pending"
	StatusFilter string

	// ClassifyWorkers is the fan-out width for per-unit enrichment and
	// classification. Units are independent so this only trades latency
	// against load on the repetition-counter collaborator.
	// Default: 4
	ClassifyWorkers int

	// RepetitionWindow is the rolling window for the repetition counter.
	// Default: 24 hours
	RepetitionWindow time.Duration

	// LookupTimeout bounds each repetition-counter call. Expiry degrades
	// to a count of 1.
	// Default: 10 seconds
	LookupTimeout time.Duration

	// PersistTimeout bounds the single batched persistence call.
	// Default: 30 seconds
	PersistTimeout time.Duration
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		FetchLimit:       100,
		StatusFilter:     "pending",
		ClassifyWorkers:  4,
		RepetitionWindow: 24 * time.Hour,
		LookupTimeout:    10 * time.Second,
		PersistTimeout:   30 * time.Second,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.FetchLimit <= 0 {
		return fmt.Errorf("fetch_limit must be positive (got %d)", c.FetchLimit)
	}
	if c.FetchLimit > 10000 {
		return fmt.Errorf("fetch_limit too large (got %d, max 10000)", c.FetchLimit)
	}
	if c.StatusFilter == "" {
		return fmt.Errorf("status_filter is required")
	}
	if c.ClassifyWorkers <= 0 {
		return fmt.Errorf("classify_workers must be positive (got %d)", c.ClassifyWorkers)
	}
	if c.RepetitionWindow <= 0 {
		return fmt.Errorf("repetition_window must be positive (got %v)", c.RepetitionWindow)
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("lookup_timeout must be positive (got %v)", c.LookupTimeout)
	}
	if c.PersistTimeout <= 0 {
		return fmt.Errorf("persist_timeout must be positive (got %v)", c.PersistTimeout)
	}
	return nil
}

// ConfigFromEnv creates a Config from environment variables, falling back
// to defaults.
//
// Environment variables:
//   - TRIAGE_FETCH_LIMIT: records fetched per run (default: 100)
//   - TRIAGE_STATUS_FILTER: raw record status to fetch (default: pending)
//   - TRIAGE_CLASSIFY_WORKERS: classification fan-out (default: 4)
//   - TRIAGE_REPETITION_WINDOW_HOURS: repetition window in hours (default: 24)
//   - TRIAGE_LOOKUP_TIMEOUT_SECS: repetition lookup timeout (default: 10)
//   - TRIAGE_PERSIST_TIMEOUT_SECS: persistence timeout (default: 30)
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if err := config.ParseEnvInt("TRIAGE_FETCH_LIMIT", &cfg.FetchLimit); err != nil {
		return cfg, err
	}
	config.ParseEnvString("TRIAGE_STATUS_FILTER", &cfg.StatusFilter)
	if err := config.ParseEnvInt("TRIAGE_CLASSIFY_WORKERS", &cfg.ClassifyWorkers); err != nil {
		return cfg, err
	}
	if err := config.ParseEnvDuration("TRIAGE_REPETITION_WINDOW_HOURS", &cfg.RepetitionWindow, time.Hour); err != nil {
		return cfg, err
	}
	if err := config.ParseEnvDuration("TRIAGE_LOOKUP_TIMEOUT_SECS", &cfg.LookupTimeout, time.Second); err != nil {
		return cfg, err
	}
	if err := config.ParseEnvDuration("TRIAGE_PERSIST_TIMEOUT_SECS", &cfg.PersistTimeout, time.Second); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}
