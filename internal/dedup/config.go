package dedup

import (
	"fmt"
	"time"

	"github.com/openintake/triage/internal/config"
)

// Config holds configuration for the duplicate detector.
type Config struct {
	// FuzzyThreshold is the similarity ratio a differing-content pair
	// must exceed to count as a fuzzy match.
	// Default: 0.95
	FuzzyThreshold float64

	// FuzzyWindow is the maximum received-time difference for a fuzzy
	// match. Pairs further apart are never fuzzy duplicates, whatever
	// their similarity.
	// Default: 7 days (604800s)
	FuzzyWindow time.Duration

	// RecentWindow is the boundary between the "5_minutes" and "7_days"
	// window labels on historical matches.
	// Default: 5 minutes (300s)
	RecentWindow time.Duration

	// MaxCandidates bounds each historical lookup.
	// Default: 20
	MaxCandidates int

	// MaxConcurrentLookups bounds how many historical lookups run at
	// once, to avoid overwhelming the lookup collaborator.
	// Default: 4
	MaxConcurrentLookups int

	// LookupTimeout is the per-call timeout on historical lookups.
	// Expiry is recoverable: the unit simply gets no historical results.
	// Default: 10 seconds
	LookupTimeout time.Duration

	// LookupRatePerSecond rate-limits historical lookup calls.
	// Default: 20
	LookupRatePerSecond float64
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:       0.95,
		FuzzyWindow:          7 * 24 * time.Hour,
		RecentWindow:         5 * time.Minute,
		MaxCandidates:        20,
		MaxConcurrentLookups: 4,
		LookupTimeout:        10 * time.Second,
		LookupRatePerSecond:  20,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.FuzzyThreshold <= 0.0 || c.FuzzyThreshold >= 1.0 {
		return fmt.Errorf("fuzzy_threshold must be in (0.0, 1.0) (got %.2f)", c.FuzzyThreshold)
	}
	if c.FuzzyWindow <= 0 {
		return fmt.Errorf("fuzzy_window must be positive (got %v)", c.FuzzyWindow)
	}
	if c.RecentWindow <= 0 || c.RecentWindow >= c.FuzzyWindow {
		return fmt.Errorf("recent_window must be in (0, %v) (got %v)", c.FuzzyWindow, c.RecentWindow)
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max_candidates must be positive (got %d)", c.MaxCandidates)
	}
	if c.MaxCandidates > 500 {
		return fmt.Errorf("max_candidates too large (got %d, max 500)", c.MaxCandidates)
	}
	if c.MaxConcurrentLookups <= 0 {
		return fmt.Errorf("max_concurrent_lookups must be positive (got %d)", c.MaxConcurrentLookups)
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("lookup_timeout must be positive (got %v)", c.LookupTimeout)
	}
	if c.LookupRatePerSecond <= 0 {
		return fmt.Errorf("lookup_rate_per_second must be positive (got %.1f)", c.LookupRatePerSecond)
	}
	return nil
}

// ConfigFromEnv creates a Config from environment variables, falling back
// to defaults.
//
// Environment variables:
//   - TRIAGE_DEDUP_FUZZY_THRESHOLD: similarity ratio gate (default: 0.95)
//   - TRIAGE_DEDUP_FUZZY_WINDOW_DAYS: fuzzy time window in days (default: 7)
//   - TRIAGE_DEDUP_RECENT_WINDOW_SECS: recent window in seconds (default: 300)
//   - TRIAGE_DEDUP_MAX_CANDIDATES: historical lookup bound (default: 20)
//   - TRIAGE_DEDUP_MAX_CONCURRENT_LOOKUPS: lookup concurrency (default: 4)
//   - TRIAGE_DEDUP_LOOKUP_TIMEOUT_SECS: per-lookup timeout (default: 10)
//   - TRIAGE_DEDUP_LOOKUP_RATE: lookups per second (default: 20)
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if err := config.ParseEnvFloat("TRIAGE_DEDUP_FUZZY_THRESHOLD", &cfg.FuzzyThreshold); err != nil {
		return cfg, err
	}
	if err := config.ParseEnvDuration("TRIAGE_DEDUP_FUZZY_WINDOW_DAYS", &cfg.FuzzyWindow, 24*time.Hour); err != nil {
		return cfg, err
	}
	if err := config.ParseEnvDuration("TRIAGE_DEDUP_RECENT_WINDOW_SECS", &cfg.RecentWindow, time.Second); err != nil {
		return cfg, err
	}
	if err := config.ParseEnvInt("TRIAGE_DEDUP_MAX_CANDIDATES", &cfg.MaxCandidates); err != nil {
		return cfg, err
	}
	if err := config.ParseEnvInt("TRIAGE_DEDUP_MAX_CONCURRENT_LOOKUPS", &cfg.MaxConcurrentLookups); err != nil {
		return cfg, err
	}
	if err := config.ParseEnvDuration("TRIAGE_DEDUP_LOOKUP_TIMEOUT_SECS", &cfg.LookupTimeout, time.Second); err != nil {
		return cfg, err
	}
	if err := config.ParseEnvFloat("TRIAGE_DEDUP_LOOKUP_RATE", &cfg.LookupRatePerSecond); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}
