// Package config holds shared helpers for environment-driven
// configuration. Each component defines its own Config struct with
// DefaultConfig(), Validate(), and ConfigFromEnv() built on these
// parsers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ParseEnvFloat parses a float64 from an environment variable.
// An unset variable leaves dest untouched (the default stands).
func ParseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// ParseEnvInt parses an int from an environment variable.
func ParseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// ParseEnvBool parses a bool from an environment variable.
func ParseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// ParseEnvDuration parses a duration from an environment variable.
// The multiplier converts the numeric value to a duration
// (e.g. for days: multiplier = 24*time.Hour).
func ParseEnvDuration(key string, dest *time.Duration, multiplier time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(parsed) * multiplier
	return nil
}

// ParseEnvString reads a string from an environment variable.
func ParseEnvString(key string, dest *string) {
	if value := os.Getenv(key); value != "" {
		*dest = value
	}
}
