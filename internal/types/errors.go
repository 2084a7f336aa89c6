package types

import (
	"errors"
	"fmt"
)

// Error taxonomy for the triage core. Every error surfaced by a pipeline
// stage wraps exactly one of these sentinels so callers can classify with
// errors.Is.
var (
	// ErrValidation marks a malformed raw record. Recovered locally:
	// the record is skipped and the failure is collected into the run
	// error list.
	ErrValidation = errors.New("validation error")

	// ErrTransport marks a failed or timed-out external call. Recovered
	// locally: the operation yields an empty or degraded result (zero
	// historical candidates, repetition count 1, persistence all-failed).
	ErrTransport = errors.New("transport error")

	// ErrIntegrity marks non-deterministic canonicalization output. This
	// is the only fatal class: it would break the checksum guarantee.
	ErrIntegrity = errors.New("integrity error")
)

// ValidationErrorf wraps ErrValidation with a formatted message.
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// TransportErrorf wraps ErrTransport with a formatted message.
func TransportErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrTransport}, args...)...)
}

// IntegrityErrorf wraps ErrIntegrity with a formatted message.
func IntegrityErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrIntegrity}, args...)...)
}
