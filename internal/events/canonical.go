package events

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/openintake/triage/internal/types"
)

// Canonicalize serializes a metadata value to its canonical byte form:
// JSON with lexicographically sorted object keys at every depth and no
// insignificant whitespace. Identical logical content always produces
// identical bytes, which is what makes the checksum replayable.
//
// The value is round-tripped through generic JSON first so struct field
// order, map insertion order, and numeric types all collapse to the same
// normalized representation.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, types.IntegrityErrorf("metadata is not serializable: %v", err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, types.IntegrityErrorf("metadata round-trip failed: %v", err)
	}
	// encoding/json sorts map keys on marshal, so the normalized form is
	// canonical by construction.
	canonical, err := json.Marshal(normalized)
	if err != nil {
		return nil, types.IntegrityErrorf("canonical marshal failed: %v", err)
	}
	return canonical, nil
}

// Checksum computes the 256-bit content hash over the canonical byte form
// of v, hex encoded. Canonicalization is performed twice and compared;
// a mismatch means the checksum guarantee is broken and is fatal.
func Checksum(v any) (string, error) {
	first, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	second, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	if !bytes.Equal(first, second) {
		return "", types.IntegrityErrorf("canonicalization is not deterministic")
	}
	sum := sha256.Sum256(first)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyChecksum recomputes the checksum of an event's metadata and
// reports whether it matches the stored value.
func VerifyChecksum(e *types.EventLog) (bool, error) {
	computed, err := Checksum(e.Metadata)
	if err != nil {
		return false, err
	}
	return computed == e.Checksum, nil
}
