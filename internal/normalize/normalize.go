// Package normalize converts raw inbound records into canonical
// InformationUnits: it trims content, computes the deterministic content
// hash, parses heterogeneous timestamp formats, and extracts
// channel-specific source metadata.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/openintake/triage/internal/types"
)

// timestampLayouts are tried in order when parsing a raw received_at
// value. Sources deliver everything from RFC3339 to bare dates.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"02/01/2006 15:04",
	"2006-01-02",
	"02/01/2006",
}

// Normalizer converts RawRecords into InformationUnits. It is stateless
// apart from its clock and safe for concurrent use.
type Normalizer struct {
	log *slog.Logger
	now func() time.Time
}

// New creates a Normalizer. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{log: logger, now: time.Now}
}

// ContentHash computes the deterministic content hash: SHA-256 over the
// UTF-8 bytes of the whitespace-trimmed content, hex encoded. The hash is
// a pure function of normalized content, so identical submissions always
// collide.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(content)))
	return hex.EncodeToString(sum[:])
}

// Normalize converts one raw record into an InformationUnit. It returns a
// ValidationError for structurally unusable records (missing id, tenant,
// unknown channel, empty content). Unparseable timestamps are not an
// error: they degrade to the current time.
func (n *Normalizer) Normalize(raw *types.RawRecord) (*types.InformationUnit, error) {
	if raw == nil {
		return nil, types.ValidationErrorf("raw record is nil")
	}
	if raw.ID == "" {
		return nil, types.ValidationErrorf("raw record has no id")
	}
	if raw.TenantID == "" {
		return nil, types.ValidationErrorf("record %s has no tenant_id", raw.ID)
	}
	if !raw.Channel.IsValid() {
		return nil, types.ValidationErrorf("record %s has unknown channel %q", raw.ID, raw.Channel)
	}

	content := strings.TrimSpace(raw.Content)
	if content == "" {
		return nil, types.ValidationErrorf("record %s has empty content", raw.ID)
	}

	receivedAt, ok := n.parseTimestamp(raw.ReceivedAt)
	if !ok {
		n.log.Warn("unparseable received_at, falling back to now",
			"record", raw.ID, "value", raw.ReceivedAt)
	}

	unit := &types.InformationUnit{
		ID:          raw.ID,
		TenantID:    raw.TenantID,
		Channel:     raw.Channel,
		Content:     content,
		ContentHash: ContentHash(content),
		ReceivedAt:  receivedAt,
		Metadata:    extractMetadata(raw),
	}
	if err := unit.Validate(); err != nil {
		return nil, types.ValidationErrorf("record %s: %v", raw.ID, err)
	}
	return unit, nil
}

// NormalizeBatch normalizes every record, isolating per-record failures so
// one bad record never aborts the batch. Failures come back as UnitErrors
// in input order.
func (n *Normalizer) NormalizeBatch(raws []*types.RawRecord) ([]*types.InformationUnit, []types.UnitError) {
	units := make([]*types.InformationUnit, 0, len(raws))
	var errs []types.UnitError
	for _, raw := range raws {
		unit, err := n.Normalize(raw)
		if err != nil {
			id := ""
			if raw != nil {
				id = raw.ID
			}
			n.log.Info("skipping record", "record", id, "error", err)
			errs = append(errs, types.UnitError{UnitID: id, Stage: "NORMALIZE", Message: err.Error()})
			continue
		}
		units = append(units, unit)
	}
	return units, errs
}

// parseTimestamp tries the known layouts, then epoch seconds. The second
// return reports whether the raw value parsed; on false the current time
// is returned.
func (n *Normalizer) parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return n.now().UTC(), false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC(), true
	}
	return n.now().UTC(), false
}

// extractMetadata pulls channel-specific fields out of the raw attrs.
// Unknown attrs are dropped; the unit only carries what the pipeline and
// downstream consumers understand.
func extractMetadata(raw *types.RawRecord) map[string]any {
	meta := make(map[string]any)
	get := func(key string) (string, bool) {
		if raw.Attrs == nil {
			return "", false
		}
		s, ok := raw.Attrs[key].(string)
		return s, ok && s != ""
	}

	switch raw.Channel {
	case types.ChannelEmail:
		if v, ok := get("sender_email"); ok {
			meta["sender_email"] = strings.ToLower(strings.TrimSpace(v))
		}
		if v, ok := get("sender_name"); ok {
			meta["sender_name"] = v
		}
		if headers, ok := raw.Attrs["headers"].(map[string]any); ok {
			meta["headers"] = headers
		}
	case types.ChannelUpload:
		if v, ok := get("uploader"); ok {
			meta["uploader"] = v
		}
		if v, ok := get("filename"); ok {
			meta["filename"] = v
		}
		if v, ok := get("mime_type"); ok {
			meta["mime_type"] = v
		}
		if size, ok := toInt64(raw.Attrs["size_bytes"]); ok {
			meta["size_bytes"] = size
		}
	case types.ChannelAPI:
		if v, ok := get("caller_id"); ok {
			meta["caller_id"] = v
		}
		if v, ok := get("api_version"); ok {
			meta["api_version"] = v
		}
	}

	// Carried regardless of channel when present: an explicit due date
	// and a sender address (uploads and API calls may still name one).
	if raw.Attrs != nil {
		if _, have := meta["sender_email"]; !have {
			if s, ok := raw.Attrs["sender_email"].(string); ok && s != "" {
				meta["sender_email"] = strings.ToLower(strings.TrimSpace(s))
			}
		}
		if s, ok := raw.Attrs["due_date"].(string); ok && s != "" {
			meta["due_date"] = s
		}
	}
	return meta
}

// toInt64 coerces the numeric types JSON decoding can produce.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// ParseDueDate resolves an explicit due_date metadata value. It accepts
// the same layouts as received_at parsing but never falls back to now: an
// unparseable due date is simply absent.
func ParseDueDate(unit *types.InformationUnit) (time.Time, error) {
	if unit.Metadata == nil {
		return time.Time{}, fmt.Errorf("no metadata")
	}
	raw, ok := unit.Metadata["due_date"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return time.Time{}, fmt.Errorf("no due_date")
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable due_date %q", raw)
}
