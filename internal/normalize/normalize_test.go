package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openintake/triage/internal/types"
)

func emailRecord(id, content string) *types.RawRecord {
	return &types.RawRecord{
		ID:         id,
		TenantID:   "tenant-1",
		Channel:    types.ChannelEmail,
		Content:    content,
		ReceivedAt: "2026-08-20T10:00:00Z",
		Attrs: map[string]any{
			"sender_email": "Jeanne.Durand@Cabinet-Martin.fr",
			"sender_name":  "Jeanne Durand",
		},
	}
}

func TestNormalizeIdempotence(t *testing.T) {
	n := New(nil)

	first, err := n.Normalize(emailRecord("u-1", "  Recours gracieux contre la décision du 12 août.  "))
	require.NoError(t, err)
	second, err := n.Normalize(emailRecord("u-1", "  Recours gracieux contre la décision du 12 août.  "))
	require.NoError(t, err)

	assert.Equal(t, first.ContentHash, second.ContentHash)
	assert.Equal(t, first, second)
}

func TestContentHashTrimsWhitespace(t *testing.T) {
	assert.Equal(t, ContentHash("hello"), ContentHash("  hello \n"))
	assert.NotEqual(t, ContentHash("hello"), ContentHash("hello!"))
}

func TestNormalizeRejectsMalformedRecords(t *testing.T) {
	n := New(nil)
	tests := []struct {
		name   string
		record *types.RawRecord
	}{
		{"nil record", nil},
		{"missing id", &types.RawRecord{TenantID: "t", Channel: types.ChannelAPI, Content: "x"}},
		{"missing tenant", &types.RawRecord{ID: "u", Channel: types.ChannelAPI, Content: "x"}},
		{"unknown channel", &types.RawRecord{ID: "u", TenantID: "t", Channel: "FAX", Content: "x"}},
		{"empty content", &types.RawRecord{ID: "u", TenantID: "t", Channel: types.ChannelAPI, Content: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.record)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrValidation)
		})
	}
}

func TestTimestampParsing(t *testing.T) {
	n := New(nil)
	tests := []struct {
		name     string
		raw      string
		expected time.Time
	}{
		{"rfc3339", "2026-08-20T10:30:00Z", time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)},
		{"rfc3339 with offset", "2026-08-20T12:30:00+02:00", time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)},
		{"space separated", "2026-08-20 10:30:00", time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)},
		{"date only", "2026-08-20", time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		{"french date", "20/08/2026", time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		{"epoch seconds", "1755684600", time.Unix(1755684600, 0).UTC()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := emailRecord("u-1", "content")
			rec.ReceivedAt = tt.raw
			unit, err := n.Normalize(rec)
			require.NoError(t, err)
			assert.True(t, unit.ReceivedAt.Equal(tt.expected),
				"got %v, want %v", unit.ReceivedAt, tt.expected)
		})
	}
}

func TestUnparseableTimestampFallsBackToNow(t *testing.T) {
	n := New(nil)
	fixed := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return fixed }

	rec := emailRecord("u-1", "content")
	rec.ReceivedAt = "sometime last Tuesday"
	unit, err := n.Normalize(rec)
	require.NoError(t, err)
	assert.True(t, unit.ReceivedAt.Equal(fixed))
}

func TestChannelMetadataExtraction(t *testing.T) {
	n := New(nil)

	t.Run("email", func(t *testing.T) {
		unit, err := n.Normalize(emailRecord("u-1", "content"))
		require.NoError(t, err)
		assert.Equal(t, "jeanne.durand@cabinet-martin.fr", unit.Metadata["sender_email"])
		assert.Equal(t, "Jeanne Durand", unit.Metadata["sender_name"])
	})

	t.Run("upload", func(t *testing.T) {
		unit, err := n.Normalize(&types.RawRecord{
			ID:       "u-2",
			TenantID: "tenant-1",
			Channel:  types.ChannelUpload,
			Content:  "scanned letter",
			Attrs: map[string]any{
				"uploader":   "agent-7",
				"filename":   "courrier.pdf",
				"mime_type":  "application/pdf",
				"size_bytes": float64(4096), // JSON numbers decode as float64
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "agent-7", unit.Metadata["uploader"])
		assert.Equal(t, "courrier.pdf", unit.Metadata["filename"])
		assert.Equal(t, "application/pdf", unit.Metadata["mime_type"])
		assert.Equal(t, int64(4096), unit.Metadata["size_bytes"])
	})

	t.Run("api", func(t *testing.T) {
		unit, err := n.Normalize(&types.RawRecord{
			ID:       "u-3",
			TenantID: "tenant-1",
			Channel:  types.ChannelAPI,
			Content:  "payload",
			Attrs: map[string]any{
				"caller_id":   "svc-intake",
				"api_version": "v2",
				"due_date":    "2026-09-03",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "svc-intake", unit.Metadata["caller_id"])
		assert.Equal(t, "v2", unit.Metadata["api_version"])
		assert.Equal(t, "2026-09-03", unit.Metadata["due_date"])
	})
}

func TestNormalizeBatchIsolatesFailures(t *testing.T) {
	n := New(nil)
	raws := []*types.RawRecord{
		emailRecord("u-1", "first"),
		{ID: "u-bad", TenantID: "tenant-1", Channel: "FAX", Content: "x"},
		emailRecord("u-3", "third"),
	}

	units, errs := n.NormalizeBatch(raws)
	require.Len(t, units, 2)
	require.Len(t, errs, 1)
	assert.Equal(t, "u-1", units[0].ID)
	assert.Equal(t, "u-3", units[1].ID)
	assert.Equal(t, "u-bad", errs[0].UnitID)
	assert.Equal(t, "NORMALIZE", errs[0].Stage)
}

func TestParseDueDate(t *testing.T) {
	unit := &types.InformationUnit{Metadata: map[string]any{"due_date": "2026-09-03"}}
	due, err := ParseDueDate(unit)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC), due)

	_, err = ParseDueDate(&types.InformationUnit{})
	assert.Error(t, err)

	_, err = ParseDueDate(&types.InformationUnit{Metadata: map[string]any{"due_date": "whenever"}})
	assert.Error(t, err)
}
