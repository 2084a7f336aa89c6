package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openintake/triage/internal/types"
)

const testTenant = "tenant-1"

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func rawRecord(id, content string, receivedAt time.Time) *types.RawRecord {
	return &types.RawRecord{
		ID:         id,
		TenantID:   testTenant,
		Channel:    types.ChannelEmail,
		Content:    content,
		ReceivedAt: receivedAt.Format(time.RFC3339),
		Attrs:      map[string]any{"sender_email": "jeanne@exemple.fr"},
	}
}

func storedUnit(id, hash, sender string, receivedAt time.Time) *types.InformationUnit {
	return &types.InformationUnit{
		ID:          id,
		TenantID:    testTenant,
		Channel:     types.ChannelEmail,
		Content:     "contenu",
		ContentHash: hash,
		ReceivedAt:  receivedAt,
		Metadata:    map[string]any{"sender_email": sender},
	}
}

func TestOpenFileAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "triage.db")
	st, err := Open(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.IngestRaw(ctx, rawRecord("rec-1", "bonjour", time.Now())))
	require.NoError(t, st.Close())

	// Reopening applies the schema again; existing data survives.
	st2, err := Open(path)
	require.NoError(t, err)
	defer st2.Close()
	recs, err := st2.FetchUnits(ctx, testTenant, "pending", 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestIngestRawIsIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	rec := rawRecord("rec-1", "premier contenu", time.Now())

	require.NoError(t, st.IngestRaw(ctx, rec))
	require.NoError(t, st.IngestRaw(ctx, rec))

	recs, err := st.FetchUnits(ctx, testTenant, "pending", 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "premier contenu", recs[0].Content)
	assert.Equal(t, "jeanne@exemple.fr", recs[0].Attrs["sender_email"])
}

func TestIngestRawRejectsMissingID(t *testing.T) {
	st := openTestStore(t)
	assert.Error(t, st.IngestRaw(context.Background(), &types.RawRecord{}))
	assert.Error(t, st.IngestRaw(context.Background(), nil))
}

func TestFetchUnitsOrderAndLimit(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, st.IngestRaw(ctx, rawRecord(fmt.Sprintf("rec-%d", i), "contenu", time.Now())))
	}

	recs, err := st.FetchUnits(ctx, testTenant, "pending", 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	// Oldest first, in insertion order.
	assert.Equal(t, "rec-1", recs[0].ID)
	assert.Equal(t, "rec-3", recs[2].ID)

	none, err := st.FetchUnits(ctx, "other-tenant", "pending", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMarkProcessed(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, st.IngestRaw(ctx, rawRecord("rec-1", "contenu", now)))

	unit := storedUnit("rec-1", "hash-1", "jeanne@exemple.fr", now)
	require.NoError(t, st.MarkProcessed(ctx, []*types.InformationUnit{unit}))

	pending, err := st.FetchUnits(ctx, testTenant, "pending", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	processed, err := st.FetchUnits(ctx, testTenant, "processed", 10)
	require.NoError(t, err)
	assert.Len(t, processed, 1)

	// The normalized form is now visible to duplicate lookups.
	candidates, err := st.FindDuplicateCandidates(ctx, testTenant, "hash-1", "", now, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "rec-1", candidates[0].ID)
}

func TestFindDuplicateCandidates(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	units := []*types.InformationUnit{
		storedUnit("unit-hash", "hash-x", "autre@exemple.fr", now.Add(-30*24*time.Hour)),
		storedUnit("unit-sender-near", "hash-a", "jeanne@exemple.fr", now.Add(-2*24*time.Hour)),
		storedUnit("unit-sender-far", "hash-b", "jeanne@exemple.fr", now.Add(-10*24*time.Hour)),
		storedUnit("unit-unrelated", "hash-c", "autre@exemple.fr", now.Add(-time.Hour)),
	}
	require.NoError(t, st.MarkProcessed(ctx, units))

	candidates, err := st.FindDuplicateCandidates(ctx, testTenant, "hash-x", "jeanne@exemple.fr", now, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	byID := map[string]*types.DuplicateCandidate{}
	for _, c := range candidates {
		byID[c.ID] = c
	}
	// Hash matches have no time bound.
	require.Contains(t, byID, "unit-hash")
	assert.Equal(t, "same_content_hash", byID["unit-hash"].Reason)
	assert.Equal(t, int64(30*24*3600), byID["unit-hash"].TimeDiffSeconds)
	// Sender matches only inside the seven-day window.
	require.Contains(t, byID, "unit-sender-near")
	assert.Equal(t, "same_sender", byID["unit-sender-near"].Reason)
	assert.NotContains(t, byID, "unit-sender-far")
	assert.NotContains(t, byID, "unit-unrelated")
}

func TestFindDuplicateCandidatesIgnoresEmptySender(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, st.MarkProcessed(ctx, []*types.InformationUnit{
		storedUnit("unit-nosender", "hash-a", "", now),
	}))

	// An empty sender never matches other empty senders.
	candidates, err := st.FindDuplicateCandidates(ctx, testTenant, "hash-other", "", now, 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestCountRecentFromSender(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, st.MarkProcessed(ctx, []*types.InformationUnit{
		storedUnit("unit-1", "h1", "jeanne@exemple.fr", now.Add(-2*time.Hour)),
		storedUnit("unit-2", "h2", "jeanne@exemple.fr", now.Add(-20*time.Hour)),
		storedUnit("unit-3", "h3", "jeanne@exemple.fr", now.Add(-40*time.Hour)),
		storedUnit("unit-4", "h4", "autre@exemple.fr", now.Add(-time.Hour)),
	}))

	count, err := st.CountRecentFromSender(ctx, testTenant, "jeanne@exemple.fr", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = st.CountRecentFromSender(ctx, testTenant, "inconnue@exemple.fr", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = st.CountRecentFromSender(ctx, testTenant, "", 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestProposeLinkageIdempotent(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ok, err := st.ProposeLinkage(ctx, testTenant, "unit-a", "unit-b", "EXACT_MATCH", now)
	require.NoError(t, err)
	assert.True(t, ok)

	// Re-proposing the same triple succeeds without a second record.
	ok, err = st.ProposeLinkage(ctx, testTenant, "unit-a", "unit-b", "EXACT_MATCH", now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := st.GetLinkageStatus(ctx, testTenant, "unit-a")
	require.NoError(t, err)
	assert.Len(t, rec.Duplicates, 1)

	_, err = st.ProposeLinkage(ctx, testTenant, "", "unit-b", "EXACT_MATCH", now)
	assert.Error(t, err)
}

func TestGetLinkageStatus(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	_, err := st.ProposeLinkage(ctx, testTenant, "unit-a", "unit-b", "EXACT_MATCH", now)
	require.NoError(t, err)
	_, err = st.ProposeLinkage(ctx, testTenant, "unit-a", "unit-c", "FUZZY_MATCH", now.Add(time.Minute))
	require.NoError(t, err)

	primary, err := st.GetLinkageStatus(ctx, testTenant, "unit-a")
	require.NoError(t, err)
	assert.True(t, primary.IsPrimary)
	assert.Empty(t, primary.IsDuplicateOf)
	assert.ElementsMatch(t, []string{"unit-b", "unit-c"}, primary.Duplicates)

	duplicate, err := st.GetLinkageStatus(ctx, testTenant, "unit-b")
	require.NoError(t, err)
	assert.False(t, duplicate.IsPrimary)
	assert.Equal(t, "unit-a", duplicate.IsDuplicateOf)
	assert.Equal(t, types.LinkageProposed, duplicate.LinkageStatus)
	assert.Equal(t, "EXACT_MATCH", duplicate.Reason)

	unknown, err := st.GetLinkageStatus(ctx, testTenant, "unit-z")
	require.NoError(t, err)
	assert.False(t, unknown.IsPrimary)
	assert.Empty(t, unknown.IsDuplicateOf)
}

func testEvent(id string) *types.EventLog {
	actorID := "agent-7"
	return &types.EventLog{
		ID:         id,
		TenantID:   testTenant,
		Timestamp:  time.Now().UTC(),
		EventType:  types.EventFlowClassified,
		EntityType: "information_unit",
		EntityID:   "unit-1",
		ActorType:  types.ActorUser,
		ActorID:    &actorID,
		Metadata:   map[string]any{"score": 2, "priority": "HIGH"},
		Immutable:  true,
		Checksum:   "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
	}
}

func TestPersistEventsAndLastEventID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	last, err := st.LastEventID(ctx, testTenant)
	require.NoError(t, err)
	assert.Empty(t, last)

	receipt, err := st.PersistEvents(ctx, testTenant, []*types.EventLog{
		testEvent("event-1"), testEvent("event-2"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, receipt.CreatedCount)
	assert.Equal(t, 0, receipt.FailedCount)

	last, err = st.LastEventID(ctx, testTenant)
	require.NoError(t, err)
	assert.Equal(t, "event-2", last)
}

func TestPersistEventsCollectsInvalidEvents(t *testing.T) {
	st := openTestStore(t)
	bad := testEvent("event-bad")
	bad.Checksum = ""

	receipt, err := st.PersistEvents(context.Background(), testTenant, []*types.EventLog{
		testEvent("event-good"), bad,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.CreatedCount)
	assert.Equal(t, 1, receipt.FailedCount)
	require.Len(t, receipt.Errors, 1)
	assert.Contains(t, receipt.Errors[0], "event-bad")
}

func TestRecentEventsRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	first := testEvent("event-1")
	second := testEvent("event-2")
	second.PreviousEventID = "event-1"

	_, err := st.PersistEvents(ctx, testTenant, []*types.EventLog{first, second})
	require.NoError(t, err)

	recent, err := st.RecentEvents(ctx, testTenant, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Most recent first.
	got := recent[0]
	assert.Equal(t, "event-2", got.ID)
	assert.Equal(t, "event-1", got.PreviousEventID)
	assert.Equal(t, types.EventFlowClassified, got.EventType)
	require.NotNil(t, got.ActorID)
	assert.Equal(t, "agent-7", *got.ActorID)
	assert.True(t, got.Immutable)
	// JSON numbers come back as float64; content is otherwise intact.
	assert.Equal(t, float64(2), got.Metadata["score"])
	assert.Equal(t, "HIGH", got.Metadata["priority"])
}
