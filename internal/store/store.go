// Package store defines the collaborator contracts the triage core
// consumes: the raw-record source, the duplicate index, linkage
// proposals, and the audit event sink. The sqlite subpackage provides a
// reference backend implementing all of them; production deployments are
// expected to substitute the platform datastore behind these interfaces.
package store

import (
	"context"
	"time"

	"github.com/openintake/triage/internal/types"
)

// Source delivers raw inbound records awaiting triage.
type Source interface {
	// FetchUnits returns up to limit raw records in the given processing
	// status for the tenant, oldest first.
	FetchUnits(ctx context.Context, tenantID, status string, limit int) ([]*types.RawRecord, error)
}

// DuplicateIndex answers historical duplicate and repetition queries.
type DuplicateIndex interface {
	// FindDuplicateCandidates returns previously stored units that may
	// duplicate the described unit, matched on content hash or sender
	// metadata. Results are bounded by limit.
	FindDuplicateCandidates(ctx context.Context, tenantID, contentHash, senderEmail string, receivedAt time.Time, limit int) ([]*types.DuplicateCandidate, error)

	// CountRecentFromSender counts units received from the sender within
	// the rolling window ending now.
	CountRecentFromSender(ctx context.Context, tenantID, senderEmail string, window time.Duration) (int, error)
}

// Linkage records and reports duplicate linkage proposals.
type Linkage interface {
	// ProposeLinkage records a duplicate proposal. It is idempotent on
	// (primary, duplicate, reason): re-proposing an existing linkage
	// succeeds without creating a second record. The bool reports whether
	// the proposal now exists.
	ProposeLinkage(ctx context.Context, tenantID, primaryID, duplicateID, reason string, proposedAt time.Time) (bool, error)

	// GetLinkageStatus reports the linkage state of a unit.
	GetLinkageStatus(ctx context.Context, tenantID, unitID string) (*types.LinkageRecord, error)
}

// EventSink persists audit events in batches.
type EventSink interface {
	// PersistEvents stores the batch in one call and reports per-batch
	// counts. Partial failures are reported in the receipt, not raised.
	PersistEvents(ctx context.Context, tenantID string, events []*types.EventLog) (*types.PersistReceipt, error)

	// LastEventID returns the ID of the most recently persisted event for
	// the tenant, or "" when none exist.
	LastEventID(ctx context.Context, tenantID string) (string, error)
}

// Store combines every collaborator contract plus ingestion, which the
// CLI uses to seed records for end-to-end runs.
type Store interface {
	Source
	DuplicateIndex
	Linkage
	EventSink

	// IngestRaw stores a raw record in pending status.
	IngestRaw(ctx context.Context, rec *types.RawRecord) error

	// MarkProcessed moves raw records out of pending status and stores
	// their normalized form for future duplicate lookups.
	MarkProcessed(ctx context.Context, units []*types.InformationUnit) error

	Close() error
}
