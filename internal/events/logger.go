// Package events builds and persists the immutable audit trail: every
// pipeline decision becomes an EventLog with a checksum over its
// canonical metadata bytes, chained to the tenant's previous event and
// written to the sink in one batched call.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openintake/triage/internal/store"
	"github.com/openintake/triage/internal/types"
)

// Logger assembles audit events and batches them to a sink. Safe for
// concurrent use; the per-tenant chain pointer is the only mutable state.
type Logger struct {
	sink store.EventSink
	log  *slog.Logger
	now  func() time.Time

	mu     sync.Mutex
	lastID map[string]string // tenant -> last built event ID
}

// NewLogger creates a Logger writing to the given sink. A nil logger
// falls back to slog.Default().
func NewLogger(sink store.EventSink, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		sink:   sink,
		log:    logger,
		now:    time.Now,
		lastID: make(map[string]string),
	}
}

// BuildEvent assembles one immutable audit event. The checksum covers the
// canonical form of metadata only, so replaying the same metadata always
// reproduces the same checksum. PreviousEventID chains the event to the
// tenant's previous one: the chain is seeded lazily from the sink's most
// recent persisted event and advanced per built event. Chaining is
// advisory; a failed seed lookup starts a fresh chain rather than
// failing the build.
func (l *Logger) BuildEvent(ctx context.Context, eventType types.EventType, entityType, entityID, tenantID string, actor types.ActorType, actorID string, metadata map[string]any) (*types.EventLog, error) {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	checksum, err := Checksum(metadata)
	if err != nil {
		// Integrity errors are the only fatal class: a non-deterministic
		// canonicalization would poison the audit trail.
		return nil, err
	}

	var actorPtr *string
	if actorID != "" {
		actorPtr = &actorID
	}

	event := &types.EventLog{
		ID:              uuid.New().String(),
		TenantID:        tenantID,
		Timestamp:       l.now().UTC(),
		EventType:       eventType,
		EntityType:      entityType,
		EntityID:        entityID,
		ActorType:       actor,
		ActorID:         actorPtr,
		Metadata:        metadata,
		Immutable:       true,
		Checksum:        checksum,
		PreviousEventID: l.advanceChain(ctx, tenantID),
	}
	l.mu.Lock()
	l.lastID[tenantID] = event.ID
	l.mu.Unlock()
	return event, nil
}

// advanceChain returns the previous event ID for the tenant, seeding from
// the sink on first use.
func (l *Logger) advanceChain(ctx context.Context, tenantID string) string {
	l.mu.Lock()
	prev, seeded := l.lastID[tenantID]
	l.mu.Unlock()
	if seeded {
		return prev
	}
	last, err := l.sink.LastEventID(ctx, tenantID)
	if err != nil {
		l.log.Warn("could not seed event chain, starting fresh",
			"tenant", tenantID, "error", err)
		return ""
	}
	return last
}

// Persist writes the batch to the sink in one call. Sink unreachability
// is reported as all-failed rather than raised, so the caller can finish
// the run and surface the failure in its summary.
func (l *Logger) Persist(ctx context.Context, tenantID string, events []*types.EventLog) *types.PersistReceipt {
	if len(events) == 0 {
		return &types.PersistReceipt{}
	}
	receipt, err := l.sink.PersistEvents(ctx, tenantID, events)
	if err != nil {
		l.log.Warn("event sink unreachable, reporting batch as failed",
			"tenant", tenantID, "events", len(events), "error", err)
		return &types.PersistReceipt{
			FailedCount: len(events),
			Errors:      []string{types.TransportErrorf("persisting events: %v", err).Error()},
		}
	}
	if receipt.FailedCount > 0 {
		l.log.Warn("some events failed to persist",
			"tenant", tenantID, "created", receipt.CreatedCount, "failed", receipt.FailedCount)
	}
	return receipt
}
