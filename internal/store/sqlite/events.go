package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openintake/triage/internal/types"
)

// PersistEvents stores the batch and reports per-batch counts. Individual
// insert failures are collected into the receipt rather than aborting the
// batch; events are append-only so there is no update path.
func (s *SQLiteStore) PersistEvents(ctx context.Context, tenantID string, events []*types.EventLog) (*types.PersistReceipt, error) {
	receipt := &types.PersistReceipt{}
	for _, e := range events {
		if err := e.Validate(); err != nil {
			receipt.FailedCount++
			receipt.Errors = append(receipt.Errors, fmt.Sprintf("event %s: %v", e.ID, err))
			continue
		}
		metadata, err := json.Marshal(e.Metadata)
		if err != nil {
			receipt.FailedCount++
			receipt.Errors = append(receipt.Errors, fmt.Sprintf("event %s: marshaling metadata: %v", e.ID, err))
			continue
		}
		var prev any
		if e.PreviousEventID != "" {
			prev = e.PreviousEventID
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO events (id, tenant_id, timestamp, event_type, entity_type, entity_id,
			                    actor_type, actor_id, metadata, immutable, checksum, previous_event_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		`, e.ID, tenantID, e.Timestamp.UTC().Format(timeLayout), e.EventType, e.EntityType,
			e.EntityID, e.ActorType, e.ActorID, string(metadata), e.Checksum, prev)
		if err != nil {
			receipt.FailedCount++
			receipt.Errors = append(receipt.Errors, fmt.Sprintf("event %s: %v", e.ID, err))
			continue
		}
		receipt.CreatedCount++
	}
	return receipt, nil
}

// LastEventID returns the most recently persisted event ID for the
// tenant, or "" when none exist.
func (s *SQLiteStore) LastEventID(ctx context.Context, tenantID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM events WHERE tenant_id = ? ORDER BY rowid DESC LIMIT 1
	`, tenantID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying last event id: %w", err)
	}
	return id, nil
}

// RecentEvents returns up to limit events for the tenant, most recent
// first. Used by the CLI events view.
func (s *SQLiteStore) RecentEvents(ctx context.Context, tenantID string, limit int) ([]*types.EventLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, timestamp, event_type, entity_type, entity_id,
		       actor_type, actor_id, metadata, checksum, previous_event_id
		FROM events
		WHERE tenant_id = ?
		ORDER BY rowid DESC
		LIMIT ?
	`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []*types.EventLog
	for rows.Next() {
		var e types.EventLog
		var ts, metadata string
		var prev sql.NullString
		if err := rows.Scan(&e.ID, &e.TenantID, &ts, &e.EventType, &e.EntityType, &e.EntityID,
			&e.ActorType, &e.ActorID, &metadata, &e.Checksum, &prev); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if e.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("parsing event timestamp for %s: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling event metadata for %s: %w", e.ID, err)
		}
		e.Immutable = true
		if prev.Valid {
			e.PreviousEventID = prev.String
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return out, nil
}
