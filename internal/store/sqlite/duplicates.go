package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openintake/triage/internal/types"
)

// FindDuplicateCandidates returns stored units that may duplicate the
// described unit: any unit with the same content hash (no time bound), or
// any unit from the same sender received within seven days. Results are
// ordered by proximity in time and bounded by limit.
func (s *SQLiteStore) FindDuplicateCandidates(ctx context.Context, tenantID, contentHash, senderEmail string, receivedAt time.Time, limit int) ([]*types.DuplicateCandidate, error) {
	if limit <= 0 {
		limit = 20
	}
	ref := receivedAt.UTC()
	windowStart := ref.Add(-7 * 24 * time.Hour).Format(timeLayout)
	windowEnd := ref.Add(7 * 24 * time.Hour).Format(timeLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content_hash, sender_email, received_at
		FROM units
		WHERE tenant_id = ?
		  AND (content_hash = ?
		       OR (sender_email != '' AND sender_email = ? AND received_at BETWEEN ? AND ?))
		ORDER BY received_at DESC
		LIMIT ?
	`, tenantID, contentHash, senderEmail, windowStart, windowEnd, limit)
	if err != nil {
		return nil, fmt.Errorf("querying duplicate candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*types.DuplicateCandidate
	for rows.Next() {
		var c types.DuplicateCandidate
		var receivedRaw string
		if err := rows.Scan(&c.ID, &c.ContentHash, &c.SenderEmail, &receivedRaw); err != nil {
			return nil, fmt.Errorf("scanning candidate: %w", err)
		}
		stored, err := time.Parse(timeLayout, receivedRaw)
		if err != nil {
			return nil, fmt.Errorf("parsing stored timestamp for %s: %w", c.ID, err)
		}
		diff := ref.Sub(stored)
		if diff < 0 {
			diff = -diff
		}
		c.TimeDiffSeconds = int64(diff / time.Second)
		if c.ContentHash == contentHash {
			c.Reason = "same_content_hash"
		} else {
			c.Reason = "same_sender"
		}
		candidates = append(candidates, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidates: %w", err)
	}
	return candidates, nil
}

// CountRecentFromSender counts units received from the sender within the
// rolling window ending now.
func (s *SQLiteStore) CountRecentFromSender(ctx context.Context, tenantID, senderEmail string, window time.Duration) (int, error) {
	if senderEmail == "" {
		return 0, nil
	}
	since := time.Now().UTC().Add(-window).Format(timeLayout)
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM units
		WHERE tenant_id = ? AND sender_email = ? AND received_at >= ?
	`, tenantID, senderEmail, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting recent submissions: %w", err)
	}
	return count, nil
}

// ProposeLinkage records a duplicate proposal. Idempotent on
// (primary, duplicate, reason): re-proposing succeeds without creating a
// second record.
func (s *SQLiteStore) ProposeLinkage(ctx context.Context, tenantID, primaryID, duplicateID, reason string, proposedAt time.Time) (bool, error) {
	if primaryID == "" || duplicateID == "" {
		return false, fmt.Errorf("linkage requires primary and duplicate ids")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO linkages (tenant_id, primary_id, duplicate_id, reason, status, proposed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(primary_id, duplicate_id, reason) DO NOTHING
	`, tenantID, primaryID, duplicateID, reason, types.LinkageProposed, proposedAt.UTC().Format(timeLayout))
	if err != nil {
		return false, fmt.Errorf("proposing linkage %s->%s: %w", primaryID, duplicateID, err)
	}
	return true, nil
}

// GetLinkageStatus reports the linkage state of a unit: whether it is the
// duplicate side of a proposal, and which proposals name it as primary.
func (s *SQLiteStore) GetLinkageStatus(ctx context.Context, tenantID, unitID string) (*types.LinkageRecord, error) {
	rec := &types.LinkageRecord{UnitID: unitID, LinkageStatus: types.LinkageProposed}

	// The unit as duplicate side (at most one live proposal matters; take
	// the most recent).
	row := s.db.QueryRowContext(ctx, `
		SELECT primary_id, status, reason, linked_at, linked_by
		FROM linkages
		WHERE tenant_id = ? AND duplicate_id = ?
		ORDER BY proposed_at DESC
		LIMIT 1
	`, tenantID, unitID)
	var linkedAt, linkedBy *string
	var status string
	err := row.Scan(&rec.IsDuplicateOf, &status, &rec.Reason, &linkedAt, &linkedBy)
	switch {
	case err == nil:
		rec.LinkageStatus = types.LinkageStatus(status)
		if linkedBy != nil {
			rec.LinkedBy = *linkedBy
		}
		if linkedAt != nil {
			if t, perr := time.Parse(timeLayout, *linkedAt); perr == nil {
				rec.LinkedAt = &t
			}
		}
	case errors.Is(err, sql.ErrNoRows):
		// Not a duplicate side of anything.
	default:
		return nil, fmt.Errorf("querying linkage status for %s: %w", unitID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT duplicate_id FROM linkages
		WHERE tenant_id = ? AND primary_id = ?
		ORDER BY proposed_at ASC
	`, tenantID, unitID)
	if err != nil {
		return nil, fmt.Errorf("querying duplicates of %s: %w", unitID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var dup string
		if err := rows.Scan(&dup); err != nil {
			return nil, fmt.Errorf("scanning duplicate id: %w", err)
		}
		rec.Duplicates = append(rec.Duplicates, dup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duplicates: %w", err)
	}
	rec.IsPrimary = len(rec.Duplicates) > 0
	return rec, nil
}
