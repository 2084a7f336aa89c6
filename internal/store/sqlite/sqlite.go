// Package sqlite is the reference backend for the store contracts,
// backed by a local SQLite database. It exists so the pipeline can run
// end-to-end without the platform datastore and so the contracts have an
// executable test target.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/openintake/triage/internal/types"
)

// timeLayout is the canonical timestamp encoding used in every table.
// RFC3339Nano in UTC keeps string comparison equivalent to time ordering.
const timeLayout = time.RFC3339Nano

// SQLiteStore implements the store contracts using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite store at the given path. The special
// value ":memory:" creates an in-memory database, useful for tests.
func Open(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise get its own private
		// in-memory database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// IngestRaw stores a raw record in pending status.
func (s *SQLiteStore) IngestRaw(ctx context.Context, rec *types.RawRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("raw record must have an id")
	}
	attrs, err := json.Marshal(rec.Attrs)
	if err != nil {
		return fmt.Errorf("marshaling attrs for %s: %w", rec.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO raw_records (id, tenant_id, channel, content, received_at, attrs, status)
		VALUES (?, ?, ?, ?, ?, ?, 'pending')
		ON CONFLICT(id) DO NOTHING
	`, rec.ID, rec.TenantID, rec.Channel, rec.Content, rec.ReceivedAt, string(attrs))
	if err != nil {
		return fmt.Errorf("ingesting record %s: %w", rec.ID, err)
	}
	return nil
}

// FetchUnits returns up to limit raw records in the given status for the
// tenant, oldest first.
func (s *SQLiteStore) FetchUnits(ctx context.Context, tenantID, status string, limit int) ([]*types.RawRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, channel, content, received_at, attrs
		FROM raw_records
		WHERE tenant_id = ? AND status = ?
		ORDER BY rowid ASC
		LIMIT ?
	`, tenantID, status, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching units: %w", err)
	}
	defer rows.Close()

	var recs []*types.RawRecord
	for rows.Next() {
		var rec types.RawRecord
		var attrs string
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.Channel, &rec.Content, &rec.ReceivedAt, &attrs); err != nil {
			return nil, fmt.Errorf("scanning raw record: %w", err)
		}
		if attrs != "" && attrs != "null" {
			if err := json.Unmarshal([]byte(attrs), &rec.Attrs); err != nil {
				return nil, fmt.Errorf("unmarshaling attrs for %s: %w", rec.ID, err)
			}
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating raw records: %w", err)
	}
	return recs, nil
}

// MarkProcessed stores each unit's normalized form for future duplicate
// lookups and moves its raw record out of pending status.
func (s *SQLiteStore) MarkProcessed(ctx context.Context, units []*types.InformationUnit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, u := range units {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO units (id, tenant_id, channel, content_hash, sender_email, received_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`, u.ID, u.TenantID, u.Channel, u.ContentHash, u.SenderEmail(), u.ReceivedAt.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("storing unit %s: %w", u.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE raw_records SET status = 'processed' WHERE id = ?`, u.ID); err != nil {
			return fmt.Errorf("marking record %s processed: %w", u.ID, err)
		}
	}
	return tx.Commit()
}
