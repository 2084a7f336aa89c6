package sqlite

// schema is the full database schema, applied on open. Every statement is
// idempotent so reopening an existing database is safe.
const schema = `
CREATE TABLE IF NOT EXISTS raw_records (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	channel     TEXT NOT NULL,
	content     TEXT NOT NULL,
	received_at TEXT NOT NULL,
	attrs       TEXT NOT NULL DEFAULT '{}',
	status      TEXT NOT NULL DEFAULT 'pending'
);

CREATE INDEX IF NOT EXISTS idx_raw_records_tenant_status
	ON raw_records(tenant_id, status);

CREATE TABLE IF NOT EXISTS units (
	id           TEXT PRIMARY KEY,
	tenant_id    TEXT NOT NULL,
	channel      TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	sender_email TEXT NOT NULL DEFAULT '',
	received_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_units_tenant_hash
	ON units(tenant_id, content_hash);
CREATE INDEX IF NOT EXISTS idx_units_tenant_sender
	ON units(tenant_id, sender_email, received_at);

CREATE TABLE IF NOT EXISTS linkages (
	tenant_id    TEXT NOT NULL,
	primary_id   TEXT NOT NULL,
	duplicate_id TEXT NOT NULL,
	reason       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'PROPOSED',
	proposed_at  TEXT NOT NULL,
	linked_at    TEXT,
	linked_by    TEXT,
	UNIQUE(primary_id, duplicate_id, reason)
);

CREATE INDEX IF NOT EXISTS idx_linkages_tenant_unit
	ON linkages(tenant_id, duplicate_id);

CREATE TABLE IF NOT EXISTS events (
	id                TEXT PRIMARY KEY,
	tenant_id         TEXT NOT NULL,
	timestamp         TEXT NOT NULL,
	event_type        TEXT NOT NULL,
	entity_type       TEXT NOT NULL,
	entity_id         TEXT NOT NULL,
	actor_type        TEXT NOT NULL,
	actor_id          TEXT,
	metadata          TEXT NOT NULL,
	immutable         INTEGER NOT NULL DEFAULT 1,
	checksum          TEXT NOT NULL,
	previous_event_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_events_tenant
	ON events(tenant_id);
CREATE INDEX IF NOT EXISTS idx_events_entity
	ON events(entity_type, entity_id);
`
