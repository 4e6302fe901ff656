package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS signals (
	id                        TEXT PRIMARY KEY,
	question                  TEXT NOT NULL,
	publisher_name            TEXT NOT NULL DEFAULT '',
	deadline                  DATETIME NOT NULL,
	consumers                 TEXT NOT NULL DEFAULT '[]',
	is_persistent_final_alert INTEGER NOT NULL DEFAULT 0,
	default_response          TEXT NOT NULL DEFAULT '',
	answered                  INTEGER NOT NULL DEFAULT 0,
	created_at                DATETIME NOT NULL,
	updated_at                DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notified_keys (
	kind       TEXT NOT NULL,
	key        TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (kind, key)
);

CREATE TABLE IF NOT EXISTS drafts (
	signal_id TEXT PRIMARY KEY,
	text      TEXT NOT NULL,
	saved_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	signal_id  TEXT NOT NULL,
	kind       TEXT NOT NULL,
	message    TEXT NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_signals_deadline ON signals(deadline);
CREATE INDEX IF NOT EXISTS idx_signals_answered ON signals(answered);
CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
