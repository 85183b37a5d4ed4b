package store

import (
	"database/sql"
	"fmt"

	"cortexmcp/internal/logging"
)

// currentSchemaVersion is the highest migration this binary knows how to
// apply. A database whose schema_version exceeds this is a downgrade and is
// refused (spec.md §4.1).
const currentSchemaVersion = 1

// migrations are additive and idempotent: each uses CREATE TABLE IF NOT
// EXISTS / CREATE INDEX IF NOT EXISTS so re-running a migration (or opening
// an already-migrated database) is a no-op.
var migrations = []func(*sql.Tx) error{
	migration1,
}

func migration1(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_type TEXT NOT NULL,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			diff TEXT,
			file TEXT,
			metadata TEXT,
			timestamp INTEGER NOT NULL,
			processed INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS memory_units (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			intent TEXT NOT NULL,
			normalized_intent TEXT NOT NULL,
			action TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			impact TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL DEFAULT 'unknown',
			related_files TEXT NOT NULL DEFAULT '[]',
			tags TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			timestamp INTEGER NOT NULL,
			confidence REAL NOT NULL DEFAULT 0.5,
			importance REAL NOT NULL DEFAULT 0.5,
			access_count INTEGER NOT NULL DEFAULT 0,
			last_accessed INTEGER NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1,
			superseded_by TEXT,
			source_event_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_active_ts ON memory_units(is_active, timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_kind ON memory_units(kind) WHERE is_active = 1`,
		`CREATE INDEX IF NOT EXISTS idx_memory_created ON memory_units(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_norm_intent ON memory_units(kind, normalized_intent) WHERE is_active = 1`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS memory_fts USING fts5(
			intent, action, reason, impact, tags,
			content='memory_units', content_rowid='rowid',
			tokenize='porter unicode61'
		)`,
		`CREATE TRIGGER IF NOT EXISTS memory_fts_ai AFTER INSERT ON memory_units BEGIN
			INSERT INTO memory_fts(rowid, intent, action, reason, impact, tags)
			VALUES (new.rowid, new.intent, new.action, new.reason, new.impact, new.tags);
		END`,
		`CREATE TRIGGER IF NOT EXISTS memory_fts_ad AFTER DELETE ON memory_units BEGIN
			INSERT INTO memory_fts(memory_fts, rowid, intent, action, reason, impact, tags)
			VALUES ('delete', old.rowid, old.intent, old.action, old.reason, old.impact, old.tags);
		END`,
		`CREATE TRIGGER IF NOT EXISTS memory_fts_au AFTER UPDATE ON memory_units BEGIN
			INSERT INTO memory_fts(memory_fts, rowid, intent, action, reason, impact, tags)
			VALUES ('delete', old.rowid, old.intent, old.action, old.reason, old.impact, old.tags);
			INSERT INTO memory_fts(rowid, intent, action, reason, impact, tags)
			VALUES (new.rowid, new.intent, new.action, new.reason, new.impact, new.tags);
		END`,

		`CREATE TABLE IF NOT EXISTS edges (
			source_id TEXT NOT NULL,
			target_id TEXT NOT NULL,
			relation TEXT NOT NULL,
			weight REAL NOT NULL DEFAULT 1.0,
			timestamp INTEGER NOT NULL,
			PRIMARY KEY (source_id, target_id, relation)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id)`,

		`CREATE TABLE IF NOT EXISTS memory_vectors (
			id TEXT PRIMARY KEY,
			embedding BLOB NOT NULL,
			dim INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS user_signals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id TEXT NOT NULL,
			signal TEXT NOT NULL,
			weight REAL NOT NULL DEFAULT 1.0,
			timestamp INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS feedback_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id TEXT NOT NULL,
			feedback TEXT NOT NULL,
			timestamp INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS identity (
			workspace_root TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS daily_summaries (
			day TEXT PRIMARY KEY,
			topic TEXT,
			summary TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS adaptive_config (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("migration1: %w (statement: %s)", err, stmt)
		}
	}
	return nil
}

// migrate reads schema_version and applies any migrations newer than it,
// each inside its own transaction. A stored version higher than
// currentSchemaVersion is a downgrade attempt and is refused.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	version := 0
	row := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`)
	if err := row.Scan(&version); err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("read schema_version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema_version %d is newer than this binary supports (%d); refusing to downgrade", version, currentSchemaVersion)
	}

	for i := version; i < len(migrations); i++ {
		logging.Get(logging.CategoryStore).Info("applying schema migration %d", i+1)
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}
		if err := migrations[i](tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	if _, err := db.Exec(`DELETE FROM schema_version`); err != nil {
		return fmt.Errorf("reset schema_version: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO schema_version(version) VALUES (?)`, len(migrations)); err != nil {
		return fmt.Errorf("write schema_version: %w", err)
	}
	return nil
}
