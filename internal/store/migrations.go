// Package store implements the SQLite state store: schema migrations and
// repositories for runs, items, and http_cache. Grounded on the teacher's
// internal/infra/db (connection handling, migration-runner shape) and on
// original_source/src/features/store/migrations.py for the exact migration
// contract (ordered up/down SQL, idempotent apply, rollback-to-version).
package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration is one ordered schema change: Version is the schema version in
// effect after UpSQL runs; DownSQL must exactly undo UpSQL.
type Migration struct {
	Version     int
	Description string
	UpSQL       string
	DownSQL     string
}

// Migrations holds every schema change in application order. Adding a new
// one means appending a new Migration with Version = len(Migrations)+1 and
// never editing an already-shipped entry.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema with runs, items, and http_cache tables",
		UpSQL: `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    success INTEGER,
    error_summary TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_success ON runs(success);

CREATE TABLE IF NOT EXISTS http_cache (
    source_id TEXT PRIMARY KEY,
    etag TEXT,
    last_modified TEXT,
    last_status INTEGER,
    last_fetch_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    url TEXT PRIMARY KEY,
    source_id TEXT NOT NULL,
    tier INTEGER NOT NULL,
    kind TEXT NOT NULL,
    title TEXT NOT NULL,
    published_at TEXT,
    date_confidence TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    raw_json TEXT NOT NULL,
    first_seen_at TEXT NOT NULL,
    last_seen_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_items_source_id ON items(source_id);
CREATE INDEX IF NOT EXISTS idx_items_first_seen_at ON items(first_seen_at);
CREATE INDEX IF NOT EXISTS idx_items_last_seen_at ON items(last_seen_at);
CREATE INDEX IF NOT EXISTS idx_items_content_hash ON items(content_hash);
`,
		DownSQL: `
DROP INDEX IF EXISTS idx_items_content_hash;
DROP INDEX IF EXISTS idx_items_last_seen_at;
DROP INDEX IF EXISTS idx_items_first_seen_at;
DROP INDEX IF EXISTS idx_items_source_id;
DROP TABLE IF EXISTS items;
DROP TABLE IF EXISTS http_cache;
DROP INDEX IF EXISTS idx_runs_success;
DROP INDEX IF EXISTS idx_runs_started_at;
DROP TABLE IF EXISTS runs;
`,
	},
}

const versionTableSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL,
    description TEXT
);
`

// MigrationManager applies and rolls back Migrations against a *sql.DB.
type MigrationManager struct {
	db *sql.DB
}

func NewMigrationManager(db *sql.DB) *MigrationManager {
	return &MigrationManager{db: db}
}

func (m *MigrationManager) ensureVersionTable() error {
	_, err := m.db.Exec(versionTableSQL)
	return err
}

// CurrentVersion returns the highest applied schema version, or 0 if none.
func (m *MigrationManager) CurrentVersion() (int, error) {
	if err := m.ensureVersionTable(); err != nil {
		return 0, err
	}
	var version sql.NullInt64
	if err := m.db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

func pendingMigrations(current int) []Migration {
	var pending []Migration
	for _, m := range Migrations {
		if m.Version > current {
			pending = append(pending, m)
		}
	}
	return pending
}

// ApplyMigrations runs every migration with Version greater than the
// current schema version, in order, each inside its own transaction.
// Re-running is a no-op for already-applied versions.
func (m *MigrationManager) ApplyMigrations() ([]int, error) {
	current, err := m.CurrentVersion()
	if err != nil {
		return nil, err
	}

	var applied []int
	for _, migration := range pendingMigrations(current) {
		if err := m.applyOne(migration); err != nil {
			return applied, fmt.Errorf("apply migration %d (%s): %w", migration.Version, migration.Description, err)
		}
		applied = append(applied, migration.Version)
	}
	return applied, nil
}

func (m *MigrationManager) applyOne(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migration.UpSQL); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_version (version, applied_at, description) VALUES (?, ?, ?)`,
		migration.Version, time.Now().UTC().Format(time.RFC3339), migration.Description,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// RollbackTo undoes every migration with Version greater than target, most
// recent first. target must be >= 0 and <= the current version.
func (m *MigrationManager) RollbackTo(target int) ([]int, error) {
	current, err := m.CurrentVersion()
	if err != nil {
		return nil, err
	}
	if target < 0 {
		return nil, fmt.Errorf("invalid target version: %d", target)
	}
	if target >= current {
		return nil, nil
	}

	byVersion := make(map[int]Migration, len(Migrations))
	for _, m := range Migrations {
		byVersion[m.Version] = m
	}

	var rolledBack []int
	for v := current; v > target; v-- {
		migration, ok := byVersion[v]
		if !ok {
			break
		}
		if err := m.rollbackOne(migration); err != nil {
			return rolledBack, fmt.Errorf("rollback migration %d: %w", migration.Version, err)
		}
		rolledBack = append(rolledBack, migration.Version)
	}
	return rolledBack, nil
}

func (m *MigrationManager) rollbackOne(migration Migration) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(migration.DownSQL); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM schema_version WHERE version = ?`, migration.Version); err != nil {
		return err
	}
	return tx.Commit()
}

// AppliedMigration is one row of the schema_version audit trail.
type AppliedMigration struct {
	Version     int
	AppliedAt   string
	Description string
}

func (m *MigrationManager) AppliedMigrations() ([]AppliedMigration, error) {
	if err := m.ensureVersionTable(); err != nil {
		return nil, err
	}
	rows, err := m.db.Query(`SELECT version, applied_at, description FROM schema_version ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AppliedMigration
	for rows.Next() {
		var a AppliedMigration
		if err := rows.Scan(&a.Version, &a.AppliedAt, &a.Description); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
