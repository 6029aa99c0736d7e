package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"digestpipe/internal/observability/metrics"
)

// ConnectionConfig controls the pool and busy-wait behavior of the
// underlying *sql.DB. SQLite only ever profits from a single writer, so
// MaxOpenConns is deliberately small relative to the teacher's Postgres
// defaults.
type ConnectionConfig struct {
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	BusyTimeout     time.Duration
}

func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    4,
		ConnMaxLifetime: 1 * time.Hour,
		BusyTimeout:     5 * time.Second,
	}
}

// Open opens the SQLite database at path (or ":memory:"), applies
// WAL-journal and busy-timeout pragmas so concurrent collector writers don't
// immediately collide, runs every pending migration, and verifies
// connectivity before returning.
func Open(path string, cfg ConnectionConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	migrationStart := time.Now()
	manager := NewMigrationManager(db)
	applied, err := manager.ApplyMigrations()
	metrics.RecordOperationDuration("apply_migrations", time.Since(migrationStart))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	metrics.ReportConnectionStats(db.Stats())

	slog.Info("state store opened",
		slog.String("path", path),
		slog.Int("migrations_applied", len(applied)),
	)

	return db, nil
}
