package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"digestpipe/internal/domain"
	"digestpipe/internal/resilience/circuitbreaker"
)

// ItemRepo persists Items keyed by canonical URL, preserving first_seen_at
// across upserts. Grounded on the teacher's source_repo.go query style and
// original_source/src/features/store/migrations.py's items table shape.
type ItemRepo struct {
	db      *sql.DB
	breaker *circuitbreaker.DBCircuitBreaker
}

func NewItemRepo(db *sql.DB) *ItemRepo {
	return &ItemRepo{db: db, breaker: circuitbreaker.NewDBCircuitBreaker(db)}
}

// Upsert inserts item, or — if its URL already exists — updates
// content-hash, title, raw payload, and last_seen_at while leaving
// first_seen_at untouched.
func (r *ItemRepo) Upsert(ctx context.Context, tx *sql.Tx, item domain.Item) error {
	const query = `
INSERT INTO items (url, source_id, tier, kind, title, published_at, date_confidence, content_hash, raw_json, first_seen_at, last_seen_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
    source_id       = excluded.source_id,
    tier            = excluded.tier,
    kind            = excluded.kind,
    title           = excluded.title,
    published_at    = excluded.published_at,
    date_confidence = excluded.date_confidence,
    content_hash    = excluded.content_hash,
    raw_json        = excluded.raw_json,
    last_seen_at    = excluded.last_seen_at
`
	var publishedAt sql.NullString
	if item.PublishedAt != nil {
		publishedAt = sql.NullString{String: item.PublishedAt.UTC().Format(time.RFC3339), Valid: true}
	}

	execer := queryExecer(r.db, tx)
	_, err := execer.ExecContext(ctx, query,
		item.URL, item.SourceID, item.Tier, string(item.Kind), item.Title,
		publishedAt, string(item.DateConfidence), item.ContentHash, item.RawJSON,
		item.FirstSeenAt.UTC().Format(time.RFC3339), item.LastSeenAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

// UpsertBatch runs Upsert for every item inside a single transaction;
// failure rolls back that whole batch (and therefore that whole source)
// without affecting previously committed sources. The whole begin/upsert/
// commit sequence runs behind the circuit breaker so a source whose writes
// keep hitting SQLITE_BUSY under concurrent collector writers trips the
// breaker instead of piling up retries against a contended database.
func (r *ItemRepo) UpsertBatch(ctx context.Context, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}
	_, err := r.breaker.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("UpsertBatch: begin: %w", err)
		}
		defer tx.Rollback()

		for _, item := range items {
			if err := r.Upsert(ctx, tx, item); err != nil {
				return nil, fmt.Errorf("UpsertBatch: %w", err)
			}
		}
		return nil, tx.Commit()
	})
	return err
}

// ByURL returns the item with the given canonical URL, or ok=false if none.
func (r *ItemRepo) ByURL(ctx context.Context, url string) (domain.Item, bool, error) {
	const query = `
SELECT url, source_id, tier, kind, title, published_at, date_confidence, content_hash, raw_json, first_seen_at, last_seen_at
FROM items WHERE url = ? LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, url)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return domain.Item{}, false, nil
	}
	if err != nil {
		return domain.Item{}, false, fmt.Errorf("ByURL: %w", err)
	}
	return item, true, nil
}

// FirstSeenAfter returns every item whose first_seen_at is strictly after
// since, ordered by first_seen_at ascending — the delta query a run uses to
// find what's new since the last successful run.
func (r *ItemRepo) FirstSeenAfter(ctx context.Context, since time.Time) ([]domain.Item, error) {
	const query = `
SELECT url, source_id, tier, kind, title, published_at, date_confidence, content_hash, raw_json, first_seen_at, last_seen_at
FROM items WHERE first_seen_at > ? ORDER BY first_seen_at ASC`
	rows, err := r.db.QueryContext(ctx, query, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("FirstSeenAfter: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 64)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("FirstSeenAfter: scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// BySourceID returns every item belonging to sourceID.
func (r *ItemRepo) BySourceID(ctx context.Context, sourceID string) ([]domain.Item, error) {
	const query = `
SELECT url, source_id, tier, kind, title, published_at, date_confidence, content_hash, raw_json, first_seen_at, last_seen_at
FROM items WHERE source_id = ? ORDER BY first_seen_at ASC`
	rows, err := r.db.QueryContext(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("BySourceID: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 64)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("BySourceID: scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var item domain.Item
	var publishedAt sql.NullString
	var kind, dateConfidence string
	var firstSeenAt, lastSeenAt string

	err := row.Scan(
		&item.URL, &item.SourceID, &item.Tier, &kind, &item.Title,
		&publishedAt, &dateConfidence, &item.ContentHash, &item.RawJSON,
		&firstSeenAt, &lastSeenAt,
	)
	if err != nil {
		return domain.Item{}, err
	}

	item.Kind = domain.ContentKind(kind)
	item.DateConfidence = domain.DateConfidence(dateConfidence)
	if publishedAt.Valid {
		t, err := time.Parse(time.RFC3339, publishedAt.String)
		if err == nil {
			item.PublishedAt = &t
		}
	}
	item.FirstSeenAt, _ = time.Parse(time.RFC3339, firstSeenAt)
	item.LastSeenAt, _ = time.Parse(time.RFC3339, lastSeenAt)

	return item, nil
}

// queryExecer lets a repository method run either inside a caller-provided
// transaction or directly against the pool when tx is nil.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func queryExecer(db *sql.DB, tx *sql.Tx) execer {
	if tx != nil {
		return tx
	}
	return db
}
