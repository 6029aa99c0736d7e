package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"digestpipe/internal/fetch"
	"digestpipe/internal/resilience/circuitbreaker"
)

// HTTPCacheRepo persists conditional-request metadata per source, and
// implements fetch.CacheStore so the fetch layer can read/write it directly.
// Every collector source goroutine hits this repo once per fetch, so writes
// run behind a circuit breaker to keep a contended SQLite file from turning
// one slow writer into a pile of blocked goroutines.
type HTTPCacheRepo struct {
	db      *sql.DB
	breaker *circuitbreaker.DBCircuitBreaker
}

func NewHTTPCacheRepo(db *sql.DB) *HTTPCacheRepo {
	return &HTTPCacheRepo{db: db, breaker: circuitbreaker.NewDBCircuitBreaker(db)}
}

var _ fetch.CacheStore = (*HTTPCacheRepo)(nil)

func (r *HTTPCacheRepo) GetHTTPCache(sourceID string) (fetch.HttpCacheEntry, bool, error) {
	const query = `SELECT source_id, etag, last_modified, last_status FROM http_cache WHERE source_id = ? LIMIT 1`
	row := r.db.QueryRow(query, sourceID)

	var entry fetch.HttpCacheEntry
	var etag, lastModified sql.NullString
	var lastStatus sql.NullInt64

	err := row.Scan(&entry.SourceID, &etag, &lastModified, &lastStatus)
	if err == sql.ErrNoRows {
		return fetch.HttpCacheEntry{}, false, nil
	}
	if err != nil {
		return fetch.HttpCacheEntry{}, false, fmt.Errorf("GetHTTPCache: %w", err)
	}

	entry.ETag = etag.String
	entry.LastModified = lastModified.String
	if lastStatus.Valid {
		entry.LastStatus = int(lastStatus.Int64)
		entry.HasLastStatus = true
	}
	return entry, true, nil
}

func (r *HTTPCacheRepo) UpsertHTTPCache(entry fetch.HttpCacheEntry) error {
	const query = `
INSERT INTO http_cache (source_id, etag, last_modified, last_status, last_fetch_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(source_id) DO UPDATE SET
    etag          = excluded.etag,
    last_modified = excluded.last_modified,
    last_status   = excluded.last_status,
    last_fetch_at = excluded.last_fetch_at
`
	var etag, lastModified sql.NullString
	if entry.ETag != "" {
		etag = sql.NullString{String: entry.ETag, Valid: true}
	}
	if entry.LastModified != "" {
		lastModified = sql.NullString{String: entry.LastModified, Valid: true}
	}
	var lastStatus sql.NullInt64
	if entry.HasLastStatus {
		lastStatus = sql.NullInt64{Int64: int64(entry.LastStatus), Valid: true}
	}

	_, err := r.breaker.Execute(func() (interface{}, error) {
		return r.db.Exec(query, entry.SourceID, etag, lastModified, lastStatus, time.Now().UTC().Format(time.RFC3339))
	})
	if err != nil {
		return fmt.Errorf("UpsertHTTPCache: %w", err)
	}
	return nil
}

// LastStatus returns the most recently recorded HTTP status for sourceID.
func (r *HTTPCacheRepo) LastStatus(ctx context.Context, sourceID string) (int, bool, error) {
	entry, ok, err := r.GetHTTPCache(sourceID)
	if err != nil || !ok {
		return 0, false, err
	}
	return entry.LastStatus, entry.HasLastStatus, nil
}
