package collector

import (
	"bytes"
	"io"
	"sort"
	"time"

	"digestpipe/internal/domain"
)

// newBodyReader wraps a fetched response body for the parsers (goquery,
// readability) that each need their own fresh io.Reader over the same bytes.
func newBodyReader(body []byte) io.Reader {
	return bytes.NewReader(body)
}

// finalizeBatch applies the three rules every adapter owes its output:
// dedup within the batch by canonical URL (first occurrence wins), sort by
// published-at descending (nulls last) for deterministic per-source
// ordering, then truncate to maxItems.
func finalizeBatch(items []domain.Item, maxItems int) []domain.Item {
	seen := make(map[string]struct{}, len(items))
	deduped := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		deduped = append(deduped, item)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		pi, pj := deduped[i].PublishedAt, deduped[j].PublishedAt
		switch {
		case pi == nil && pj == nil:
			return false
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return pi.After(*pj)
		}
	})

	if maxItems > 0 && len(deduped) > maxItems {
		deduped = deduped[:maxItems]
	}
	return deduped
}

// stampItem fills in the fields every adapter derives the same way:
// canonical URL already computed by the caller, content hash from the
// fixed (title, url, published-at) subset, tier/kind/source from config,
// and first/last-seen both set to now (the store preserves first_seen_at
// across upserts for URLs that already exist).
func stampItem(cfg SourceConfig, canonicalURL, title string, publishedAt *time.Time, dateConfidence domain.DateConfidence, rawJSON string, now time.Time) domain.Item {
	publishedStr := ""
	if publishedAt != nil {
		publishedStr = publishedAt.UTC().Format(time.RFC3339)
	}
	return domain.Item{
		URL:            canonicalURL,
		SourceID:       cfg.ID,
		Tier:           cfg.Tier,
		Kind:           cfg.Kind,
		Title:          title,
		PublishedAt:    publishedAt,
		DateConfidence: dateConfidence,
		ContentHash:    domain.ContentHash(title, canonicalURL, publishedStr),
		RawJSON:        rawJSON,
		FirstSeenAt:    now,
		LastSeenAt:     now,
	}
}

// canonicalize applies domain.CanonicalizeURL with no stripped params,
// falling back to the raw string if parsing fails (malformed URLs are
// surfaced downstream rather than silently dropped).
func canonicalize(raw string) string {
	u, err := domain.CanonicalizeURL(raw, nil)
	if err != nil {
		return raw
	}
	return u
}
