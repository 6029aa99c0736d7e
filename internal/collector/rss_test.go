package collector

import (
	"testing"
	"time"

	"digestpipe/internal/domain"
)

const sampleRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>A test feed</description>
    <item>
      <title>Article One</title>
      <link>https://example.com/article-1</link>
      <pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate>
      <description>First article description</description>
    </item>
    <item>
      <title>Article Two</title>
      <link>https://example.com/article-2</link>
      <pubDate>Tue, 02 Jan 2024 12:00:00 GMT</pubDate>
      <description>Second article description</description>
    </item>
    <item>
      <title>Article Three</title>
      <link>https://example.com/article-3</link>
      <pubDate>Wed, 03 Jan 2024 12:00:00 GMT</pubDate>
      <description>Third article description</description>
    </item>
  </channel>
</rss>`

func rssSourceConfig(maxItems int) SourceConfig {
	return SourceConfig{
		ID:       "test-rss",
		Name:     "Test RSS Feed",
		URL:      "https://example.com/feed.rss",
		Tier:     0,
		Method:   MethodRSSAtom,
		Kind:     domain.KindBlog,
		MaxItems: maxItems,
	}
}

func TestRSSAdapterParsesAllItemsNewestFirst(t *testing.T) {
	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: "https://example.com/feed.rss", Body: []byte(sampleRSSFeed)}}}
	result := RSSAdapter{}.Collect(t.Context(), rssSourceConfig(100), transport, time.Now())

	if result.State != SourceDone {
		t.Fatalf("expected SOURCE_DONE, got %s (%v)", result.State, result.Error)
	}
	if len(result.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result.Items))
	}
	if result.Items[0].Title != "Article Three" {
		t.Errorf("expected newest item first, got %q", result.Items[0].Title)
	}
	if result.Items[2].Title != "Article One" {
		t.Errorf("expected oldest item last, got %q", result.Items[2].Title)
	}
	for _, item := range result.Items {
		if item.SourceID != "test-rss" {
			t.Errorf("expected source id to be stamped, got %q", item.SourceID)
		}
		if item.DateConfidence != domain.DateConfidenceHigh {
			t.Errorf("expected HIGH date confidence for a parsed pubDate, got %s", item.DateConfidence)
		}
	}
}

func TestRSSAdapterEnforcesMaxItems(t *testing.T) {
	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: "https://example.com/feed.rss", Body: []byte(sampleRSSFeed)}}}
	result := RSSAdapter{}.Collect(t.Context(), rssSourceConfig(1), transport, time.Now())

	if len(result.Items) != 1 {
		t.Fatalf("expected max_items=1 to cap output at 1 item, got %d", len(result.Items))
	}
	if result.Items[0].Title != "Article Three" {
		t.Errorf("expected the single kept item to be the newest, got %q", result.Items[0].Title)
	}
}

func TestRSSAdapterCacheHitReturnsNoItemsWithoutError(t *testing.T) {
	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: "https://example.com/feed.rss", StatusCode: 304}}}
	result := RSSAdapter{}.Collect(t.Context(), rssSourceConfig(100), transport, time.Now())

	if result.State != SourceDone {
		t.Fatalf("expected a 304 to still be SOURCE_DONE, got %s", result.State)
	}
	if len(result.Items) != 0 {
		t.Errorf("expected no items on cache hit, got %d", len(result.Items))
	}
}

func TestRSSAdapterFailsOnServerError(t *testing.T) {
	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: "https://example.com/feed.rss", StatusCode: 500}}}
	result := RSSAdapter{}.Collect(t.Context(), rssSourceConfig(100), transport, time.Now())

	if result.State != SourceFailed {
		t.Fatalf("expected SOURCE_FAILED on a 500, got %s", result.State)
	}
	if result.Error == nil || result.Error.Class != ErrorClassFetch {
		t.Errorf("expected a FETCH-class error, got %+v", result.Error)
	}
}

func TestRSSAdapterDeduplicatesWithinBatch(t *testing.T) {
	feed := `<?xml version="1.0"?><rss version="2.0"><channel>
      <item><title>A</title><link>https://example.com/a</link></item>
      <item><title>A again</title><link>https://example.com/a</link></item>
    </channel></rss>`
	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: "https://example.com/feed.rss", Body: []byte(feed)}}}
	result := RSSAdapter{}.Collect(t.Context(), rssSourceConfig(100), transport, time.Now())

	if len(result.Items) != 1 {
		t.Fatalf("expected duplicate URLs to collapse to 1 item, got %d", len(result.Items))
	}
}
