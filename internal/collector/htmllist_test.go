package collector

import (
	"testing"
	"time"

	"digestpipe/internal/domain"
)

func htmlListSourceConfig() SourceConfig {
	return SourceConfig{
		ID:       "blog-test",
		URL:      "https://blog.example.com/posts",
		Tier:     1,
		Method:   MethodHTMLList,
		Kind:     domain.KindBlog,
		MaxItems: 100,
	}
}

const blogListWithTime = `<html><body>
<article>
  <a href="/posts/one">Post One</a>
  <time datetime="2024-01-10T09:00:00Z"></time>
</article>
<article>
  <a href="/posts/two">Post Two</a>
  <time datetime="2024-01-12T09:00:00Z"></time>
</article>
</body></html>`

const blogListWithMeta = `<html><head>
<meta property="article:published_time" content="2024-02-01T00:00:00Z">
</head><body>
<article><a href="/posts/three">Post Three</a></article>
</body></html>`

const blogListWithJSONLD = `<html><head>
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"Article","url":"https://blog.example.com/posts/four","datePublished":"2024-03-05T00:00:00Z"}
]}
</script>
</head><body>
<article><a href="/posts/four">Post Four</a></article>
</body></html>`

const blogListNoDates = `<html><body>
<article><a href="/posts/five">Post Five</a></article>
</body></html>`

func TestHTMLListAdapterExtractsDateFromTimeElement(t *testing.T) {
	cfg := htmlListSourceConfig()
	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: cfg.URL, Body: []byte(blogListWithTime), ContentType: "text/html; charset=utf-8"}}}
	result := HTMLListAdapter{}.Collect(t.Context(), cfg, transport, time.Now())

	if result.State != SourceDone {
		t.Fatalf("expected SOURCE_DONE, got %s (%v)", result.State, result.Error)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	for _, item := range result.Items {
		if item.DateConfidence != domain.DateConfidenceHigh {
			t.Errorf("expected HIGH confidence from <time datetime>, got %s", item.DateConfidence)
		}
	}
	if result.Items[0].Title != "Post Two" {
		t.Errorf("expected newest-first ordering, got %q first", result.Items[0].Title)
	}
}

func TestHTMLListAdapterFallsBackToPageMeta(t *testing.T) {
	cfg := htmlListSourceConfig()
	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: cfg.URL, Body: []byte(blogListWithMeta), ContentType: "text/html"}}}
	result := HTMLListAdapter{}.Collect(t.Context(), cfg, transport, time.Now())

	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if result.Items[0].DateConfidence != domain.DateConfidenceHigh {
		t.Errorf("expected meta-derived date to carry HIGH confidence, got %s", result.Items[0].DateConfidence)
	}
	if result.Items[0].PublishedAt == nil {
		t.Fatal("expected a published date from the page meta tag")
	}
}

func TestHTMLListAdapterFallsBackToJSONLD(t *testing.T) {
	cfg := htmlListSourceConfig()
	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: cfg.URL, Body: []byte(blogListWithJSONLD), ContentType: "text/html"}}}
	result := HTMLListAdapter{}.Collect(t.Context(), cfg, transport, time.Now())

	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	if result.Items[0].PublishedAt == nil {
		t.Fatal("expected a published date recovered from JSON-LD")
	}
}

func TestHTMLListAdapterLeavesLowConfidenceWhenNoDateFound(t *testing.T) {
	cfg := htmlListSourceConfig()
	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: cfg.URL, Body: []byte(blogListNoDates), ContentType: "text/html"}}}
	result := HTMLListAdapter{}.Collect(t.Context(), cfg, transport, time.Now())

	if len(result.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(result.Items))
	}
	item := result.Items[0]
	if item.PublishedAt != nil {
		t.Error("expected no published date to be recovered")
	}
	if item.DateConfidence != domain.DateConfidenceLow {
		t.Errorf("expected LOW confidence, got %s", item.DateConfidence)
	}
}

func TestHTMLListAdapterRejectsBinaryContentType(t *testing.T) {
	cfg := htmlListSourceConfig()
	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: cfg.URL, Body: []byte{0x89, 'P', 'N', 'G'}, ContentType: "image/png"}}}
	result := HTMLListAdapter{}.Collect(t.Context(), cfg, transport, time.Now())

	if result.State != SourceFailed {
		t.Fatalf("expected SOURCE_FAILED on a binary content type, got %s", result.State)
	}
	if result.Error.Class != ErrorClassSchema {
		t.Errorf("expected a SCHEMA-class error, got %s", result.Error.Class)
	}
}

func TestHTMLListAdapterCapsItemPageRecoveryFetches(t *testing.T) {
	cfg := htmlListSourceConfig()
	list := `<html><body>
<article><a href="/posts/a">A</a></article>
<article><a href="/posts/b">B</a></article>
<article><a href="/posts/c">C</a></article>
</body></html>`

	profiles := NewProfileRegistry()
	profiles.Register(DomainProfile{Domain: "blog.example.com", MaxItemPageFetches: 1, EnableItemPageRecovery: true})

	itemPage := `<html><body><time datetime="2024-04-01T00:00:00Z"></time></body></html>`
	transport := &FixtureTransport{Fixtures: []Fixture{
		{ExactURL: cfg.URL, Body: []byte(list), ContentType: "text/html"},
		{ExactURL: "https://blog.example.com/posts/a", Body: []byte(itemPage), ContentType: "text/html"},
		{ExactURL: "https://blog.example.com/posts/b", Body: []byte(itemPage), ContentType: "text/html"},
		{ExactURL: "https://blog.example.com/posts/c", Body: []byte(itemPage), ContentType: "text/html"},
	}}

	adapter := HTMLListAdapter{Profiles: profiles}
	result := adapter.Collect(t.Context(), cfg, transport, time.Now())

	if result.State != SourceDone {
		t.Fatalf("expected SOURCE_DONE, got %s (%v)", result.State, result.Error)
	}

	itemPageFetches := 0
	for _, call := range transport.Calls {
		if call != cfg.URL {
			itemPageFetches++
		}
	}
	if itemPageFetches != 1 {
		t.Errorf("expected item-page recovery to be capped at 1 fetch, got %d", itemPageFetches)
	}
}

func TestHTMLListAdapterDisablesItemPageRecoveryWhenProfileSaysSo(t *testing.T) {
	cfg := htmlListSourceConfig()
	profiles := NewProfileRegistry()
	profiles.Register(DomainProfile{Domain: "blog.example.com", MaxItemPageFetches: 5, EnableItemPageRecovery: false})

	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: cfg.URL, Body: []byte(blogListNoDates), ContentType: "text/html"}}}
	adapter := HTMLListAdapter{Profiles: profiles}
	result := adapter.Collect(t.Context(), cfg, transport, time.Now())

	if len(transport.Calls) != 1 {
		t.Errorf("expected no item-page fetches when recovery is disabled, got %d calls", len(transport.Calls))
	}
	if len(result.Items) != 1 || result.Items[0].PublishedAt != nil {
		t.Error("expected the item to remain dateless")
	}
}
