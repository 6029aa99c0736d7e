package collector

import (
	"testing"
	"time"

	"digestpipe/internal/domain"
)

const sampleArxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.12345v1</id>
    <title>A Great Paper on Machine Learning</title>
    <summary>We present a method for...</summary>
    <published>2024-01-15T10:00:00Z</published>
    <updated>2024-01-15T10:00:00Z</updated>
    <author><name>Author One</name></author>
    <category term="cs.AI"/>
    <category term="cs.LG"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2401.99999v2</id>
    <title>Another Paper</title>
    <summary>Abstract text</summary>
    <published>2024-01-16T10:00:00Z</published>
    <category term="cs.CL"/>
  </entry>
</feed>`

func arxivSourceConfig() SourceConfig {
	return SourceConfig{
		ID:       "arxiv-cs-ai",
		URL:      "http://export.arxiv.org/api/query?search_query=cat:cs.AI",
		Tier:     0,
		Method:   MethodArxivAPI,
		Kind:     domain.KindPaper,
		MaxItems: 100,
	}
}

func TestArxivAdapterExtractsCanonicalIDAndURL(t *testing.T) {
	transport := &FixtureTransport{Fixtures: []Fixture{{Pattern: nil, ExactURL: arxivSourceConfig().URL, Body: []byte(sampleArxivFeed)}}}
	result := ArxivAdapter{}.Collect(t.Context(), arxivSourceConfig(), transport, time.Now())

	if result.State != SourceDone {
		t.Fatalf("expected SOURCE_DONE, got %s (%v)", result.State, result.Error)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}

	newest := result.Items[0]
	if newest.URL != "https://arxiv.org/abs/2401.99999" {
		t.Errorf("expected version suffix to be stripped from the canonical URL, got %q", newest.URL)
	}
}

func TestArxivAdapterSkipsEntriesWithoutParsableID(t *testing.T) {
	feed := `<feed xmlns="http://www.w3.org/2005/Atom"><entry><id>not-an-arxiv-id</id><title>X</title></entry></feed>`
	transport := &FixtureTransport{Fixtures: []Fixture{{ExactURL: arxivSourceConfig().URL, Body: []byte(feed)}}}
	result := ArxivAdapter{}.Collect(t.Context(), arxivSourceConfig(), transport, time.Now())

	if len(result.Items) != 0 {
		t.Errorf("expected the unparsable entry to be skipped, got %d items", len(result.Items))
	}
}
