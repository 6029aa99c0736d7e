package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"

	"digestpipe/internal/domain"
)

// HTMLListAdapter collects items from a list-style HTML page (a blog
// index, a news section). Dates are frequently missing or unreliable on
// these pages, so extraction is layered — stopping at the first success —
// and may optionally recover a date by fetching the item's own page, up
// to a per-domain cap. Grounded on the teacher's go-shiori/go-readability
// usage in internal/infra/fetcher/readability.go for the item-page fetch
// idiom, generalized from full-article text extraction to the list
// collector's narrower date-recovery need (the extracted text is kept as
// a bonus excerpt in the item's raw payload, never required for the date
// itself).
type HTMLListAdapter struct {
	Profiles *ProfileRegistry
}

func (a HTMLListAdapter) registry() *ProfileRegistry {
	if a.Profiles != nil {
		return a.Profiles
	}
	return NewProfileRegistry()
}

func (a HTMLListAdapter) Collect(ctx context.Context, cfg SourceConfig, client HTTPClient, now time.Time) Result {
	res := client.Fetch(ctx, cfg.ID, cfg.URL, cfg.Headers)
	if res.CacheHit {
		return Result{State: SourceDone, Items: nil}
	}
	if res.Error != nil {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassFetch, Message: res.Error.Error()}}
	}
	if res.StatusCode >= 400 {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassFetch, Message: fmt.Sprintf("unexpected status %d", res.StatusCode)}}
	}

	contentType := strings.ToLower(res.Headers["content-type"])
	if !allowedListContentType(contentType) {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassSchema, Message: fmt.Sprintf("Content-Type not allowed: %q", contentType)}}
	}

	base, err := url.Parse(cfg.URL)
	if err != nil {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassSchema, Message: fmt.Sprintf("invalid source url: %v", err)}}
	}

	doc, err := goquery.NewDocumentFromReader(newBodyReader(res.Body))
	if err != nil {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassParse, Message: fmt.Sprintf("parse html: %v", err)}}
	}

	hints := collectDateHints(doc)
	profile := a.registry().For(base.Hostname())

	type candidate struct {
		title        string
		absoluteURL  string
		publishedAt  *time.Time
		confidence   domain.DateConfidence
	}
	var candidates []candidate

	doc.Find("article").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("a[href]").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}

		publishedAt, confidence := extractFromContainer(sel)
		if publishedAt == nil {
			if hints.meta != nil {
				tt := *hints.meta
				publishedAt, confidence = &tt, domain.DateConfidenceHigh
			} else if t, ok := hints.jsonLD[resolved]; ok {
				tt := t
				publishedAt, confidence = &tt, domain.DateConfidenceHigh
			}
		}

		candidates = append(candidates, candidate{title: title, absoluteURL: resolved, publishedAt: publishedAt, confidence: confidence})
	})

	itemPageFetches := 0
	items := make([]domain.Item, 0, len(candidates))
	for _, c := range candidates {
		publishedAt, confidence := c.publishedAt, c.confidence
		excerpt := ""

		if publishedAt == nil && profile.EnableItemPageRecovery && itemPageFetches < profile.MaxItemPageFetches {
			itemPageFetches++
			if recoveredAt, recoveredConfidence, recoveredExcerpt := recoverFromItemPage(ctx, cfg, client, c.absoluteURL); recoveredAt != nil {
				publishedAt, confidence = recoveredAt, recoveredConfidence
				excerpt = recoveredExcerpt
			}
		}
		if publishedAt == nil {
			confidence = domain.DateConfidenceLow
		}

		raw, _ := json.Marshal(map[string]any{
			"excerpt": excerpt,
		})
		items = append(items, stampItem(cfg, canonicalize(c.absoluteURL), c.title, publishedAt, confidence, string(raw), now))
	}

	return Result{State: SourceDone, Items: finalizeBatch(items, cfg.MaxItems)}
}

func allowedListContentType(contentType string) bool {
	if contentType == "" {
		return true // teacher's own fetch layer defaults to trusting an absent header
	}
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "xml") ||
		strings.Contains(contentType, "text/plain")
}

// extractFromContainer runs layer (1) — <time datetime> — scoped to one
// list item's own HTML fragment.
func extractFromContainer(sel *goquery.Selection) (*time.Time, domain.DateConfidence) {
	datetime, ok := sel.Find("time[datetime]").First().Attr("datetime")
	if !ok || datetime == "" {
		return nil, ""
	}
	if t, err := parseFlexibleTime(datetime); err == nil {
		return &t, domain.DateConfidenceHigh
	}
	return nil, ""
}

type dateHints struct {
	meta   *time.Time
	jsonLD map[string]time.Time
}

// collectDateHints runs layers (2) and (3) once over the whole document:
// meta tags (article:published_time and its common aliases) and JSON-LD
// script blocks, keyed by the "url" field each entry carries.
func collectDateHints(doc *goquery.Document) dateHints {
	hints := dateHints{jsonLD: map[string]time.Time{}}

	for _, sel := range []string{
		`meta[property="article:published_time"]`,
		`meta[property="og:published_time"]`,
		`meta[name="date"]`,
	} {
		content, ok := doc.Find(sel).First().Attr("content")
		if ok && content != "" {
			if t, err := parseFlexibleTime(content); err == nil {
				hints.meta = &t
				break
			}
		}
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		for url, t := range parseJSONLDDates(sel.Text()) {
			hints.jsonLD[url] = t
		}
	})

	return hints
}

// jsonLDNode is the subset of schema.org fields this adapter reads from a
// JSON-LD block; a block may be a single object, an array of objects, or
// an object with a "@graph" array of objects.
type jsonLDNode struct {
	URL           string       `json:"url"`
	DatePublished string       `json:"datePublished"`
	DateCreated   string       `json:"dateCreated"`
	Graph         []jsonLDNode `json:"@graph"`
}

func parseJSONLDDates(raw string) map[string]time.Time {
	out := map[string]time.Time{}

	var asNode jsonLDNode
	var asArray []jsonLDNode
	var nodes []jsonLDNode

	if err := json.Unmarshal([]byte(raw), &asNode); err == nil {
		nodes = append(nodes, asNode)
		nodes = append(nodes, asNode.Graph...)
	} else if err := json.Unmarshal([]byte(raw), &asArray); err == nil {
		nodes = asArray
	}

	for _, n := range nodes {
		if n.URL == "" {
			continue
		}
		dateStr := n.DatePublished
		if dateStr == "" {
			dateStr = n.DateCreated
		}
		if dateStr == "" {
			continue
		}
		if t, err := parseFlexibleTime(dateStr); err == nil {
			out[n.URL] = t
		}
	}
	return out
}

func parseFlexibleTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// recoverFromItemPage fetches a single item's own page and reruns the same
// layered date extraction against it, as layer (4). It also runs
// Readability over the page so a short excerpt can ride along in the
// item's raw payload — a bonus the date recovery fetch makes nearly free.
func recoverFromItemPage(ctx context.Context, cfg SourceConfig, client HTTPClient, itemURL string) (*time.Time, domain.DateConfidence, string) {
	res := client.Fetch(ctx, cfg.ID, itemURL, cfg.Headers)
	if res.Error != nil || res.StatusCode >= 400 || len(res.Body) == 0 {
		return nil, "", ""
	}

	doc, err := goquery.NewDocumentFromReader(newBodyReader(res.Body))
	if err != nil {
		return nil, "", ""
	}

	if publishedAt, confidence := extractFromContainer(doc.Selection); publishedAt != nil {
		return publishedAt, confidence, excerptFrom(res.Body, itemURL)
	}
	hints := collectDateHints(doc)
	if hints.meta != nil {
		return hints.meta, domain.DateConfidenceHigh, excerptFrom(res.Body, itemURL)
	}
	if t, ok := hints.jsonLD[itemURL]; ok {
		return &t, domain.DateConfidenceHigh, excerptFrom(res.Body, itemURL)
	}
	return nil, "", ""
}

func excerptFrom(body []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	article, err := readability.FromReader(newBodyReader(body), parsed)
	if err != nil {
		return ""
	}
	text := article.TextContent
	if len(text) > 280 {
		text = text[:280]
	}
	return strings.TrimSpace(text)
}
