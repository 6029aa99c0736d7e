package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"digestpipe/internal/domain"
)

// extractVenueId returns the OpenReview venue/invitation ID a source
// targets. An explicit query string (the invitation ID, e.g.
// "ICLR.cc/2025/Conference/-/Blind_Submission") always wins over the
// group URL's "id" query parameter, since the invitation is more specific
// than the group page.
func extractVenueId(rawURL string, query string) string {
	if query != "" {
		return query
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != "openreview.net" {
		return ""
	}
	return u.Query().Get("id")
}

type openReviewNote struct {
	ID      string                      `json:"id"`
	Forum   string                      `json:"forum"`
	CDate   int64                       `json:"cdate"`
	MDate   int64                       `json:"mdate"`
	Content map[string]openReviewValue  `json:"content"`
}

type openReviewValue struct {
	Value json.RawMessage `json:"value"`
}

type openReviewNotesResponse struct {
	Notes []openReviewNote `json:"notes"`
}

// OpenReviewAdapter collects items from an OpenReview venue's note query.
type OpenReviewAdapter struct{}

func (OpenReviewAdapter) Collect(ctx context.Context, cfg SourceConfig, client HTTPClient, now time.Time) Result {
	venue := extractVenueId(cfg.URL, cfg.Query)
	if venue == "" {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassSchema, Message: fmt.Sprintf("url %q is not a resolvable OpenReview venue", cfg.URL)}}
	}

	apiURL := fmt.Sprintf("https://api2.openreview.net/notes?invitation=%s", url.QueryEscape(venue))
	res := client.Fetch(ctx, cfg.ID, apiURL, cfg.Headers)
	if res.CacheHit {
		return Result{State: SourceDone, Items: nil}
	}
	if res.Error != nil {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassFetch, Message: res.Error.Error()}}
	}
	if res.StatusCode == 401 {
		return Result{State: SourceFailed, Error: &Error{
			Class:   ErrorClassFetch,
			Message: "OpenReview API returned 401; set OPENREVIEW_TOKEN to authenticate requests",
		}}
	}
	if res.StatusCode >= 400 {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassFetch, Message: fmt.Sprintf("unexpected status %d", res.StatusCode)}}
	}

	notes, err := parseOpenReviewNotes(res.Body)
	if err != nil {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassParse, Message: fmt.Sprintf("parse notes json: %v", err)}}
	}

	items := make([]domain.Item, 0, len(notes))
	for _, note := range notes {
		forum := note.Forum
		if forum == "" {
			forum = note.ID
		}
		if forum == "" {
			continue
		}
		noteURL := fmt.Sprintf("https://openreview.net/forum?id=%s", forum)

		title := stringField(note.Content, "title")
		if title == "" {
			continue
		}

		var publishedAt *time.Time
		confidence := domain.DateConfidenceLow
		if note.CDate > 0 {
			t := time.UnixMilli(note.CDate).UTC()
			publishedAt = &t
			confidence = domain.DateConfidenceHigh
		}

		pdfURL := ""
		if pdf := stringField(note.Content, "pdf"); pdf != "" {
			pdfURL = "https://openreview.net" + pdf
		}

		raw, _ := json.Marshal(map[string]any{
			"forum":   forum,
			"authors": stringSliceField(note.Content, "authors"),
			"pdf_url": pdfURL,
		})

		items = append(items, stampItem(cfg, canonicalize(noteURL), title, publishedAt, confidence, string(raw), now))
	}

	return Result{State: SourceDone, Items: finalizeBatch(items, cfg.MaxItems)}
}

// parseOpenReviewNotes accepts either {"notes": [...]} or a bare [...]
// array, since different OpenReview endpoints shape their response either
// way.
func parseOpenReviewNotes(body []byte) ([]openReviewNote, error) {
	var wrapped openReviewNotesResponse
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Notes != nil {
		return wrapped.Notes, nil
	}
	var bare []openReviewNote
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, err
	}
	return bare, nil
}

func stringField(content map[string]openReviewValue, key string) string {
	v, ok := content[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v.Value, &s); err == nil {
		return s
	}
	return ""
}

func stringSliceField(content map[string]openReviewValue, key string) []string {
	v, ok := content[key]
	if !ok {
		return nil
	}
	var s []string
	if err := json.Unmarshal(v.Value, &s); err == nil {
		return s
	}
	return nil
}
