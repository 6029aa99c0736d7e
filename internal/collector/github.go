package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"digestpipe/internal/domain"
)

// githubRelease models the fields this adapter reads from GitHub's
// releases API response.
type githubRelease struct {
	ID          int64  `json:"id"`
	TagName     string `json:"tag_name"`
	Name        string `json:"name"`
	HTMLURL     string `json:"html_url"`
	PublishedAt string `json:"published_at"`
	Body        string `json:"body"`
	Prerelease  bool   `json:"prerelease"`
	Draft       bool   `json:"draft"`
}

// GitHubAdapter collects items from a repository's releases JSON endpoint.
type GitHubAdapter struct{}

func (GitHubAdapter) Collect(ctx context.Context, cfg SourceConfig, client HTTPClient, now time.Time) Result {
	res := client.Fetch(ctx, cfg.ID, cfg.URL, cfg.Headers)
	if res.CacheHit {
		return Result{State: SourceDone, Items: nil}
	}
	if res.Error != nil {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassFetch, Message: res.Error.Error()}}
	}
	if res.StatusCode == 401 || res.StatusCode == 403 {
		return Result{State: SourceFailed, Error: &Error{
			Class:   ErrorClassFetch,
			Message: fmt.Sprintf("GitHub API returned %d; set GITHUB_TOKEN to raise the rate limit", res.StatusCode),
		}}
	}
	if res.StatusCode >= 400 {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassFetch, Message: fmt.Sprintf("unexpected status %d", res.StatusCode)}}
	}

	var releases []githubRelease
	if err := json.Unmarshal(res.Body, &releases); err != nil {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassParse, Message: fmt.Sprintf("parse releases json: %v", err)}}
	}

	items := make([]domain.Item, 0, len(releases))
	for _, rel := range releases {
		if rel.Draft || rel.HTMLURL == "" {
			continue
		}

		title := rel.Name
		if title == "" {
			title = rel.TagName
		}

		var publishedAt *time.Time
		confidence := domain.DateConfidenceLow
		if t, err := time.Parse(time.RFC3339, rel.PublishedAt); err == nil {
			t = t.UTC()
			publishedAt = &t
			confidence = domain.DateConfidenceHigh
		}

		raw, _ := json.Marshal(map[string]any{
			"id":         rel.ID,
			"tag_name":   rel.TagName,
			"body":       rel.Body,
			"prerelease": rel.Prerelease,
		})

		items = append(items, stampItem(cfg, canonicalize(rel.HTMLURL), title, publishedAt, confidence, string(raw), now))
	}

	return Result{State: SourceDone, Items: finalizeBatch(items, cfg.MaxItems)}
}
