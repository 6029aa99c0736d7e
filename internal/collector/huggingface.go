package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"digestpipe/internal/domain"
)

// hfOrgURLPattern matches an organization root URL — exactly one path
// segment — so "https://huggingface.co/meta-llama" extracts an org while
// "https://huggingface.co/meta-llama/Llama-3" (a model URL) does not.
var hfOrgURLPattern = regexp.MustCompile(`^https://huggingface\.co/([^/]+)/?$`)

// extractOrg pulls the organization name out of an HF org listing URL,
// returning "" for anything that isn't shaped like one.
func extractOrg(url string) string {
	m := hfOrgURLPattern.FindStringSubmatch(url)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

type hfModel struct {
	ID           string         `json:"id"`
	ModelID      string         `json:"modelId"`
	Author       string         `json:"author"`
	LastModified string         `json:"lastModified"`
	PipelineTag  string         `json:"pipeline_tag"`
	Downloads    int64          `json:"downloads"`
	Likes        int64          `json:"likes"`
	CardData     map[string]any `json:"cardData"`
}

// HuggingFaceAdapter collects items from an organization's model listing.
type HuggingFaceAdapter struct{}

func (HuggingFaceAdapter) Collect(ctx context.Context, cfg SourceConfig, client HTTPClient, now time.Time) Result {
	org := extractOrg(cfg.URL)
	if org == "" {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassSchema, Message: fmt.Sprintf("url %q is not a HuggingFace organization page", cfg.URL)}}
	}

	apiURL := fmt.Sprintf("https://huggingface.co/api/models?author=%s", org)
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
			Message: "HuggingFace API returned 401; set HF_TOKEN to authenticate requests",
		}}
	}
	if res.StatusCode >= 400 {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassFetch, Message: fmt.Sprintf("unexpected status %d", res.StatusCode)}}
	}

	var models []hfModel
	if err := json.Unmarshal(res.Body, &models); err != nil {
		return Result{State: SourceFailed, Error: &Error{Class: ErrorClassParse, Message: fmt.Sprintf("parse models json: %v", err)}}
	}

	items := make([]domain.Item, 0, len(models))
	for _, model := range models {
		id := model.ID
		if id == "" {
			id = model.ModelID
		}
		if id == "" {
			continue
		}
		modelURL := fmt.Sprintf("https://huggingface.co/%s", id)

		var publishedAt *time.Time
		confidence := domain.DateConfidenceLow
		if t, err := time.Parse("2006-01-02T15:04:05.000Z", model.LastModified); err == nil {
			t = t.UTC()
			publishedAt = &t
			confidence = domain.DateConfidenceHigh
		}

		license := ""
		if v, ok := model.CardData["license"]; ok {
			if s, ok := v.(string); ok {
				license = s
			}
		}

		raw, _ := json.Marshal(map[string]any{
			"model_id":     id,
			"pipeline_tag": model.PipelineTag,
			"downloads":    model.Downloads,
			"likes":        model.Likes,
			"license":      license,
		})

		items = append(items, stampItem(cfg, canonicalize(modelURL), strings.TrimSpace(id), publishedAt, confidence, string(raw), now))
	}

	return Result{State: SourceDone, Items: finalizeBatch(items, cfg.MaxItems)}
}
