package domain

import (
	"encoding/json"
	"time"
)

// LinkType enumerates the kinds of typed references a StoryLink can carry.
type LinkType string

const (
	LinkOfficial    LinkType = "official"
	LinkArxiv       LinkType = "arxiv"
	LinkGitHub      LinkType = "github"
	LinkHuggingFace LinkType = "huggingface"
	LinkPaper       LinkType = "paper"
	LinkCode        LinkType = "code"
	LinkModel       LinkType = "model"
	LinkDemo        LinkType = "demo"
	LinkBlog        LinkType = "blog"
	LinkNews        LinkType = "news"
	LinkVideo       LinkType = "video"
)

// StoryLink is one typed reference inside a Story.
type StoryLink struct {
	URL      string
	LinkType LinkType
	SourceID string
	Tier     int
	Title    string
}

// StorySection is the fixed output section a Story can be assigned to.
type StorySection string

const (
	SectionTop5          StorySection = "top5"
	SectionModelReleases StorySection = "model_releases"
	SectionPapers        StorySection = "papers"
	SectionRadar         StorySection = "radar"
)

// Story is a set of Items judged to refer to the same underlying artifact.
// Every Story has at least one link; PrimaryLink is always one of Links.
type Story struct {
	StoryID           string
	Title             string
	PrimaryLink       StoryLink
	Links             []StoryLink
	Entities          []string
	Section           *StorySection
	PublishedAt       *time.Time
	ArxivID           string
	HFModelID         string
	GitHubReleaseURL  string
	ItemCount         int
	RawItems          []Item
}

// storyMetadata is extracted lazily from RawItems' RawJSON at serialization
// time; it is never stored back onto the Story.
type storyMetadata struct {
	Authors      []string
	Summary      string
	Categories   []string
	SourceName   string
	FirstSeenAt  *time.Time
	HFMetadata   map[string]any
}

func (s Story) extractMetadata() storyMetadata {
	var meta storyMetadata

	for _, item := range s.RawItems {
		if item.RawJSON == "" {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal([]byte(item.RawJSON), &raw); err != nil {
			continue
		}

		if meta.FirstSeenAt == nil || item.FirstSeenAt.Before(*meta.FirstSeenAt) {
			t := item.FirstSeenAt
			meta.FirstSeenAt = &t
		}

		if len(meta.Authors) == 0 {
			meta.Authors = extractAuthors(raw)
		}
		if meta.Summary == "" {
			meta.Summary = extractSummary(raw)
		}
		if len(meta.Categories) == 0 {
			meta.Categories = extractCategories(raw)
		}
		if meta.SourceName == "" {
			if name, ok := raw["source_name"].(string); ok {
				meta.SourceName = name
			}
		}
		if meta.HFMetadata == nil {
			meta.HFMetadata = extractHFMetadata(raw)
		}
	}

	return meta
}

func extractAuthors(raw map[string]any) []string {
	if list, ok := raw["authors"].([]any); ok {
		out := make([]string, 0, len(list))
		for _, a := range list {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	if author, ok := raw["author"].(string); ok && author != "" {
		return []string{author}
	}
	return nil
}

func extractSummary(raw map[string]any) string {
	if s, ok := raw["readme_summary"].(string); ok && s != "" {
		return s
	}
	if s, ok := raw["abstract_snippet"].(string); ok && s != "" {
		return s
	}
	if s, ok := raw["summary"].(string); ok && s != "" {
		return s
	}
	return ""
}

func extractCategories(raw map[string]any) []string {
	if cat, ok := raw["feed_category"].(string); ok && cat != "" {
		return []string{cat}
	}
	if list, ok := raw["categories"].([]any); ok {
		out := make([]string, 0, len(list))
		for _, c := range list {
			if s, ok := c.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func extractHFMetadata(raw map[string]any) map[string]any {
	if platform, _ := raw["platform"].(string); platform != "huggingface" {
		return nil
	}
	meta := map[string]any{}
	if v, ok := raw["pipeline_tag"].(string); ok && v != "" {
		meta["pipeline_tag"] = v
	}
	if v, ok := raw["downloads"]; ok {
		meta["downloads"] = v
	}
	if v, ok := raw["likes"]; ok {
		meta["likes"] = v
	}
	if v, ok := raw["license"].(string); ok && v != "" {
		meta["license"] = v
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// ToJSONDict renders the Story into the exact map shape written into
// api/daily.json: sorted-key JSON marshaling of this map (the ranker's
// canonicalJSON and the renderer's marshalIndentNoEscape) is what the
// ranker's output checksum and the renderer's JSON output both depend on.
func (s Story) ToJSONDict() map[string]any {
	meta := s.extractMetadata()

	links := make([]map[string]any, 0, len(s.Links))
	for _, l := range s.Links {
		links = append(links, linkToDict(l))
	}

	var section any
	if s.Section != nil {
		section = string(*s.Section)
	}

	var publishedAt any
	if s.PublishedAt != nil {
		publishedAt = s.PublishedAt.UTC().Format(time.RFC3339)
	}

	var firstSeenAt any
	if meta.FirstSeenAt != nil {
		firstSeenAt = meta.FirstSeenAt.UTC().Format(time.RFC3339)
	}

	var arxivID, hfModelID, ghURL any
	if s.ArxivID != "" {
		arxivID = s.ArxivID
	}
	if s.HFModelID != "" {
		hfModelID = s.HFModelID
	}
	if s.GitHubReleaseURL != "" {
		ghURL = s.GitHubReleaseURL
	}

	var hfMeta any
	if meta.HFMetadata != nil {
		hfMeta = meta.HFMetadata
	}

	return map[string]any{
		"story_id":             s.StoryID,
		"title":                s.Title,
		"primary_link":         linkToDict(s.PrimaryLink),
		"links":                links,
		"entities":             orEmptySlice(s.Entities),
		"section":              section,
		"published_at":         publishedAt,
		"arxiv_id":             arxivID,
		"hf_model_id":          hfModelID,
		"github_release_url":   ghURL,
		"item_count":           s.ItemCount,
		"authors":              orEmptySlice(meta.Authors),
		"summary":              orEmptyString(meta.Summary),
		"categories":           orEmptySlice(meta.Categories),
		"source_name":          orEmptyString(meta.SourceName),
		"first_seen_at":        firstSeenAt,
		"hf_metadata":          hfMeta,
	}
}

func linkToDict(l StoryLink) map[string]any {
	return map[string]any{
		"url":       l.URL,
		"link_type": string(l.LinkType),
		"source_id": l.SourceID,
		"tier":      l.Tier,
		"title":     l.Title,
	}
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
