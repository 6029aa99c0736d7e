package render

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"time"

	"digestpipe/internal/domain"
)

// JsonRenderer builds api/daily.json from a RenderContext. Go's
// encoding/json already sorts map[string]any keys when marshaling, so
// MarshalIndent alone reproduces the sorted-key, 2-space-indent,
// non-ASCII-preserving serialization the checksum tests in spec.md require;
// disabling SetEscapeHTML stops it from escaping "<", ">", "&" the way the
// default encoder does, which would otherwise corrupt titles containing them.
type JsonRenderer struct {
	runID     string
	outputDir string
	writer    *AtomicWriter
}

// NewJsonRenderer builds a JsonRenderer that writes under outputDir via w.
func NewJsonRenderer(runID, outputDir string, w *AtomicWriter) *JsonRenderer {
	return &JsonRenderer{runID: runID, outputDir: outputDir, writer: w}
}

// Render serializes ctx into api/daily.json and writes it atomically,
// returning the manifest entry for the written file.
func (r *JsonRenderer) Render(ctx RenderContext, archiveDates []string) (GeneratedFile, error) {
	digest := r.buildDigest(ctx, archiveDates)

	content, err := marshalIndentNoEscape(digest)
	if err != nil {
		return GeneratedFile{}, err
	}

	path := filepath.Join(r.outputDir, "api", "daily.json")
	return r.writer.Write(path, content)
}

func (r *JsonRenderer) buildDigest(ctx RenderContext, archiveDates []string) map[string]any {
	modelReleases := map[string]any{}
	for entityKey, stories := range ctx.Output.ModelReleasesByEntity {
		modelReleases[entityKey] = storiesToDicts(stories)
	}

	return map[string]any{
		"run_id":                   ctx.RunID,
		"run_date":                 ctx.RunDate,
		"generated_at":             ctx.GeneratedAt.UTC().Format(time.RFC3339),
		"top5":                     storiesToDicts(ctx.Output.Top5),
		"model_releases_by_entity": modelReleases,
		"papers":                   storiesToDicts(ctx.Output.Papers),
		"radar":                    storiesToDicts(ctx.Output.Radar),
		"sources_status":           sourceStatusesToDicts(ctx.SourcesStatus),
		"run_info":                 runInfoToDict(ctx.RunInfo),
		"archive_dates":            orEmptyStrings(archiveDates),
		"entity_catalog":           entityCatalogToDict(ctx.EntityCatalog),
	}
}

func storiesToDicts(stories []domain.Story) []map[string]any {
	out := make([]map[string]any, 0, len(stories))
	for _, s := range stories {
		out = append(out, s.ToJSONDict())
	}
	return out
}

func orEmptyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sourceStatusesToDicts(statuses []SourceStatus) []map[string]any {
	out := make([]map[string]any, 0, len(statuses))
	for _, s := range statuses {
		var newestItemDate any
		if s.NewestItemDate != nil {
			newestItemDate = s.NewestItemDate.UTC().Format(time.RFC3339)
		}
		var lastFetchStatusCode any
		if s.LastFetchStatusCode != nil {
			lastFetchStatusCode = *s.LastFetchStatusCode
		}
		out = append(out, map[string]any{
			"source_id":              s.SourceID,
			"name":                   s.Name,
			"tier":                   s.Tier,
			"method":                 s.Method,
			"status":                 string(s.Status),
			"reason_code":            s.ReasonCode,
			"reason_text":            s.ReasonText,
			"remediation_hint":       s.RemediationHint,
			"newest_item_date":       newestItemDate,
			"last_fetch_status_code": lastFetchStatusCode,
			"items_new":              s.ItemsNew,
			"items_updated":          s.ItemsUpdated,
			"category":               s.Category,
		})
	}
	return out
}

func runInfoToDict(r RunInfo) map[string]any {
	var finishedAt any
	if r.FinishedAt != nil {
		finishedAt = r.FinishedAt.UTC().Format(time.RFC3339)
	}
	var success any
	if r.Success != nil {
		success = *r.Success
	}
	return map[string]any{
		"run_id":        r.RunID,
		"started_at":    r.StartedAt.UTC().Format(time.RFC3339),
		"finished_at":   finishedAt,
		"success":       success,
		"error_summary": r.ErrorSummary,
		"items_total":   r.ItemsTotal,
		"stories_total": r.StoriesTotal,
	}
}

func entityCatalogToDict(catalog map[string]EntityInfo) map[string]map[string]string {
	out := make(map[string]map[string]string, len(catalog))
	for id, info := range catalog {
		out[id] = map[string]string{
			"name":   info.Name,
			"region": info.Region,
		}
	}
	return out
}

// marshalIndentNoEscape serializes v with 2-space indentation and without
// HTML-escaping "<", ">", "&". json.Marshal already sorts map[string]any
// keys, so this reproduces the canonical sorted-key form spec.md requires
// without needing a bespoke encoder.
func marshalIndentNoEscape(v any) ([]byte, error) {
	var compactBuf bytes.Buffer
	enc := json.NewEncoder(&compactBuf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, bytes.TrimRight(compactBuf.Bytes(), "\n"), "", "  "); err != nil {
		return nil, err
	}
	return indented.Bytes(), nil
}
