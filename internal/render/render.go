package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"digestpipe/internal/domain"
)

const defaultRetentionDays = 90

// StaticRenderer orchestrates the JSON and HTML render phases through
// RenderStateMachine, collecting an archive-date index and pruning day
// pages outside the retention window once every file has been written.
type StaticRenderer struct {
	runID         string
	outputDir     string
	retentionDays int
	log           *slog.Logger
	state         *RenderStateMachine
}

// NewStaticRenderer builds a StaticRenderer writing under outputDir.
// retentionDays <= 0 falls back to the 90-day default.
func NewStaticRenderer(runID, outputDir string, retentionDays int, log *slog.Logger) *StaticRenderer {
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	if log == nil {
		log = slog.Default()
	}
	return &StaticRenderer{
		runID:         runID,
		outputDir:     outputDir,
		retentionDays: retentionDays,
		log:           log.With("run_id", runID, "component", "renderer"),
		state:         NewRenderStateMachine(runID),
	}
}

// State returns the renderer's current lifecycle state.
func (r *StaticRenderer) State() RenderState { return r.state.State() }

// Render runs both render phases and returns the outcome. now is the frozen
// clock used to derive run_date and generated_at so the pipeline stays
// reproducible under fixtures.
func (r *StaticRenderer) Render(output domain.RankerOutput, sourcesStatus []SourceStatus, runInfo RunInfo, recentRuns []RunInfo, entityCatalog map[string]EntityInfo, now time.Time) RenderResult {
	started := time.Now()
	runDate := now.UTC().Format("2006-01-02")

	manifest := RenderManifest{
		RunID:       r.runID,
		RunDate:     runDate,
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}

	r.log.Info("render_started", "run_date", runDate, "output_dir", r.outputDir)

	result := r.render(output, sourcesStatus, runInfo, recentRuns, entityCatalog, now, runDate, &manifest)

	duration := time.Since(started)
	manifest.DurationMS = float64(duration.Microseconds()) / 1000.0
	result.Manifest = manifest
	renderDurationSeconds.Observe(duration.Seconds())

	if result.Success {
		r.log.Info("render_complete",
			"file_count", len(manifest.Files),
			"total_bytes", manifest.TotalBytes,
			"duration_ms", manifest.DurationMS,
		)
	} else {
		renderFailuresTotal.Inc()
		r.log.Error("render_failed", "error", result.ErrorSummary)
	}

	return result
}

func (r *StaticRenderer) render(output domain.RankerOutput, sourcesStatus []SourceStatus, runInfo RunInfo, recentRuns []RunInfo, entityCatalog map[string]EntityInfo, now time.Time, runDate string, manifest *RenderManifest) RenderResult {
	if err := r.state.ToRenderingJSON(); err != nil {
		return r.fail(err)
	}

	writer := NewAtomicWriter(r.outputDir)
	if err := ensureDir(filepath.Join(r.outputDir, "api")); err != nil {
		return r.fail(err)
	}
	if err := ensureDir(filepath.Join(r.outputDir, "day")); err != nil {
		return r.fail(err)
	}

	ctx := RenderContext{
		RunID:         r.runID,
		RunDate:       runDate,
		GeneratedAt:   now,
		Output:        output,
		SourcesStatus: sourcesStatus,
		RunInfo:       runInfo,
		RecentRuns:    recentRuns,
		EntityCatalog: entityCatalog,
	}

	archiveDates := r.archiveDates(runDate)

	jsonRenderer := NewJsonRenderer(r.runID, r.outputDir, writer)
	jsonFile, err := jsonRenderer.Render(ctx, archiveDates)
	if err != nil {
		return r.fail(err)
	}
	manifest.AddFile(jsonFile)
	renderBytesTotal.Add(float64(jsonFile.BytesWritten))
	filesGeneratedTotal.Inc()

	if err := r.state.ToRenderingHTML(); err != nil {
		return r.fail(err)
	}

	htmlRenderer, err := NewHtmlRenderer(r.outputDir, writer)
	if err != nil {
		return r.fail(err)
	}
	htmlFiles, err := htmlRenderer.Render(ctx, archiveDates)
	if err != nil {
		return r.fail(err)
	}
	for _, f := range htmlFiles {
		manifest.AddFile(f)
		renderBytesTotal.Add(float64(f.BytesWritten))
		filesGeneratedTotal.Inc()
	}

	r.pruneOldDayPages(now)

	if err := r.state.ToDone(); err != nil {
		return r.fail(err)
	}

	return RenderResult{Success: true}
}

func (r *StaticRenderer) fail(err error) RenderResult {
	if ferr := r.state.ToFailed(); ferr != nil {
		r.log.Error("render_state_transition_failed", "error", ferr.Error())
	}
	return RenderResult{Success: false, ErrorSummary: fmt.Sprintf("%T: %v", err, err)}
}

// archiveDates returns every day page's date stem plus the current run
// date, sorted descending.
func (r *StaticRenderer) archiveDates(currentDate string) []string {
	dates := map[string]struct{}{currentDate: {}}

	dayDir := filepath.Join(r.outputDir, "day")
	entries, err := os.ReadDir(dayDir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := e.Name()
			if !strings.HasSuffix(name, ".html") {
				continue
			}
			stem := strings.TrimSuffix(name, ".html")
			if isValidDate(stem) {
				dates[stem] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(dates))
	for d := range dates {
		out = append(out, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

func isValidDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// pruneOldDayPages deletes day/*.html files whose date stem is older than
// retentionDays before now, by string comparison against the cutoff date.
func (r *StaticRenderer) pruneOldDayPages(now time.Time) int {
	dayDir := filepath.Join(r.outputDir, "day")
	entries, err := os.ReadDir(dayDir)
	if err != nil {
		return 0
	}

	cutoff := now.UTC().AddDate(0, 0, -r.retentionDays).Format("2006-01-02")
	pruned := 0

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".html") {
			continue
		}
		stem := strings.TrimSuffix(name, ".html")
		if isValidDate(stem) && stem < cutoff {
			if err := os.Remove(filepath.Join(dayDir, name)); err == nil {
				pruned++
				dayPagesPrunedTotal.Inc()
				r.log.Debug("day_page_pruned", "file", name)
			}
		}
	}

	if pruned > 0 {
		r.log.Info("day_pages_pruned", "count", pruned, "retention_days", r.retentionDays)
	}

	return pruned
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// RenderStatic is a pure-function convenience wrapper around StaticRenderer
// for callers that don't need to hold onto the renderer between runs.
func RenderStatic(runID, outputDir string, output domain.RankerOutput, sourcesStatus []SourceStatus, runInfo RunInfo, recentRuns []RunInfo, entityCatalog map[string]EntityInfo, now time.Time) RenderResult {
	if recentRuns == nil {
		recentRuns = []RunInfo{runInfo}
	}
	renderer := NewStaticRenderer(runID, outputDir, defaultRetentionDays, nil)
	return renderer.Render(output, sourcesStatus, runInfo, recentRuns, entityCatalog, now)
}
