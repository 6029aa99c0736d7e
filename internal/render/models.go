// Package render turns a ranker output into the static site: api/daily.json
// plus index.html, day/YYYY-MM-DD.html, archive.html, sources.html, and
// status.html. Grounded on original_source's src/renderer package for the
// rendering state machine, atomic-write scheme, and per-page template data.
package render

import (
	"time"

	"digestpipe/internal/domain"
	"digestpipe/internal/status"
)

// SourceStatusCode is the machine-readable status of one source for a run.
// The status package owns the classification; render only displays it, so
// these are aliases rather than a second definition of the same enum.
type SourceStatusCode = status.SourceStatusCode

const (
	StatusNoUpdate      = status.StatusNoUpdate
	StatusHasUpdate     = status.StatusHasUpdate
	StatusFetchFailed   = status.StatusFetchFailed
	StatusParseFailed   = status.StatusParseFailed
	StatusOnly          = status.StatusOnly
	StatusCannotConfirm = status.StatusCannotConfirm
)

// SourceStatus is one source's outcome for a run, rendered on sources.html
// and embedded in api/daily.json.
type SourceStatus struct {
	SourceID            string
	Name                string
	Tier                int
	Method              string
	Status              SourceStatusCode
	ReasonCode          string
	ReasonText          string
	RemediationHint     string
	NewestItemDate      *time.Time
	LastFetchStatusCode *int
	ItemsNew            int
	ItemsUpdated        int
	Category            string
}

// RunInfo summarizes one pipeline run, rendered on status.html.
type RunInfo struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   *time.Time
	Success      *bool
	ErrorSummary string
	ItemsTotal   int
	StoriesTotal int
}

// GeneratedFile records one file written by a render pass: its manifest
// path, byte count, and content checksum.
type GeneratedFile struct {
	Path         string
	AbsolutePath string
	BytesWritten int
	SHA256       string
}

// RenderManifest accumulates every file a render pass wrote, for logging and
// idempotency checks.
type RenderManifest struct {
	RunID       string
	RunDate     string
	GeneratedAt string
	Files       []GeneratedFile
	TotalBytes  int
	DurationMS  float64
}

// AddFile appends a file to the manifest and updates the running byte total.
func (m *RenderManifest) AddFile(f GeneratedFile) {
	m.Files = append(m.Files, f)
	m.TotalBytes += f.BytesWritten
}

// RenderResult is the outcome of one render pass.
type RenderResult struct {
	Success      bool
	Manifest     RenderManifest
	ErrorSummary string
}

// EntityInfo is the display detail for one configured entity, embedded in
// api/daily.json's entity_catalog so consumers can label a model-release
// group without re-reading entities.yaml.
type EntityInfo struct {
	Name   string
	Region string
}

// RenderContext bundles everything one render pass needs: the ranker's
// ordered output, per-source status, run metadata, and the entity catalog
// used to label model-release groups and build archive/status pages.
type RenderContext struct {
	RunID         string
	RunDate       string
	GeneratedAt   time.Time
	Output        domain.RankerOutput
	SourcesStatus []SourceStatus
	RunInfo       RunInfo
	RecentRuns    []RunInfo
	EntityCatalog map[string]EntityInfo
}
