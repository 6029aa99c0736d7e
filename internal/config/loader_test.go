package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSourcesYAML = `
version: "1.0"
sources:
  - id: arxiv-cs-ai
    name: arXiv cs.AI
    url: https://export.arxiv.org/api/query
    tier: 0
    method: arxiv_api
    kind: paper
    timezone: UTC
    max_items: 50
    enabled: true
`

const validEntitiesYAML = `
entities:
  - id: anthropic
    name: Anthropic
    region: intl
    keywords: ["claude", "anthropic"]
  - id: deepseek
    name: DeepSeek
    region: cn
    keywords: ["deepseek"]
`

const validTopicsYAML = `
version: "1.0"
scoring:
  tier_0_weight: 3.0
  tier_1_weight: 2.0
  tier_2_weight: 1.0
  topic_match_weight: 1.5
  entity_match_weight: 2.0
  recency_decay_factor: 0.1
quotas:
  top5_max: 5
  radar_max: 10
  per_source_max: 10
  arxiv_per_category_max: 10
topics:
  - name: reinforcement-learning
    keywords: ["reinforcement learning", "RL"]
    boost_weight: 1.2
`

func writeTempYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoaderLoadsValidConfigAndReachesReady(t *testing.T) {
	dir := t.TempDir()
	sourcesPath := writeTempYAML(t, dir, "sources.yaml", validSourcesYAML)
	entitiesPath := writeTempYAML(t, dir, "entities.yaml", validEntitiesYAML)
	topicsPath := writeTempYAML(t, dir, "topics.yaml", validTopicsYAML)

	l := NewLoader("run-1", nil)
	effective, err := l.Load(sourcesPath, entitiesPath, topicsPath)
	require.NoError(t, err)
	assert.Equal(t, Ready, l.State())
	assert.Len(t, effective.Sources.Sources, 1)
	assert.Len(t, effective.Entities.Entities, 2)
	assert.Len(t, effective.Topics.Topics, 1)
	assert.Len(t, effective.FileChecksums, 3)
	assert.NotEmpty(t, effective.FileChecksums[sourcesPath])
}

func TestLoaderRejectsOutOfRangeSourceTier(t *testing.T) {
	dir := t.TempDir()
	sourcesPath := writeTempYAML(t, dir, "sources.yaml", `
version: "1.0"
sources:
  - id: bad-tier
    name: Bad Tier
    url: https://example.com/feed
    tier: 9
    method: rss_atom
    kind: blog
`)
	entitiesPath := writeTempYAML(t, dir, "entities.yaml", validEntitiesYAML)
	topicsPath := writeTempYAML(t, dir, "topics.yaml", validTopicsYAML)

	l := NewLoader("run-2", nil)
	_, err := l.Load(sourcesPath, entitiesPath, topicsPath)
	require.Error(t, err)
	assert.Equal(t, Failed, l.State())
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, sourcesPath, ve.FilePath)
}

func TestLoaderRejectsForbiddenAuthHeader(t *testing.T) {
	dir := t.TempDir()
	sourcesPath := writeTempYAML(t, dir, "sources.yaml", `
version: "1.0"
sources:
  - id: secret-source
    name: Secret Source
    url: https://example.com/feed
    tier: 1
    method: rss_atom
    kind: blog
    headers:
      Authorization: "Bearer should-not-be-here"
`)
	entitiesPath := writeTempYAML(t, dir, "entities.yaml", validEntitiesYAML)
	topicsPath := writeTempYAML(t, dir, "topics.yaml", validTopicsYAML)

	l := NewLoader("run-3", nil)
	_, err := l.Load(sourcesPath, entitiesPath, topicsPath)
	require.Error(t, err)
	assert.Equal(t, Failed, l.State())
}

func TestLoaderRejectsDuplicateSourceIDs(t *testing.T) {
	dir := t.TempDir()
	sourcesPath := writeTempYAML(t, dir, "sources.yaml", `
version: "1.0"
sources:
  - id: dup
    name: First
    url: https://example.com/a
    tier: 0
    method: rss_atom
    kind: blog
  - id: dup
    name: Second
    url: https://example.com/b
    tier: 0
    method: rss_atom
    kind: blog
`)
	entitiesPath := writeTempYAML(t, dir, "entities.yaml", validEntitiesYAML)
	topicsPath := writeTempYAML(t, dir, "topics.yaml", validTopicsYAML)

	l := NewLoader("run-4", nil)
	_, err := l.Load(sourcesPath, entitiesPath, topicsPath)
	require.Error(t, err)
}

func TestLoaderRejectsUnknownEntityRegion(t *testing.T) {
	dir := t.TempDir()
	sourcesPath := writeTempYAML(t, dir, "sources.yaml", validSourcesYAML)
	entitiesPath := writeTempYAML(t, dir, "entities.yaml", `
entities:
  - id: bad-region
    name: Bad Region
    region: mars
    keywords: ["x"]
`)
	topicsPath := writeTempYAML(t, dir, "topics.yaml", validTopicsYAML)

	l := NewLoader("run-5", nil)
	_, err := l.Load(sourcesPath, entitiesPath, topicsPath)
	require.Error(t, err)
}

func TestLoaderRejectsOutOfRangeScoringWeight(t *testing.T) {
	dir := t.TempDir()
	sourcesPath := writeTempYAML(t, dir, "sources.yaml", validSourcesYAML)
	entitiesPath := writeTempYAML(t, dir, "entities.yaml", validEntitiesYAML)
	topicsPath := writeTempYAML(t, dir, "topics.yaml", `
version: "1.0"
scoring:
  tier_0_weight: 99.0
`)

	l := NewLoader("run-6", nil)
	_, err := l.Load(sourcesPath, entitiesPath, topicsPath)
	require.Error(t, err)
}

func TestLoaderFailsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	entitiesPath := writeTempYAML(t, dir, "entities.yaml", validEntitiesYAML)
	topicsPath := writeTempYAML(t, dir, "topics.yaml", validTopicsYAML)

	l := NewLoader("run-7", nil)
	_, err := l.Load(filepath.Join(dir, "missing.yaml"), entitiesPath, topicsPath)
	require.Error(t, err)
	assert.Equal(t, Failed, l.State())
}

func TestEffectiveConfigNormalizedJSONIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	sourcesPath := writeTempYAML(t, dir, "sources.yaml", validSourcesYAML)
	entitiesPath := writeTempYAML(t, dir, "entities.yaml", validEntitiesYAML)
	topicsPath := writeTempYAML(t, dir, "topics.yaml", validTopicsYAML)

	l := NewLoader("run-8", nil)
	effective, err := l.Load(sourcesPath, entitiesPath, topicsPath)
	require.NoError(t, err)

	first, err := effective.ToNormalizedJSON()
	require.NoError(t, err)
	second, err := effective.ToNormalizedJSON()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	checksum1, err := effective.ComputeChecksum()
	require.NoError(t, err)
	checksum2, err := effective.ComputeChecksum()
	require.NoError(t, err)
	assert.Equal(t, checksum1, checksum2)
}

func TestEffectiveConfigGetEnabledSourcesFiltersDisabled(t *testing.T) {
	dir := t.TempDir()
	sourcesPath := writeTempYAML(t, dir, "sources.yaml", `
version: "1.0"
sources:
  - id: enabled-one
    name: Enabled
    url: https://example.com/a
    tier: 0
    method: rss_atom
    kind: blog
    enabled: true
  - id: disabled-one
    name: Disabled
    url: https://example.com/b
    tier: 0
    method: rss_atom
    kind: blog
    enabled: false
`)
	entitiesPath := writeTempYAML(t, dir, "entities.yaml", validEntitiesYAML)
	topicsPath := writeTempYAML(t, dir, "topics.yaml", validTopicsYAML)

	l := NewLoader("run-9", nil)
	effective, err := l.Load(sourcesPath, entitiesPath, topicsPath)
	require.NoError(t, err)

	enabled := effective.GetEnabledSources()
	require.Len(t, enabled, 1)
	assert.Equal(t, "enabled-one", enabled[0].ID)
}

func TestEffectiveConfigGetEntitiesByRegion(t *testing.T) {
	dir := t.TempDir()
	sourcesPath := writeTempYAML(t, dir, "sources.yaml", validSourcesYAML)
	entitiesPath := writeTempYAML(t, dir, "entities.yaml", validEntitiesYAML)
	topicsPath := writeTempYAML(t, dir, "topics.yaml", validTopicsYAML)

	l := NewLoader("run-10", nil)
	effective, err := l.Load(sourcesPath, entitiesPath, topicsPath)
	require.NoError(t, err)

	cn := effective.GetEntitiesByRegion(RegionCN)
	require.Len(t, cn, 1)
	assert.Equal(t, "deepseek", cn[0].ID)
}
