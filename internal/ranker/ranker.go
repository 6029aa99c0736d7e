// Package ranker scores linked Stories, filters them against per-source and
// per-category output quotas, and assigns survivors to the four fixed output
// sections. Grounded on original_source's src/ranker/ranker.py for the
// overall orchestration and checksum scheme, src/ranker/scorer.py and its
// test suite for the nine score-component formulas, and src/ranker/quota.py
// for the quota-then-section-assignment pipeline.
package ranker

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"digestpipe/internal/domain"
)

// RankerResult is the outcome of one ranking run: how many stories went in,
// how the output sections shook out, what got dropped and why, and an
// idempotency checksum over the final ordered output.
type RankerResult struct {
	StoriesIn        int
	StoriesOut       int
	DroppedTotal     int
	DroppedEntries   []domain.DroppedEntry
	TopTopicHits     map[string]int
	ScorePercentiles map[string]float64
	Output           domain.RankerOutput
	OutputChecksum   string
}

// StoryRanker orchestrates the scored -> quota_filtered -> ordered_outputs
// pipeline for a single run.
type StoryRanker struct {
	scorer       *StoryScorer
	quota        *QuotaFilter
	scoring      ScoringConfig
	topicMatcher *TopicMatcher
}

// NewStoryRanker builds a StoryRanker from scorer and quota configuration.
func NewStoryRanker(scorerCfg ScorerConfig, quotaCfg QuotasConfig) *StoryRanker {
	return &StoryRanker{
		scorer:       NewStoryScorer(scorerCfg),
		quota:        NewQuotaFilter(quotaCfg),
		scoring:      scorerCfg.Scoring,
		topicMatcher: NewTopicMatcher(scorerCfg.Topics),
	}
}

// RankStories runs one full ranking pass for runID: score every story, apply
// quotas, assign sections, and compute the output checksum. An empty input
// produces an empty, zero-checksum result rather than an error.
func (r *StoryRanker) RankStories(runID string, stories []domain.Story) (RankerResult, error) {
	sm := NewRankerStateMachine(runID, StateStoriesFinal)

	if len(stories) == 0 {
		if err := sm.ToScored(); err != nil {
			return RankerResult{}, err
		}
		if err := sm.ToQuotaFiltered(); err != nil {
			return RankerResult{}, err
		}
		if err := sm.ToOrderedOutputs(); err != nil {
			return RankerResult{}, err
		}
		return RankerResult{
			TopTopicHits:     map[string]int{},
			ScorePercentiles: map[string]float64{},
			Output:           domain.RankerOutput{ModelReleasesByEntity: map[string][]domain.Story{}},
			OutputChecksum:   computeChecksum(nil),
		}, nil
	}

	scored := r.scorer.ScoreStories(stories)
	if err := sm.ToScored(); err != nil {
		return RankerResult{}, err
	}

	survivors, dropped := r.quota.ApplyQuotas(scored, r.scoring)
	if err := sm.ToQuotaFiltered(); err != nil {
		return RankerResult{}, err
	}

	top5, modelReleases, papers, radar, radarDropped := r.quota.AssignSections(survivors)
	dropped = append(dropped, radarDropped...)
	if err := sm.ToOrderedOutputs(); err != nil {
		return RankerResult{}, err
	}

	output := domain.RankerOutput{
		Top5:                  storiesOf(top5),
		ModelReleasesByEntity: storiesByEntity(modelReleases),
		Papers:                storiesOf(papers),
		Radar:                 storiesOf(radar),
		Dropped:               dropped,
	}
	allOrdered := orderedForChecksum(output)
	output.Checksum = computeChecksum(allOrdered)

	return RankerResult{
		StoriesIn:        len(stories),
		StoriesOut:       len(top5) + countModelReleases(modelReleases) + len(papers) + len(radar),
		DroppedTotal:     len(dropped),
		DroppedEntries:   dropped,
		TopTopicHits:     r.countTopicHits(stories),
		ScorePercentiles: scorePercentiles(scored),
		Output:           output,
		OutputChecksum:   output.Checksum,
	}, nil
}

// RankStoriesPure is a side-effect-free convenience wrapper mirroring the
// reference pipeline's pure-function ranking entry point.
func RankStoriesPure(scorerCfg ScorerConfig, quotaCfg QuotasConfig, runID string, stories []domain.Story) (RankerResult, error) {
	return NewStoryRanker(scorerCfg, quotaCfg).RankStories(runID, stories)
}

func storiesOf(scored []domain.ScoredStory) []domain.Story {
	out := make([]domain.Story, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.Story)
	}
	return out
}

func storiesByEntity(byEntity map[string][]domain.ScoredStory) map[string][]domain.Story {
	out := make(map[string][]domain.Story, len(byEntity))
	for entity, scored := range byEntity {
		out[entity] = storiesOf(scored)
	}
	return out
}

func countModelReleases(byEntity map[string][]domain.ScoredStory) int {
	var n int
	for _, v := range byEntity {
		n += len(v)
	}
	return n
}

// orderedForChecksum produces the canonical section order (top5, model
// releases by sorted entity key, papers, radar) the checksum is computed
// over, so output ordering - not map iteration order - determines it.
func orderedForChecksum(output domain.RankerOutput) []domain.Story {
	var all []domain.Story
	all = append(all, output.Top5...)

	entityKeys := make([]string, 0, len(output.ModelReleasesByEntity))
	for k := range output.ModelReleasesByEntity {
		entityKeys = append(entityKeys, k)
	}
	sort.Strings(entityKeys)
	for _, k := range entityKeys {
		all = append(all, output.ModelReleasesByEntity[k]...)
	}

	all = append(all, output.Papers...)
	all = append(all, output.Radar...)
	return all
}

// computeChecksum hashes the canonical, sort-keys JSON encoding of the
// ordered output stories, matching the reference pipeline's
// json.dumps(...,sort_keys=True,separators=(",",":")) + sha256 scheme so an
// identical input set always yields an identical digest regardless of
// run_id or wall-clock time.
func computeChecksum(stories []domain.Story) string {
	dicts := make([]map[string]any, 0, len(stories))
	for _, s := range stories {
		dicts = append(dicts, s.ToJSONDict())
	}
	canonical := marshalCanonical(dicts)
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}

// marshalCanonical renders v as JSON with object keys sorted and no
// insignificant whitespace, mirroring Python's
// json.dumps(v, sort_keys=True, separators=(",", ":")).
func marshalCanonical(v any) []byte {
	return canonicalJSON(v)
}

func canonicalJSON(v any) []byte {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf := []byte("{")
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			keyJSON, _ := json.Marshal(k)
			buf = append(buf, keyJSON...)
			buf = append(buf, ':')
			buf = append(buf, canonicalJSON(val[k])...)
		}
		buf = append(buf, '}')
		return buf
	case []map[string]any:
		buf := []byte("[")
		for i, item := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, canonicalJSON(item)...)
		}
		buf = append(buf, ']')
		return buf
	case []any:
		buf := []byte("[")
		for i, item := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, canonicalJSON(item)...)
		}
		buf = append(buf, ']')
		return buf
	case []string:
		buf := []byte("[")
		for i, item := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			itemJSON, _ := json.Marshal(item)
			buf = append(buf, itemJSON...)
		}
		buf = append(buf, ']')
		return buf
	default:
		out, _ := json.Marshal(val)
		return out
	}
}

// countTopicHits tallies how many stories matched each configured topic,
// used to report which topics drove the ranking.
func (r *StoryRanker) countTopicHits(stories []domain.Story) map[string]int {
	hits := make(map[string]int)
	for _, s := range stories {
		for _, m := range r.topicMatcher.MatchText(storyText(s)) {
			hits[m.TopicName]++
		}
	}
	return hits
}

// scorePercentiles computes p50/p90/p99 over total scores, matching the
// reference pipeline's clamped-index percentile calculation.
func scorePercentiles(scored []domain.ScoredStory) map[string]float64 {
	if len(scored) == 0 {
		return map[string]float64{}
	}
	scores := make([]float64, 0, len(scored))
	for _, s := range scored {
		scores = append(scores, s.Components.TotalScore)
	}
	sort.Float64s(scores)

	percentile := func(p float64) float64 {
		idx := int(p * float64(len(scores)) / 100.0)
		if idx >= len(scores) {
			idx = len(scores) - 1
		}
		return scores[idx]
	}

	return map[string]float64{
		"p50": percentile(50),
		"p90": percentile(90),
		"p99": percentile(99),
	}
}
