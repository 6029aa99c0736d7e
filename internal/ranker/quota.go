package ranker

import (
	"sort"
	"strconv"
	"strings"

	"digestpipe/internal/domain"
)

// QuotaFilter applies per-source and per-category output caps to a scored
// batch of stories, then assigns survivors to their output section.
type QuotaFilter struct {
	cfg QuotasConfig
}

// NewQuotaFilter builds a QuotaFilter from quota configuration.
func NewQuotaFilter(cfg QuotasConfig) *QuotaFilter {
	return &QuotaFilter{cfg: cfg}
}

// sortByScore orders stories by (score desc, published_at desc with nulls
// last, primary link url asc). This same ordering drives both quota
// filtering and section assignment, so "first N by this order" always means
// the same N stories in both phases.
func sortByScore(stories []domain.ScoredStory) {
	sort.SliceStable(stories, func(i, j int) bool {
		a, b := stories[i], stories[j]
		if a.Components.TotalScore != b.Components.TotalScore {
			return a.Components.TotalScore > b.Components.TotalScore
		}
		aPub, bPub := a.Story.PublishedAt, b.Story.PublishedAt
		switch {
		case aPub == nil && bPub == nil:
			// fall through to URL tiebreak
		case aPub == nil:
			return false
		case bPub == nil:
			return true
		case !aPub.Equal(*bPub):
			return aPub.After(*bPub)
		}
		return a.Story.PrimaryLink.URL < b.Story.PrimaryLink.URL
	})
}

func sourceID(story domain.Story) string {
	return story.PrimaryLink.SourceID
}

// extractArxivCategory looks for a known arXiv category pattern in the
// primary link URL or any raw item's JSON payload; absent a match the story
// falls into the "unknown" bucket rather than its own quota slot.
func extractArxivCategory(story domain.Story) string {
	if cat := findCategoryIn(story.PrimaryLink.URL); cat != "" {
		return cat
	}
	for _, item := range story.RawItems {
		if cat := findCategoryIn(item.RawJSON); cat != "" {
			return cat
		}
	}
	return "unknown"
}

func findCategoryIn(haystack string) string {
	for _, cat := range arxivCategoryPatterns {
		if strings.Contains(haystack, cat) {
			return cat
		}
	}
	return ""
}

func hasLLMBypass(story domain.ScoredStory, cfg ScoringConfig, bypassThreshold float64) bool {
	if cfg.LLMRelevanceWeight <= 0 || bypassThreshold >= 1.0 {
		return false
	}
	rawScore := story.Components.LLMRelevanceScore / cfg.LLMRelevanceWeight
	return rawScore >= bypassThreshold
}

// ApplyPerSourceQuota drops the lowest-scoring overflow per source_id,
// unless a story is LLM-bypass eligible.
func (q *QuotaFilter) ApplyPerSourceQuota(stories []domain.ScoredStory, scoring ScoringConfig) ([]domain.ScoredStory, []domain.DroppedEntry) {
	if q.cfg.PerSourceMax <= 0 {
		return stories, nil
	}
	sortByScore(stories)
	counts := make(map[string]int)
	kept := make([]domain.ScoredStory, 0, len(stories))
	var dropped []domain.DroppedEntry
	for _, s := range stories {
		src := sourceID(s.Story)
		if counts[src] < q.cfg.PerSourceMax || hasLLMBypass(s, scoring, q.cfg.LLMBypassThreshold) {
			counts[src]++
			kept = append(kept, s)
			continue
		}
		dropped = append(dropped, domain.DroppedEntry{
			StoryID:  s.Story.StoryID,
			SourceID: src,
			Score:    s.Components.TotalScore,
			Reason:   reasonString("per_source_max", q.cfg.PerSourceMax),
		})
	}
	return kept, dropped
}

// ApplyArxivCategoryQuota caps how many arXiv papers from the same category
// survive, with the same LLM bypass rule.
func (q *QuotaFilter) ApplyArxivCategoryQuota(stories []domain.ScoredStory, scoring ScoringConfig) ([]domain.ScoredStory, []domain.DroppedEntry) {
	if q.cfg.ArxivPerCategoryMax <= 0 {
		return stories, nil
	}
	sortByScore(stories)
	counts := make(map[string]int)
	kept := make([]domain.ScoredStory, 0, len(stories))
	var dropped []domain.DroppedEntry
	for _, s := range stories {
		if s.Story.ArxivID == "" {
			kept = append(kept, s)
			continue
		}
		cat := extractArxivCategory(s.Story)
		if counts[cat] < q.cfg.ArxivPerCategoryMax || hasLLMBypass(s, scoring, q.cfg.LLMBypassThreshold) {
			counts[cat]++
			kept = append(kept, s)
			continue
		}
		dropped = append(dropped, domain.DroppedEntry{
			StoryID:       s.Story.StoryID,
			SourceID:      sourceID(s.Story),
			Score:         s.Components.TotalScore,
			Reason:        reasonString("arxiv_per_category_max", q.cfg.ArxivPerCategoryMax),
			ArxivCategory: cat,
		})
	}
	return kept, dropped
}

func reasonString(name string, limit int) string {
	return name + " (" + strconv.Itoa(limit) + ")"
}

func isModelRelease(story domain.Story) bool {
	if story.HFModelID != "" {
		return true
	}
	for _, item := range story.RawItems {
		if item.Kind == domain.KindModel {
			return true
		}
	}
	return false
}

func isPaper(story domain.Story) bool {
	if story.ArxivID != "" {
		return true
	}
	for _, item := range story.RawItems {
		if item.Kind == domain.KindPaper {
			return true
		}
	}
	return false
}

// AssignSections partitions already-quota-filtered stories into the four
// output sections in priority order: top5 first (by score order), then
// model releases (grouped by first matching entity, else "other"), then
// papers up to PapersMax, then radar with the remainder up to RadarMax.
// Anything left over after radar fills is dropped with a radar_max reason.
func (q *QuotaFilter) AssignSections(stories []domain.ScoredStory) (top5 []domain.ScoredStory, modelReleasesByEntity map[string][]domain.ScoredStory, papers []domain.ScoredStory, radar []domain.ScoredStory, dropped []domain.DroppedEntry) {
	sortByScore(stories)
	modelReleasesByEntity = make(map[string][]domain.ScoredStory)

	remaining := make([]domain.ScoredStory, 0, len(stories))
	for i, s := range stories {
		if i < q.cfg.Top5Max {
			top5 = append(top5, s)
			continue
		}
		remaining = append(remaining, s)
	}

	var afterModels []domain.ScoredStory
	for _, s := range remaining {
		if isModelRelease(s.Story) {
			entity := "other"
			if len(s.Story.Entities) > 0 {
				entity = s.Story.Entities[0]
			}
			modelReleasesByEntity[entity] = append(modelReleasesByEntity[entity], s)
			continue
		}
		afterModels = append(afterModels, s)
	}

	var afterPapers []domain.ScoredStory
	for _, s := range afterModels {
		if isPaper(s.Story) && len(papers) < q.cfg.PapersMax {
			papers = append(papers, s)
			continue
		}
		afterPapers = append(afterPapers, s)
	}

	for _, s := range afterPapers {
		if len(radar) < q.cfg.RadarMax {
			radar = append(radar, s)
			continue
		}
		dropped = append(dropped, domain.DroppedEntry{
			StoryID:  s.Story.StoryID,
			SourceID: sourceID(s.Story),
			Score:    s.Components.TotalScore,
			Reason:   reasonString("radar_max", q.cfg.RadarMax),
		})
	}

	return top5, modelReleasesByEntity, papers, radar, dropped
}

// ApplyQuotas runs the per-source then arXiv-category quota stages in
// sequence, returning survivors and the combined drop list in stage order.
func (q *QuotaFilter) ApplyQuotas(stories []domain.ScoredStory, scoring ScoringConfig) ([]domain.ScoredStory, []domain.DroppedEntry) {
	var allDropped []domain.DroppedEntry

	survivors, dropped := q.ApplyPerSourceQuota(stories, scoring)
	allDropped = append(allDropped, dropped...)

	survivors, dropped = q.ApplyArxivCategoryQuota(survivors, scoring)
	allDropped = append(allDropped, dropped...)

	return survivors, allDropped
}

// ApplyQuotasPure is a side-effect-free convenience wrapper mirroring the
// reference pipeline's pure-function quota entry point.
func ApplyQuotasPure(cfg QuotasConfig, scoring ScoringConfig, stories []domain.ScoredStory) ([]domain.ScoredStory, []domain.DroppedEntry) {
	return NewQuotaFilter(cfg).ApplyQuotas(stories, scoring)
}
