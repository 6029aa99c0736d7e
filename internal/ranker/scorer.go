package ranker

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"digestpipe/internal/domain"
)

// ScorerConfig bundles everything StoryScorer needs to compute the nine
// score components for a batch of stories. Now pins "today" for recency
// scoring so a ranking run is reproducible; nil means use the wall clock.
type ScorerConfig struct {
	Scoring   ScoringConfig
	Topics    []TopicConfig
	EntityIDs []string
	Now       *time.Time
	// LLMScores maps story_id to an externally computed relevance score in
	// [0,1]; stories absent from the map score 0 for that component. LLM
	// scoring itself runs out-of-band (a separate enrichment step) and is
	// merely read here, not invoked.
	LLMScores map[string]float64
	// Semantic is optional; a nil value scores every story 0.0 for
	// semantic_score.
	Semantic SemanticScorer
}

// StoryScorer computes ScoreComponents for ranked stories.
type StoryScorer struct {
	cfg          ScorerConfig
	topicMatcher *TopicMatcher
	entitySet    map[string]struct{}
}

// NewStoryScorer builds a StoryScorer from the given configuration.
func NewStoryScorer(cfg ScorerConfig) *StoryScorer {
	entitySet := make(map[string]struct{}, len(cfg.EntityIDs))
	for _, id := range cfg.EntityIDs {
		entitySet[id] = struct{}{}
	}
	return &StoryScorer{
		cfg:          cfg,
		topicMatcher: NewTopicMatcher(cfg.Topics),
		entitySet:    entitySet,
	}
}

func (s *StoryScorer) now() time.Time {
	if s.cfg.Now != nil {
		return *s.cfg.Now
	}
	return time.Now().UTC()
}

// ScoreStory computes every score component for a single story and returns
// the populated ScoreComponents, including TotalScore.
func (s *StoryScorer) ScoreStory(story domain.Story) domain.ScoreComponents {
	c := domain.ScoreComponents{
		TierScore:         s.tierScore(story),
		KindScore:         s.kindScore(story),
		TopicScore:        s.topicScore(story),
		RecencyScore:      s.recencyScore(story),
		EntityScore:       s.entityScore(story),
		CitationScore:     s.citationScore(story),
		CrossSourceScore:  s.crossSourceScore(story),
		SemanticScore:     s.semanticScore(story),
		LLMRelevanceScore: s.llmRelevanceScore(story),
	}
	c.TotalScore = c.TierScore + c.KindScore + c.TopicScore + c.RecencyScore +
		c.EntityScore + c.CitationScore + c.CrossSourceScore + c.SemanticScore +
		c.LLMRelevanceScore
	return c
}

// ScoreStories scores every story in the slice, preserving order.
func (s *StoryScorer) ScoreStories(stories []domain.Story) []domain.ScoredStory {
	out := make([]domain.ScoredStory, 0, len(stories))
	for _, story := range stories {
		out = append(out, domain.ScoredStory{
			Story:      story,
			Components: s.ScoreStory(story),
		})
	}
	return out
}

// ScoreStoriesPure is a side-effect-free convenience wrapper around
// ScoreStories, named to mirror the reference pipeline's pure-function
// entry point used in property and golden-file testing.
func ScoreStoriesPure(cfg ScorerConfig, stories []domain.Story) []domain.ScoredStory {
	return NewStoryScorer(cfg).ScoreStories(stories)
}

func (s *StoryScorer) tierScore(story domain.Story) float64 {
	switch story.PrimaryLink.Tier {
	case 0:
		return s.cfg.Scoring.Tier0Weight
	case 1:
		return s.cfg.Scoring.Tier1Weight
	default:
		return s.cfg.Scoring.Tier2Weight
	}
}

func (s *StoryScorer) kindScore(story domain.Story) float64 {
	if len(story.RawItems) == 0 {
		return kindWeight(string(story.PrimaryLink.LinkType))
	}
	return kindWeight(string(story.RawItems[0].Kind))
}

func kindWeight(kind string) float64 {
	if w, ok := defaultKindWeights[kind]; ok {
		return w
	}
	return defaultKindWeight
}

func (s *StoryScorer) topicScore(story domain.Story) float64 {
	text := storyText(story)
	return s.topicMatcher.ComputeBoostScore(text, s.cfg.Scoring.TopicMatchWeight, s.cfg.Scoring.TopicScoreCap)
}

func storyText(story domain.Story) string {
	parts := make([]string, 0, len(story.RawItems)+1)
	parts = append(parts, story.Title)
	for _, item := range story.RawItems {
		parts = append(parts, item.Title)
	}
	return strings.Join(parts, " ")
}

func (s *StoryScorer) recencyScore(story domain.Story) float64 {
	if story.PublishedAt == nil {
		return 0.1
	}
	daysOld := s.now().Sub(*story.PublishedAt).Hours() / 24.0
	if daysOld < 0 {
		daysOld = 0
	}
	if daysOld > maxRecencyDays {
		daysOld = maxRecencyDays
	}
	return math.Exp(-s.cfg.Scoring.RecencyDecayFactor * daysOld)
}

func (s *StoryScorer) entityScore(story domain.Story) float64 {
	if len(s.entitySet) == 0 {
		return 0
	}
	var matches int
	for _, e := range story.Entities {
		if _, ok := s.entitySet[e]; ok {
			matches++
		}
	}
	return s.cfg.Scoring.EntityMatchWeight * float64(matches)
}

// citationScore reads citation_count out of each raw item's RawJSON, takes
// the maximum across items, and normalizes it on a log scale against
// CitationNormalizationCap. The ratio is clamped to 1.0 before the weight is
// applied so a story with citations far beyond the cap never outscores the
// configured weight.
func (s *StoryScorer) citationScore(story domain.Story) float64 {
	if s.cfg.Scoring.CitationWeight == 0 {
		return 0
	}
	var maxCitations float64
	var found bool
	for _, item := range story.RawItems {
		if item.RawJSON == "" {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal([]byte(item.RawJSON), &raw); err != nil {
			continue
		}
		v, ok := raw["citation_count"]
		if !ok {
			continue
		}
		n, ok := toFloat(v)
		if !ok {
			continue
		}
		if !found || n > maxCitations {
			maxCitations = n
			found = true
		}
	}
	if !found || maxCitations <= 0 {
		return 0
	}
	cap := float64(s.cfg.Scoring.CitationNormalizationCap)
	if cap <= 0 {
		return 0
	}
	ratio := math.Log(1+maxCitations) / math.Log(1+cap)
	if ratio > 1.0 {
		ratio = 1.0
	}
	return ratio * s.cfg.Scoring.CitationWeight
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// crossSourceScore counts "quality signal" raw items — those corroborated by
// a known quality source — and scales by CrossSourceWeight, capped at
// crossSourceScoreCap.
func (s *StoryScorer) crossSourceScore(story domain.Story) float64 {
	var count int
	for _, item := range story.RawItems {
		if isQualitySignal(item) {
			count++
		}
	}
	score := s.cfg.Scoring.CrossSourceWeight * float64(count)
	if score > crossSourceScoreCap {
		return crossSourceScoreCap
	}
	return score
}

func isQualitySignal(item domain.Item) bool {
	switch item.SourceID {
	case "papers_with_code", "hf_daily_papers":
		return true
	}
	if strings.HasPrefix(item.SourceID, "arxiv-api") {
		return true
	}
	if item.RawJSON == "" {
		return false
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(item.RawJSON), &raw); err != nil {
		return false
	}
	if v, ok := raw["from_papers_with_code"].(bool); ok && v {
		return true
	}
	return false
}

func (s *StoryScorer) semanticScore(story domain.Story) float64 {
	if s.cfg.Semantic == nil || !s.cfg.Semantic.Available() {
		return 0.0
	}
	return s.cfg.Semantic.ScoreText(storyText(story), s.cfg.Scoring.SemanticMatchWeight, s.cfg.Scoring.SemanticSimilarityThreshold)
}

func (s *StoryScorer) llmRelevanceScore(story domain.Story) float64 {
	if s.cfg.LLMScores == nil {
		return 0
	}
	raw, ok := s.cfg.LLMScores[story.StoryID]
	if !ok {
		return 0
	}
	return raw * s.cfg.Scoring.LLMRelevanceWeight
}
