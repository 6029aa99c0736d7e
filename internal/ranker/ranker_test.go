package ranker

import (
	"testing"
	"time"

	"digestpipe/internal/domain"
)

func testNow() time.Time {
	t, _ := time.Parse(time.RFC3339, "2024-01-20T00:00:00Z")
	return t
}

func makeItem(sourceID string, kind domain.ContentKind, rawJSON string) domain.Item {
	return domain.Item{
		URL:      "https://example.com/" + sourceID,
		SourceID: sourceID,
		Tier:     1,
		Kind:     kind,
		Title:    "Some Item",
		RawJSON:  rawJSON,
	}
}

func makeStory(id string, tier int, publishedAt *time.Time, items ...domain.Item) domain.Story {
	return domain.Story{
		StoryID:     id,
		Title:       "Story " + id,
		PrimaryLink: domain.StoryLink{URL: "https://example.com/" + id, Tier: tier, SourceID: "src-" + id},
		RawItems:    items,
		PublishedAt: publishedAt,
		ItemCount:   len(items),
	}
}

func TestTierScoreUsesPrimaryLinkTier(t *testing.T) {
	cfg := DefaultScoringConfig()
	now := testNow()
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, Now: &now})

	story0 := makeStory("a", 0, &now)
	story1 := makeStory("b", 1, &now)
	story2 := makeStory("c", 2, &now)

	if got := s.tierScore(story0); got != cfg.Tier0Weight {
		t.Errorf("tier 0: expected %v, got %v", cfg.Tier0Weight, got)
	}
	if got := s.tierScore(story1); got != cfg.Tier1Weight {
		t.Errorf("tier 1: expected %v, got %v", cfg.Tier1Weight, got)
	}
	if got := s.tierScore(story2); got != cfg.Tier2Weight {
		t.Errorf("tier 2: expected %v, got %v", cfg.Tier2Weight, got)
	}
}

func TestKindScoreLooksUpFirstRawItemKind(t *testing.T) {
	cfg := DefaultScoringConfig()
	now := testNow()
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, Now: &now})

	story := makeStory("a", 1, &now, makeItem("hf-org", domain.KindModel, "{}"))
	if got := s.kindScore(story); got != defaultKindWeights["model"] {
		t.Errorf("expected model kind weight, got %v", got)
	}
}

func TestRecencyScoreDecaysWithAgeAndCapsAtMax(t *testing.T) {
	cfg := DefaultScoringConfig()
	now := testNow()
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, Now: &now})

	fresh := now
	old := now.AddDate(0, 0, -100)

	storyFresh := makeStory("fresh", 1, &fresh)
	storyOld := makeStory("old", 1, &old)

	fScore := s.recencyScore(storyFresh)
	oScore := s.recencyScore(storyOld)

	if fScore <= oScore {
		t.Errorf("expected fresher story to score higher recency: fresh=%v old=%v", fScore, oScore)
	}

	veryOld := now.AddDate(0, 0, -1000)
	storyVeryOld := makeStory("very-old", 1, &veryOld)
	if s.recencyScore(storyVeryOld) != oScore {
		t.Errorf("expected recency to clamp at maxRecencyDays, got very_old=%v old=%v", s.recencyScore(storyVeryOld), oScore)
	}
}

func TestRecencyScoreNullPublishedAtGetsFlatPenalty(t *testing.T) {
	cfg := DefaultScoringConfig()
	now := testNow()
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, Now: &now})

	story := makeStory("no-date", 1, nil)
	if got := s.recencyScore(story); got != 0.1 {
		t.Errorf("expected flat 0.1 penalty for null published_at, got %v", got)
	}
}

func TestEntityScoreCountsConfiguredEntityMatches(t *testing.T) {
	cfg := DefaultScoringConfig()
	now := testNow()
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, EntityIDs: []string{"openai", "anthropic"}, Now: &now})

	story := makeStory("a", 1, &now)
	story.Entities = []string{"openai", "anthropic", "unrelated"}

	if got := s.entityScore(story); got != cfg.EntityMatchWeight*2 {
		t.Errorf("expected 2 matches * weight, got %v", got)
	}
}

func TestCitationScoreNormalizesOnLogScale(t *testing.T) {
	cfg := DefaultScoringConfig()
	now := testNow()
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, Now: &now})

	story := makeStory("a", 1, &now, makeItem("arxiv-rss", domain.KindPaper, `{"citation_count":500}`))
	score := s.citationScore(story)
	if score <= 0 || score > cfg.CitationWeight {
		t.Errorf("expected citation score in (0, weight], got %v", score)
	}
}

func TestCitationScoreHighCountNormalizedNeverExceedsWeight(t *testing.T) {
	cfg := DefaultScoringConfig()
	now := testNow()
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, Now: &now})

	story := makeStory("a", 1, &now, makeItem("arxiv-rss", domain.KindPaper, `{"citation_count":10000}`))
	if score := s.citationScore(story); score > cfg.CitationWeight {
		t.Errorf("expected citation score clamped at weight %v, got %v", cfg.CitationWeight, score)
	}
}

func TestCitationScoreMissingOrNonNumericYieldsZero(t *testing.T) {
	cfg := DefaultScoringConfig()
	now := testNow()
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, Now: &now})

	story := makeStory("a", 1, &now, makeItem("arxiv-rss", domain.KindPaper, `{"citation_count":"not-a-number"}`))
	if score := s.citationScore(story); score != 0 {
		t.Errorf("expected 0 for non-numeric citation_count, got %v", score)
	}
}

func TestCrossSourceScoreCountsQualitySignalsAndCaps(t *testing.T) {
	cfg := DefaultScoringConfig()
	now := testNow()
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, Now: &now})

	story := makeStory("a", 1, &now,
		makeItem("papers_with_code", domain.KindPaper, "{}"),
		makeItem("hf_daily_papers", domain.KindPaper, "{}"),
		makeItem("arxiv-api-cs-ai", domain.KindPaper, "{}"),
		makeItem("some-blog", domain.KindBlog, `{"from_papers_with_code":true}`),
	)
	score := s.crossSourceScore(story)
	if score != crossSourceScoreCap {
		t.Errorf("expected 4 quality signals to hit the cap %v, got %v", crossSourceScoreCap, score)
	}
}

func TestCrossSourceScoreIgnoresPlainArxivRSS(t *testing.T) {
	cfg := DefaultScoringConfig()
	now := testNow()
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, Now: &now})

	story := makeStory("a", 1, &now, makeItem("arxiv-cs-ai", domain.KindPaper, "{}"))
	if score := s.crossSourceScore(story); score != 0 {
		t.Errorf("expected arxiv-cs-ai (not arxiv-api prefix) to not count as a quality signal, got %v", score)
	}
}

func TestLLMRelevanceScoreReadsExternalMapByStoryID(t *testing.T) {
	cfg := DefaultScoringConfig()
	now := testNow()
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, Now: &now, LLMScores: map[string]float64{"story-1": 0.8}})

	scored := makeStory("story-1", 1, &now)
	unscored := makeStory("story-2", 1, &now)

	if got := s.llmRelevanceScore(scored); got != 0.8*cfg.LLMRelevanceWeight {
		t.Errorf("expected 0.8*weight, got %v", got)
	}
	if got := s.llmRelevanceScore(unscored); got != 0 {
		t.Errorf("expected 0 for story absent from the LLM score map, got %v", got)
	}
}

func TestTopicScoreCapsAtConfiguredCeiling(t *testing.T) {
	cfg := DefaultScoringConfig()
	cfg.TopicScoreCap = 2.0
	now := testNow()
	topics := []TopicConfig{
		{Name: "llm", Keywords: []string{"language model"}, BoostWeight: 5.0},
		{Name: "agents", Keywords: []string{"agent"}, BoostWeight: 5.0},
	}
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, Topics: topics, Now: &now})

	story := makeStory("a", 1, &now)
	story.Title = "A new language model agent framework"

	if got := s.topicScore(story); got != 2.0 {
		t.Errorf("expected topic score capped at 2.0, got %v", got)
	}
}

func TestTotalScoreSumsAllComponents(t *testing.T) {
	cfg := DefaultScoringConfig()
	now := testNow()
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, Now: &now})

	story := makeStory("a", 1, &now, makeItem("blog", domain.KindBlog, "{}"))
	c := s.ScoreStory(story)

	sum := c.TierScore + c.KindScore + c.TopicScore + c.RecencyScore + c.EntityScore +
		c.CitationScore + c.CrossSourceScore + c.SemanticScore + c.LLMRelevanceScore
	if c.TotalScore != sum {
		t.Errorf("expected total_score to equal the sum of components, total=%v sum=%v", c.TotalScore, sum)
	}
}

func TestSemanticScoreDefaultsToZeroWithoutPlugin(t *testing.T) {
	cfg := DefaultScoringConfig()
	now := testNow()
	s := NewStoryScorer(ScorerConfig{Scoring: cfg, Now: &now})

	story := makeStory("a", 1, &now)
	if got := s.semanticScore(story); got != 0.0 {
		t.Errorf("expected nil-safe semantic score of 0, got %v", got)
	}
}

func scoredStory(id, sourceID string, tier int, score float64, publishedAt *time.Time) domain.ScoredStory {
	story := domain.Story{
		StoryID:     id,
		Title:       "Story " + id,
		PrimaryLink: domain.StoryLink{URL: "https://example.com/" + id, Tier: tier, SourceID: sourceID},
		PublishedAt: publishedAt,
	}
	return domain.ScoredStory{Story: story, Components: domain.ScoreComponents{TotalScore: score}}
}

func TestSortByScoreOrdersDescScoreThenDescPublishedThenAscURL(t *testing.T) {
	now := testNow()
	older := now.AddDate(0, 0, -1)
	stories := []domain.ScoredStory{
		scoredStory("b", "s1", 1, 5.0, &now),
		scoredStory("a", "s1", 1, 5.0, &now),
		scoredStory("c", "s2", 1, 10.0, &older),
		scoredStory("d", "s3", 1, 5.0, nil),
	}
	sortByScore(stories)

	if stories[0].Story.StoryID != "c" {
		t.Errorf("expected highest score first, got %q", stories[0].Story.StoryID)
	}
	if stories[1].Story.StoryID != "a" || stories[2].Story.StoryID != "b" {
		t.Errorf("expected tied scores to break by ascending url, got order %q %q", stories[1].Story.StoryID, stories[2].Story.StoryID)
	}
	if stories[3].Story.StoryID != "d" {
		t.Errorf("expected null published_at to sort last among equal-ish tail, got %q", stories[3].Story.StoryID)
	}
}

func TestApplyPerSourceQuotaDropsOverflow(t *testing.T) {
	quotaCfg := DefaultQuotasConfig()
	quotaCfg.PerSourceMax = 1
	q := NewQuotaFilter(quotaCfg)
	scoring := DefaultScoringConfig()

	now := testNow()
	stories := []domain.ScoredStory{
		scoredStory("a", "same-src", 1, 10.0, &now),
		scoredStory("b", "same-src", 1, 5.0, &now),
	}
	kept, dropped := q.ApplyPerSourceQuota(stories, scoring)

	if len(kept) != 1 || kept[0].Story.StoryID != "a" {
		t.Fatalf("expected only the higher-scored story to survive, got %v", kept)
	}
	if len(dropped) != 1 || dropped[0].Reason != "per_source_max (1)" {
		t.Errorf("unexpected drop reason: %+v", dropped)
	}
}

func TestApplyPerSourceQuotaLLMBypassKeepsOverflow(t *testing.T) {
	quotaCfg := DefaultQuotasConfig()
	quotaCfg.PerSourceMax = 1
	quotaCfg.LLMBypassThreshold = 0.9
	q := NewQuotaFilter(quotaCfg)

	scoring := DefaultScoringConfig()
	now := testNow()

	top := scoredStory("a", "same-src", 1, 10.0, &now)
	bypassed := scoredStory("b", "same-src", 1, 5.0, &now)
	bypassed.Components.LLMRelevanceScore = 0.95 * scoring.LLMRelevanceWeight

	kept, dropped := q.ApplyPerSourceQuota([]domain.ScoredStory{top, bypassed}, scoring)
	if len(kept) != 2 {
		t.Fatalf("expected the LLM-bypass-eligible story to survive, kept=%v dropped=%v", kept, dropped)
	}
}

func TestApplyArxivCategoryQuotaUsesURLOrRawJSONCategory(t *testing.T) {
	quotaCfg := DefaultQuotasConfig()
	quotaCfg.ArxivPerCategoryMax = 1
	q := NewQuotaFilter(quotaCfg)
	scoring := DefaultScoringConfig()
	now := testNow()

	a := scoredStory("a", "arxiv-rss", 1, 10.0, &now)
	a.Story.ArxivID = "2401.00001"
	a.Story.PrimaryLink.URL = "https://arxiv.org/abs/2401.00001"
	a.Story.RawItems = []domain.Item{{RawJSON: `{"categories":["cs.AI"]}`}}

	b := scoredStory("b", "arxiv-rss", 1, 8.0, &now)
	b.Story.ArxivID = "2401.00002"
	b.Story.PrimaryLink.URL = "https://arxiv.org/abs/2401.00002"
	b.Story.RawItems = []domain.Item{{RawJSON: `{"categories":["cs.AI"]}`}}

	kept, dropped := q.ApplyArxivCategoryQuota([]domain.ScoredStory{a, b}, scoring)
	if len(kept) != 1 || kept[0].Story.StoryID != "a" {
		t.Fatalf("expected only the higher-scored cs.AI paper to survive, got %v", kept)
	}
	if len(dropped) != 1 || dropped[0].ArxivCategory != "cs.AI" {
		t.Errorf("expected drop recorded with arxiv category cs.AI, got %+v", dropped)
	}
}

func TestAssignSectionsFillsTop5ThenModelsThenPapersThenRadar(t *testing.T) {
	quotaCfg := DefaultQuotasConfig()
	quotaCfg.Top5Max = 1
	quotaCfg.PapersMax = 1
	quotaCfg.RadarMax = 1
	q := NewQuotaFilter(quotaCfg)
	now := testNow()

	top := scoredStory("top", "s", 0, 100.0, &now)

	model := scoredStory("model", "s", 0, 50.0, &now)
	model.Story.HFModelID = "org/model"

	paper := scoredStory("paper", "s", 0, 40.0, &now)
	paper.Story.ArxivID = "2401.00001"

	radar1 := scoredStory("radar1", "s", 0, 30.0, &now)
	radar2 := scoredStory("radar2", "s", 0, 20.0, &now)

	top5, modelReleases, papers, radar, dropped := q.AssignSections([]domain.ScoredStory{top, model, paper, radar1, radar2})

	if len(top5) != 1 || top5[0].Story.StoryID != "top" {
		t.Errorf("unexpected top5: %v", top5)
	}
	if len(modelReleases["other"]) != 1 || modelReleases["other"][0].Story.StoryID != "model" {
		t.Errorf("unexpected model releases: %v", modelReleases)
	}
	if len(papers) != 1 || papers[0].Story.StoryID != "paper" {
		t.Errorf("unexpected papers: %v", papers)
	}
	if len(radar) != 1 || radar[0].Story.StoryID != "radar1" {
		t.Errorf("unexpected radar: %v", radar)
	}
	if len(dropped) != 1 || dropped[0].StoryID != "radar2" || dropped[0].Reason != "radar_max (1)" {
		t.Errorf("expected radar2 dropped with radar_max reason, got %+v", dropped)
	}
}

func TestAssignSectionsGroupsModelReleasesByFirstEntity(t *testing.T) {
	quotaCfg := DefaultQuotasConfig()
	// No top5 slots, so the story reaches the model-release grouping.
	quotaCfg.Top5Max = 0
	q := NewQuotaFilter(quotaCfg)
	now := testNow()

	model := scoredStory("model", "s", 0, 50.0, &now)
	model.Story.HFModelID = "org/model"
	model.Story.Entities = []string{"openai", "anthropic"}

	_, modelReleases, _, _, _ := q.AssignSections([]domain.ScoredStory{model})
	if len(modelReleases["openai"]) != 1 {
		t.Errorf("expected model release grouped under first entity 'openai', got %v", modelReleases)
	}
}

func TestRankerStateMachineEnforcesForwardOnlyTransitions(t *testing.T) {
	sm := NewRankerStateMachine("run-1", StateStoriesFinal)

	if err := sm.ToQuotaFiltered(); err == nil {
		t.Error("expected skipping straight to quota_filtered to fail")
	}
	if err := sm.ToScored(); err != nil {
		t.Fatalf("expected stories_final -> scored to succeed, got %v", err)
	}
	if err := sm.ToScored(); err == nil {
		t.Error("expected re-entering scored to fail")
	}
	if err := sm.ToQuotaFiltered(); err != nil {
		t.Fatalf("expected scored -> quota_filtered to succeed, got %v", err)
	}
	if err := sm.ToOrderedOutputs(); err != nil {
		t.Fatalf("expected quota_filtered -> ordered_outputs to succeed, got %v", err)
	}
	if !sm.IsTerminal() {
		t.Error("expected ordered_outputs to be terminal")
	}
}

func TestRankStoriesEmptyInputProducesZeroChecksumResult(t *testing.T) {
	now := testNow()
	r := NewStoryRanker(ScorerConfig{Scoring: DefaultScoringConfig(), Now: &now}, DefaultQuotasConfig())

	result, err := r.RankStories("run-empty", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OutputChecksum == "" || len(result.OutputChecksum) != 64 {
		t.Errorf("expected a 64-hex-char checksum even for empty input, got %q", result.OutputChecksum)
	}
}

func TestRankStoriesChecksumIsIdempotentAcrossRunIDs(t *testing.T) {
	now := testNow()
	stories := []domain.Story{
		{StoryID: "a", Title: "Story A", PrimaryLink: domain.StoryLink{URL: "https://example.com/a", Tier: 0}, PublishedAt: &now},
		{StoryID: "b", Title: "Story B", PrimaryLink: domain.StoryLink{URL: "https://example.com/b", Tier: 1}, PublishedAt: &now},
	}

	r1 := NewStoryRanker(ScorerConfig{Scoring: DefaultScoringConfig(), Now: &now}, DefaultQuotasConfig())
	r2 := NewStoryRanker(ScorerConfig{Scoring: DefaultScoringConfig(), Now: &now}, DefaultQuotasConfig())

	res1, err1 := r1.RankStories("run-1", stories)
	res2, err2 := r2.RankStories("run-2", stories)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if res1.OutputChecksum != res2.OutputChecksum {
		t.Errorf("expected identical checksums across run ids, got %q vs %q", res1.OutputChecksum, res2.OutputChecksum)
	}
}

func TestRankStoriesRespectsTop5Max(t *testing.T) {
	now := testNow()
	var stories []domain.Story
	for i := 0; i < 10; i++ {
		stories = append(stories, domain.Story{
			StoryID:     string(rune('a' + i)),
			Title:       "Story",
			PrimaryLink: domain.StoryLink{URL: "https://example.com/" + string(rune('a'+i)), Tier: 0},
			PublishedAt: &now,
		})
	}

	quotaCfg := DefaultQuotasConfig()
	quotaCfg.Top5Max = 5
	r := NewStoryRanker(ScorerConfig{Scoring: DefaultScoringConfig(), Now: &now}, quotaCfg)

	result, err := r.RankStories("run-1", stories)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Output.Top5) != 5 {
		t.Errorf("expected exactly 5 top5 stories, got %d", len(result.Output.Top5))
	}
}

func TestScorePercentilesClampIndexAtUpperBound(t *testing.T) {
	scored := []domain.ScoredStory{
		{Components: domain.ScoreComponents{TotalScore: 1.0}},
		{Components: domain.ScoreComponents{TotalScore: 2.0}},
		{Components: domain.ScoreComponents{TotalScore: 3.0}},
	}
	percentiles := scorePercentiles(scored)
	if percentiles["p99"] != 3.0 {
		t.Errorf("expected p99 to clamp to the max score, got %v", percentiles["p99"])
	}
}
