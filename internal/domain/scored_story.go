package domain

// ScoreComponents holds the individually computed score contributions that
// sum into TotalScore. Every component is grounded in spec.md §4.6 and
// src/ranker/scorer.py's exact formulas.
type ScoreComponents struct {
	TierScore        float64
	KindScore        float64
	TopicScore       float64
	RecencyScore     float64
	EntityScore      float64
	CitationScore    float64
	CrossSourceScore float64
	SemanticScore    float64
	LLMRelevanceScore float64
	TotalScore       float64
}

// ScoredStory is a Story annotated with ScoreComponents, an optional
// section assignment, and a drop flag with reason.
type ScoredStory struct {
	Story            Story
	Components       ScoreComponents
	AssignedSection  *StorySection
	Dropped          bool
	DropReason       string
}

// DroppedEntry is an audit record for a story removed by quota filtering.
type DroppedEntry struct {
	StoryID       string
	SourceID      string
	Score         float64
	Reason        string
	ArxivCategory string
}

// RankerOutput is the final ordered result of the ranker stage.
type RankerOutput struct {
	Top5                    []Story
	ModelReleasesByEntity   map[string][]Story
	Papers                  []Story
	Radar                   []Story
	Dropped                 []DroppedEntry
	Checksum                string
}
