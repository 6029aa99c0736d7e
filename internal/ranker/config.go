package ranker

// ScoringConfig holds the weights that drive StoryScorer's nine score
// components. Field names and defaults are grounded on topics.yaml's
// scoring block; the config loader (internal/config) is responsible for
// producing a validated instance of this struct from YAML.
type ScoringConfig struct {
	Tier0Weight                 float64
	Tier1Weight                 float64
	Tier2Weight                 float64
	TopicMatchWeight            float64
	TopicScoreCap               float64
	EntityMatchWeight           float64
	RecencyDecayFactor          float64
	CitationWeight              float64
	CitationNormalizationCap    int
	CrossSourceWeight           float64
	SemanticMatchWeight         float64
	SemanticSimilarityThreshold float64
	LLMRelevanceWeight          float64
}

// DefaultScoringConfig matches topics.yaml's documented field defaults.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Tier0Weight:                 3.0,
		Tier1Weight:                 2.0,
		Tier2Weight:                 1.0,
		TopicMatchWeight:            1.5,
		TopicScoreCap:               6.0,
		EntityMatchWeight:           2.0,
		RecencyDecayFactor:          0.1,
		CitationWeight:              0.5,
		CitationNormalizationCap:    1000,
		CrossSourceWeight:           1.0,
		SemanticMatchWeight:         1.0,
		SemanticSimilarityThreshold: 0.50,
		LLMRelevanceWeight:          10.0,
	}
}

// QuotasConfig holds the per-section and per-source output caps.
type QuotasConfig struct {
	Top5Max             int
	RadarMax            int
	PerSourceMax        int
	ArxivPerCategoryMax int
	PapersMax           int
	LLMBypassThreshold  float64
}

// DefaultQuotasConfig matches topics.yaml's documented field defaults.
func DefaultQuotasConfig() QuotasConfig {
	return QuotasConfig{
		Top5Max:             5,
		RadarMax:            10,
		PerSourceMax:        10,
		ArxivPerCategoryMax: 10,
		PapersMax:           20,
		LLMBypassThreshold:  1.0,
	}
}

// TopicConfig is one entry from topics.yaml's topics list: a named keyword
// group whose matches boost a story's topic_score.
type TopicConfig struct {
	Name        string
	Keywords    []string
	BoostWeight float64
}
