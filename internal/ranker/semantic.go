package ranker

// SemanticScorer is an optional embedding-based relevance plugin. The
// reference implementation backs it with fastembed; wiring a local or
// hosted embedding model is left to the deployment, so the ranker treats it
// as nil-safe and always scores 0.0 when absent.
type SemanticScorer interface {
	// Available reports whether the underlying model loaded successfully.
	Available() bool
	// ScoreText returns a weighted semantic-similarity score for the given
	// text against the configured topic descriptions.
	ScoreText(text string, weight, threshold float64) float64
}

// NoopSemanticScorer is the zero-value SemanticScorer: always unavailable,
// always scores 0.0. Used whenever no embedding backend is configured.
type NoopSemanticScorer struct{}

func (NoopSemanticScorer) Available() bool { return false }

func (NoopSemanticScorer) ScoreText(string, float64, float64) float64 { return 0.0 }
