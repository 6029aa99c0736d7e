package ranker

// defaultKindWeights scores a story by its primary content kind when no
// override is configured. Values and rationale (model releases outrank
// blogs outrank news) are grounded on spec.md §4.6's kind table.
var defaultKindWeights = map[string]float64{
	"blog":    1.5,
	"paper":   1.2,
	"model":   1.8,
	"release": 1.6,
	"news":    0.8,
	"docs":    1.0,
	"forum":   0.6,
	"social":  0.5,
}

const defaultKindWeight = 1.0

// arxivCategoryPatterns is the fixed set of categories the arXiv
// per-category quota tracks; any paper outside this list falls into the
// catch-all "unknown" bucket rather than its own quota slot.
var arxivCategoryPatterns = []string{"cs.AI", "cs.LG", "cs.CL", "cs.CV", "stat.ML"}

// maxRecencyDays caps the age used in the recency-decay formula so a very
// old story doesn't score a meaningless negative-infinity-adjacent value.
const maxRecencyDays = 30.0

// crossSourceScoreCap is the ceiling on cross_source_score regardless of how
// many quality-signal sources contributed to a story.
const crossSourceScoreCap = 3.0
