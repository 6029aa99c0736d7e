package linker

import (
	"regexp"
	"strings"

	"digestpipe/internal/domain"
)

var (
	arxivURLPattern = regexp.MustCompile(`arxiv\.org/abs/([^/?#]+)`)
	hfModelPattern  = regexp.MustCompile(`^https://huggingface\.co/([^/]+/[^/?#]+)`)
)

func extractArxivID(rawURL string) string {
	m := arxivURLPattern.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func extractHFModelID(rawURL string) string {
	m := hfModelPattern.FindStringSubmatch(rawURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func isGitHubReleaseURL(rawURL string) bool {
	return strings.Contains(rawURL, "github.com/") && strings.Contains(rawURL, "/releases/")
}

// groupKey computes the precedence-ordered grouping key for an item: arXiv ID,
// then HuggingFace model ID, then GitHub release URL, then a title-based
// fallback hash. It also returns the stable-ID type/value pair for audit
// records — both empty for the fallback tier.
func groupKey(item domain.Item) (key, stableIDType, stableIDValue string) {
	if id := extractArxivID(item.URL); id != "" {
		return "arxiv:" + id, "arxiv_id", id
	}
	if id := extractHFModelID(item.URL); id != "" {
		return "hf:" + id, "hf_model_id", id
	}
	if isGitHubReleaseURL(item.URL) {
		normalized, err := domain.CanonicalizeURL(item.URL, nil)
		if err != nil {
			normalized = item.URL
		}
		return "gh:" + normalized, "github_release_url", normalized
	}
	normalized := domain.NormalizeTitleKey(item.Title)
	return "fallback:" + domain.FallbackKeyHash(normalized), "", ""
}
