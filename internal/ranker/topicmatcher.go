package ranker

import (
	"regexp"
	"strings"
)

// shortKeywordThreshold mirrors the linker's entity matcher: keywords this
// short are prone to substring false positives ("RL" inside "URL"), so they
// get word-boundary anchors instead of plain substring matching.
const shortKeywordThreshold = 4

var wordCharsOnly = regexp.MustCompile(`^\w+$`)

func compileTopicKeyword(keyword string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(keyword)
	if len(keyword) <= shortKeywordThreshold && wordCharsOnly.MatchString(keyword) {
		return regexp.MustCompile(`(?i)\b` + escaped + `\b`)
	}
	return regexp.MustCompile(`(?i)` + escaped)
}

type compiledTopic struct {
	config   TopicConfig
	patterns []*regexp.Regexp
}

// TopicMatch is one topic that matched a piece of text.
type TopicMatch struct {
	TopicName      string
	BoostWeight    float64
	MatchedKeyword string
}

// TopicMatcher pre-compiles topics.yaml's keyword patterns once and scans
// story text against them many times over a ranking pass.
type TopicMatcher struct {
	compiled []compiledTopic
}

// NewTopicMatcher builds a TopicMatcher from topic configurations.
func NewTopicMatcher(topics []TopicConfig) *TopicMatcher {
	m := &TopicMatcher{compiled: make([]compiledTopic, 0, len(topics))}
	for _, t := range topics {
		patterns := make([]*regexp.Regexp, 0, len(t.Keywords))
		for _, kw := range t.Keywords {
			patterns = append(patterns, compileTopicKeyword(kw))
		}
		m.compiled = append(m.compiled, compiledTopic{config: t, patterns: patterns})
	}
	return m
}

// TopicCount returns the number of configured topics.
func (m *TopicMatcher) TopicCount() int {
	return len(m.compiled)
}

// MatchText finds all topics that match the given text, at most once per
// topic (first matching keyword wins).
func (m *TopicMatcher) MatchText(text string) []TopicMatch {
	lower := strings.ToLower(text)
	var matches []TopicMatch
	for _, ct := range m.compiled {
		for _, p := range ct.patterns {
			if p.MatchString(lower) {
				matches = append(matches, TopicMatch{
					TopicName:   ct.config.Name,
					BoostWeight: ct.config.BoostWeight,
				})
				break
			}
		}
	}
	return matches
}

// CountMatches counts topic matches by topic name (0 or 1 per topic).
func (m *TopicMatcher) CountMatches(text string) map[string]int {
	counts := make(map[string]int)
	for _, match := range m.MatchText(text) {
		counts[match.TopicName] = 1
	}
	return counts
}

// ComputeBoostScore sums boost_weight*topicMatchWeight across all matched
// topics, capped at cap. A non-positive cap is treated as "no cap."
func (m *TopicMatcher) ComputeBoostScore(text string, topicMatchWeight, cap float64) float64 {
	var total float64
	for _, match := range m.MatchText(text) {
		total += match.BoostWeight * topicMatchWeight
	}
	if cap > 0 && total > cap {
		return cap
	}
	return total
}
