package linker

import (
	"regexp"
	"sort"
	"strings"
)

// shortKeywordThreshold mirrors the ranker's topic-matching cutoff: keywords
// this short are prone to substring false positives ("RL" inside "URL", "QA"
// inside "QUALITY"), so they get word-boundary anchors; longer keywords, and
// any keyword containing punctuation (e.g. "c++", ".net"), use plain
// substring matching instead.
const shortKeywordThreshold = 4

var wordCharsOnly = regexp.MustCompile(`^\w+$`)

func compileKeywordPattern(keyword string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(keyword)
	if len(keyword) <= shortKeywordThreshold && wordCharsOnly.MatchString(keyword) {
		return regexp.MustCompile(`(?i)\b` + escaped + `\b`)
	}
	return regexp.MustCompile(`(?i)` + escaped)
}

type compiledEntity struct {
	config   EntityConfig
	patterns []*regexp.Regexp
}

// EntityMatcher pre-compiles every configured entity's keyword list once, so
// matching each item's text is a handful of regex scans rather than a
// string-building allocation per keyword per item.
type EntityMatcher struct {
	entities []compiledEntity
}

// NewEntityMatcher compiles the keyword patterns for every configured entity.
func NewEntityMatcher(entities []EntityConfig) *EntityMatcher {
	m := &EntityMatcher{entities: make([]compiledEntity, 0, len(entities))}
	for _, e := range entities {
		patterns := make([]*regexp.Regexp, 0, len(e.Keywords))
		for _, kw := range e.Keywords {
			if strings.TrimSpace(kw) == "" {
				continue
			}
			patterns = append(patterns, compileKeywordPattern(kw))
		}
		m.entities = append(m.entities, compiledEntity{config: e, patterns: patterns})
	}
	return m
}

// Match scans text and returns the sorted, de-duplicated IDs of every
// configured entity whose keyword list hits.
func (m *EntityMatcher) Match(text string) []string {
	if m == nil {
		return nil
	}
	var ids []string
	for _, ce := range m.entities {
		for _, p := range ce.patterns {
			if p.MatchString(text) {
				ids = append(ids, ce.config.ID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}
