// Package config loads and validates the pipeline's three structured
// configuration documents (sources, entities, topics) into a single
// immutable EffectiveConfig that every downstream stage consumes for a
// run. Grounded on original_source/src/config's schemas (sources.py,
// topics.py, effective.py) and src/features/config/loader.py for the
// load-then-validate-then-freeze shape, generalized to Go structs plus
// gopkg.in/yaml.v3 in place of pydantic.
package config

import (
	"fmt"

	"digestpipe/internal/collector"
	"digestpipe/internal/domain"
)

// Region is the closed set an entity can belong to, per spec.md's
// Entities schema (`region∈{cn,intl}`).
type Region string

const (
	RegionCN   Region = "cn"
	RegionIntl Region = "intl"
)

func (r Region) valid() bool {
	return r == RegionCN || r == RegionIntl
}

// EntityConfig is one entry of entities.yaml.
type EntityConfig struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Region      Region          `yaml:"region"`
	Keywords    []string        `yaml:"keywords"`
	PreferLinks []domain.LinkType `yaml:"prefer_links,omitempty"`
}

func (e EntityConfig) validate() error {
	if e.ID == "" {
		return fmt.Errorf("entity config missing id")
	}
	if !e.Region.valid() {
		return fmt.Errorf("entity %q: region must be %q or %q, got %q", e.ID, RegionCN, RegionIntl, e.Region)
	}
	if len(e.Keywords) == 0 {
		return fmt.Errorf("entity %q: keywords must be non-empty", e.ID)
	}
	for _, k := range e.Keywords {
		if k == "" {
			return fmt.Errorf("entity %q: keywords must not contain empty strings", e.ID)
		}
	}
	return nil
}

// EntitiesDoc is the root of entities.yaml.
type EntitiesDoc struct {
	Entities []EntityConfig `yaml:"entities"`
}

func (d EntitiesDoc) validate() error {
	seen := make(map[string]struct{}, len(d.Entities))
	for _, e := range d.Entities {
		if err := e.validate(); err != nil {
			return err
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("duplicate entity id %q", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

// SourcesDoc is the root of sources.yaml.
type SourcesDoc struct {
	Version  string                   `yaml:"version"`
	Defaults map[string]any           `yaml:"defaults,omitempty"`
	Sources  []collector.SourceConfig `yaml:"sources"`
}

func (d SourcesDoc) validate() error {
	if !versionPattern.MatchString(d.Version) {
		return fmt.Errorf("sources.yaml: version %q must match X.Y", d.Version)
	}
	seen := make(map[string]struct{}, len(d.Sources))
	for _, s := range d.Sources {
		if err := s.Validate(); err != nil {
			return err
		}
		if err := validateSourceIdentifier(s.ID); err != nil {
			return err
		}
		if s.Timezone != "" {
			if err := ValidateTimezone(s.Timezone); err != nil {
				return fmt.Errorf("source %q: %w", s.ID, err)
			}
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("duplicate source id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// DedupeConfig controls URL canonicalization during grouping.
type DedupeConfig struct {
	CanonicalURLStripParams []string `yaml:"canonical_url_strip_params,omitempty"`
}

// ScoringConfig holds the ranker's bounded weight parameters.
type ScoringConfig struct {
	Tier0Weight         float64 `yaml:"tier_0_weight"`
	Tier1Weight         float64 `yaml:"tier_1_weight"`
	Tier2Weight         float64 `yaml:"tier_2_weight"`
	TopicMatchWeight    float64 `yaml:"topic_match_weight"`
	EntityMatchWeight   float64 `yaml:"entity_match_weight"`
	RecencyDecayFactor  float64 `yaml:"recency_decay_factor"`
}

func defaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Tier0Weight:        3.0,
		Tier1Weight:        2.0,
		Tier2Weight:        1.0,
		TopicMatchWeight:   1.5,
		EntityMatchWeight:  2.0,
		RecencyDecayFactor: 0.1,
	}
}

func (s ScoringConfig) validate() error {
	weights := map[string]float64{
		"tier_0_weight":        s.Tier0Weight,
		"tier_1_weight":        s.Tier1Weight,
		"tier_2_weight":        s.Tier2Weight,
		"topic_match_weight":   s.TopicMatchWeight,
		"entity_match_weight":  s.EntityMatchWeight,
		"recency_decay_factor": s.RecencyDecayFactor,
	}
	for name, v := range weights {
		if err := ValidateFloatRange(v, 0.0, 5.0); err != nil {
			return fmt.Errorf("scoring.%s: %w", name, err)
		}
	}
	return nil
}

// TopicConfig is one entry of topics.yaml's topics list.
type TopicConfig struct {
	Name        string   `yaml:"name"`
	Keywords    []string `yaml:"keywords"`
	BoostWeight float64  `yaml:"boost_weight"`
}

func (t TopicConfig) validate() error {
	if t.Name == "" {
		return fmt.Errorf("topic config missing name")
	}
	if len(t.Keywords) == 0 {
		return fmt.Errorf("topic %q: keywords must be non-empty", t.Name)
	}
	for _, k := range t.Keywords {
		if k == "" {
			return fmt.Errorf("topic %q: keywords must not contain empty strings", t.Name)
		}
	}
	if err := ValidateFloatRange(t.BoostWeight, 0.0, 5.0); err != nil {
		return fmt.Errorf("topic %q: boost_weight: %w", t.Name, err)
	}
	return nil
}

// QuotasConfig bounds how many stories land in each output section.
type QuotasConfig struct {
	Top5Max             int `yaml:"top5_max"`
	RadarMax            int `yaml:"radar_max"`
	PerSourceMax        int `yaml:"per_source_max"`
	ArxivPerCategoryMax int `yaml:"arxiv_per_category_max"`
}

func defaultQuotasConfig() QuotasConfig {
	return QuotasConfig{Top5Max: 5, RadarMax: 10, PerSourceMax: 10, ArxivPerCategoryMax: 10}
}

func (q QuotasConfig) validate() error {
	quotas := map[string]int{
		"top5_max":               q.Top5Max,
		"radar_max":              q.RadarMax,
		"per_source_max":         q.PerSourceMax,
		"arxiv_per_category_max": q.ArxivPerCategoryMax,
	}
	for name, v := range quotas {
		if v < 0 {
			return fmt.Errorf("quotas.%s: must be >= 0, got %d", name, v)
		}
	}
	return nil
}

// TopicsDoc is the root of topics.yaml.
type TopicsDoc struct {
	Version                string            `yaml:"version"`
	Dedupe                 DedupeConfig      `yaml:"dedupe,omitempty"`
	Scoring                ScoringConfig     `yaml:"scoring,omitempty"`
	Quotas                 QuotasConfig      `yaml:"quotas,omitempty"`
	Topics                 []TopicConfig     `yaml:"topics,omitempty"`
	PreferPrimaryLinkOrder []domain.LinkType `yaml:"prefer_primary_link_order,omitempty"`
}

func (d TopicsDoc) validate() error {
	if !versionPattern.MatchString(d.Version) {
		return fmt.Errorf("topics.yaml: version %q must match X.Y", d.Version)
	}
	if err := d.Scoring.validate(); err != nil {
		return err
	}
	if err := d.Quotas.validate(); err != nil {
		return err
	}
	for _, t := range d.Topics {
		if err := t.validate(); err != nil {
			return err
		}
	}
	return nil
}
