package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"digestpipe/internal/collector"
)

// EffectiveConfig is the combined, validated configuration for a run. It is
// built once by Load and never mutated afterward; every downstream stage
// reads from the same frozen value. Grounded on
// original_source/src/config/effective.py's EffectiveConfig, adapted from
// a frozen pydantic model to a plain Go struct that Loader.Load builds and
// returns by value.
type EffectiveConfig struct {
	Sources       SourcesDoc
	Entities      EntitiesDoc
	Topics        TopicsDoc
	FileChecksums map[string]string
	RunID         string
}

// GetSourceByID returns the source config for id, or false if none matches.
func (c EffectiveConfig) GetSourceByID(id string) (collector.SourceConfig, bool) {
	for _, s := range c.Sources.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return collector.SourceConfig{}, false
}

// GetEntityByID returns the entity config for id, or false if none matches.
func (c EffectiveConfig) GetEntityByID(id string) (EntityConfig, bool) {
	for _, e := range c.Entities.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return EntityConfig{}, false
}

// GetEnabledSources returns every source with enabled=true.
func (c EffectiveConfig) GetEnabledSources() []collector.SourceConfig {
	out := make([]collector.SourceConfig, 0, len(c.Sources.Sources))
	for _, s := range c.Sources.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// GetEntitiesByRegion returns every entity whose region matches.
func (c EffectiveConfig) GetEntitiesByRegion(region Region) []EntityConfig {
	out := make([]EntityConfig, 0, len(c.Entities.Entities))
	for _, e := range c.Entities.Entities {
		if e.Region == region {
			out = append(out, e)
		}
	}
	return out
}

// ToNormalizedJSON renders c as JSON with sorted keys and no insignificant
// whitespace, mirroring effective.py's to_normalized_json
// (json.dumps(..., sort_keys=True, separators=(",", ":"))), so repeated
// calls against the same inputs are byte-identical.
func (c EffectiveConfig) ToNormalizedJSON() ([]byte, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: marshal effective config: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("config: round-trip effective config: %w", err)
	}
	return canonicalJSON(generic), nil
}

// ComputeChecksum returns the hex-encoded SHA-256 of ToNormalizedJSON, used
// to detect configuration drift between runs.
func (c EffectiveConfig) ComputeChecksum() (string, error) {
	normalized, err := c.ToNormalizedJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:]), nil
}

// Summary returns the small set of counts and the checksum an operator or
// the status page would want at a glance, mirroring effective.py's
// summary().
func (c EffectiveConfig) Summary() (map[string]any, error) {
	checksum, err := c.ComputeChecksum()
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"run_id":                c.RunID,
		"sources_count":         len(c.Sources.Sources),
		"enabled_sources_count": len(c.GetEnabledSources()),
		"entities_count":        len(c.Entities.Entities),
		"topics_count":          len(c.Topics.Topics),
		"config_checksum":       checksum,
		"file_checksums":        c.FileChecksums,
	}, nil
}

// canonicalJSON renders v (already round-tripped through encoding/json, so
// objects are map[string]any and arrays are []any) with object keys sorted
// and no insignificant whitespace. Grounded on internal/ranker's
// canonicalJSON, which solves the identical sort-keys-compact-separators
// problem for the ranker's checksum.
func canonicalJSON(v any) []byte {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf := []byte("{")
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			keyJSON, _ := json.Marshal(k)
			buf = append(buf, keyJSON...)
			buf = append(buf, ':')
			buf = append(buf, canonicalJSON(val[k])...)
		}
		buf = append(buf, '}')
		return buf
	case []any:
		buf := []byte("[")
		for i, item := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = append(buf, canonicalJSON(item)...)
		}
		buf = append(buf, ']')
		return buf
	default:
		out, _ := json.Marshal(val)
		return out
	}
}
