package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// FieldError is one structural or semantic validation failure, reported
// with enough context for an operator to find and fix the offending
// field. Grounded on original_source/src/features/config/loader.py's
// ConfigValidationError, which collects {loc, msg, type} dicts from
// pydantic's ValidationError.errors().
type FieldError struct {
	Loc  string
	Msg  string
	Type string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s (%s)", e.Loc, e.Msg, e.Type)
}

// ValidationError reports every FieldError found while loading one config
// document. The pipeline exits with code 1 when this is returned, per
// spec.md's CLI exit-code contract.
type ValidationError struct {
	FilePath string
	Errors   []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %d error(s)", e.FilePath, len(e.Errors))
}

// Loader loads and validates sources.yaml, entities.yaml, and topics.yaml
// into a single immutable EffectiveConfig, following the
// UNLOADED -> LOADING -> VALIDATED -> READY lifecycle
// original_source/src/features/config/loader.py's ConfigLoader enforces.
// Any failure transitions to FAILED and is terminal: a Loader is used once.
type Loader struct {
	runID string
	state *loaderStateMachine
	log   *slog.Logger
}

// NewLoader builds a Loader for one run. log defaults to slog.Default()
// when nil.
func NewLoader(runID string, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{runID: runID, state: newLoaderStateMachine(), log: log}
}

// State returns the loader's current lifecycle state.
func (l *Loader) State() LoaderState { return l.state.State() }

// Load reads, parses, and validates all three config documents and
// returns the resulting EffectiveConfig. On any failure it transitions to
// FAILED and returns an error (a *ValidationError for structural/semantic
// failures, or a wrapped I/O or YAML-parse error).
func (l *Loader) Load(sourcesPath, entitiesPath, topicsPath string) (EffectiveConfig, error) {
	log := l.log.With("run_id", l.runID, "component", "config")

	if err := l.state.transition(Loading); err != nil {
		return EffectiveConfig{}, err
	}
	log.Info("config_loading_started", "phase", string(Loading))

	checksums := make(map[string]string, 3)

	var sources SourcesDoc
	sourcesSum, err := l.loadYAML(sourcesPath, "sources", &sources, log)
	if err != nil {
		return EffectiveConfig{}, l.fail(err)
	}
	checksums[sourcesPath] = sourcesSum
	if err := sources.validate(); err != nil {
		return EffectiveConfig{}, l.fail(fieldValidationError(sourcesPath, "sources", err))
	}

	var entities EntitiesDoc
	entitiesSum, err := l.loadYAML(entitiesPath, "entities", &entities, log)
	if err != nil {
		return EffectiveConfig{}, l.fail(err)
	}
	checksums[entitiesPath] = entitiesSum
	if err := entities.validate(); err != nil {
		return EffectiveConfig{}, l.fail(fieldValidationError(entitiesPath, "entities", err))
	}

	topics := TopicsDoc{Scoring: defaultScoringConfig(), Quotas: defaultQuotasConfig()}
	topicsSum, err := l.loadYAML(topicsPath, "topics", &topics, log)
	if err != nil {
		return EffectiveConfig{}, l.fail(err)
	}
	checksums[topicsPath] = topicsSum
	if err := topics.validate(); err != nil {
		return EffectiveConfig{}, l.fail(fieldValidationError(topicsPath, "topics", err))
	}

	if err := l.state.transition(Validated); err != nil {
		return EffectiveConfig{}, err
	}
	log.Info("config_validation_complete", "phase", string(Validated))

	effective := EffectiveConfig{
		Sources:       sources,
		Entities:      entities,
		Topics:        topics,
		FileChecksums: checksums,
		RunID:         l.runID,
	}

	if err := l.state.transition(Ready); err != nil {
		return EffectiveConfig{}, err
	}
	log.Info("config_ready", "phase", string(Ready),
		"source_count", len(sources.Sources),
		"entity_count", len(entities.Entities),
		"topic_count", len(topics.Topics))

	recordLoadTimestamp()
	return effective, nil
}

// loadYAML reads path, computes its SHA-256, and unmarshals it into out.
func (l *Loader) loadYAML(path, fileType string, out any, log *slog.Logger) (string, error) {
	log.Info("loading_config_file", "file_path", path, "file_type", fileType)

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: read %s: %w", path, err)
	}
	sum := sha256.Sum256(content)
	checksum := hex.EncodeToString(sum[:])

	if err := yaml.Unmarshal(content, out); err != nil {
		return "", fmt.Errorf("config: parse %s: %w", path, err)
	}

	log.Info("config_file_loaded", "file_path", path, "file_sha256", checksum, "file_type", fileType)
	return checksum, nil
}

// fail transitions the loader to FAILED, records the validation-error
// metric, and returns err unchanged so callers can propagate it.
func (l *Loader) fail(err error) error {
	_ = l.state.transition(Failed)
	l.log.Error("config_validation_failed", "run_id", l.runID, "error", err.Error())
	recordValidationError(fieldForError(err))
	return err
}

// fieldValidationError wraps a single structural-validation failure into a
// *ValidationError with one FieldError, matching the shape loader.py
// collects from pydantic even though Go's validators return a single error
// per document rather than a full list.
func fieldValidationError(path, loc string, err error) *ValidationError {
	return &ValidationError{
		FilePath: path,
		Errors:   []FieldError{{Loc: loc, Msg: err.Error(), Type: "validation_error"}},
	}
}

func fieldForError(err error) string {
	if ve, ok := err.(*ValidationError); ok && len(ve.Errors) > 0 {
		return ve.Errors[0].Loc
	}
	return "unknown"
}
