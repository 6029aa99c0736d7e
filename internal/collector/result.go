package collector

import "digestpipe/internal/domain"

// Result is one source task's outcome: its final state, the items it
// produced (only meaningful when State is SourceDone), and an error when
// State is SourceFailed.
type Result struct {
	State   SourceState
	Items   []domain.Item
	Error   *Error
}

// Success reports whether the source completed without failing.
func (r Result) Success() bool {
	return r.State == SourceDone && r.Error == nil
}

// SourceOutcome pairs a Result with the upsert counts the runner computed
// after persisting it, and is what RunnerResult keys by source ID.
type SourceOutcome struct {
	Result        Result
	ItemsNew      int
	ItemsUpdated  int
}

// RunnerResult aggregates every source task's outcome for one run.
type RunnerResult struct {
	SourcesSucceeded int
	SourcesFailed    int
	TotalItems       int
	TotalNew         int
	TotalUpdated     int
	SourceResults    map[string]SourceOutcome
}
