// Package collector runs one per-source state machine per configured source,
// in parallel up to a worker bound, turning fetched bytes into domain.Items.
// It is grounded on the teacher's internal/infra/scraper package (the
// gofeed-backed RSS fetcher) generalized to the six source methods this
// pipeline collects from, and on original_source/src/collectors' test suite
// for the state machine and per-adapter contracts (the collector sources
// themselves were not retrieved into the example pack).
package collector

import "fmt"

// SourceState is one node in the per-source collection state machine.
type SourceState string

const (
	SourcePending    SourceState = "PENDING"
	SourceFetching   SourceState = "FETCHING"
	SourceParsing    SourceState = "PARSING"
	SourceUpserting  SourceState = "UPSERTING"
	SourceDone       SourceState = "SOURCE_DONE"
	SourceFailed     SourceState = "SOURCE_FAILED"
)

// validTransitions enumerates the only legal edges. Any other edge is an
// invariant violation: it fails the source but never the whole run.
var validTransitions = map[SourceState][]SourceState{
	SourcePending:   {SourceFetching},
	SourceFetching:  {SourceParsing, SourceFailed},
	SourceParsing:   {SourceUpserting, SourceFailed},
	SourceUpserting: {SourceDone, SourceFailed},
}

// transition validates from -> to and returns an error describing the
// invariant violation if the edge is not one of the state machine's total
// set of legal transitions.
func transition(from, to SourceState) error {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("collector: illegal state transition %s -> %s", from, to)
}
