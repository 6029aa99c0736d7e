package status

import (
	"digestpipe/internal/collector"
)

// SourceStatusCode is the machine-readable status of one source for a run.
type SourceStatusCode string

const (
	StatusNoUpdate      SourceStatusCode = "NO_UPDATE"
	StatusHasUpdate     SourceStatusCode = "HAS_UPDATE"
	StatusFetchFailed   SourceStatusCode = "FETCH_FAILED"
	StatusParseFailed   SourceStatusCode = "PARSE_FAILED"
	StatusOnly          SourceStatusCode = "STATUS_ONLY"
	StatusCannotConfirm SourceStatusCode = "CANNOT_CONFIRM"
)

// Outcome is a StatusComputer verdict for one source, ready to be embedded
// into the renderer's SourceStatus once the caller attaches item counts
// and identity fields it already has from the collector run.
type Outcome struct {
	Status          SourceStatusCode
	ReasonCode      ReasonCode
	ReasonText      string
	RemediationHint string
}

// StatusComputer classifies a collector.Result plus the per-source delta
// counts the runner computed after persisting it into a single Outcome.
// It never performs I/O: every input is already in hand by the time a
// source's run is being summarized.
type StatusComputer struct{}

// NewStatusComputer builds a StatusComputer. It holds no state; the type
// exists to mirror original_source's StatusComputer class shape.
func NewStatusComputer() *StatusComputer {
	return &StatusComputer{}
}

// Compute classifies one source's outcome.
//
//   - statusOnly sources (configured to report status only, no content)
//     always classify as STATUS_ONLY regardless of the collector result.
//   - A failed collector.Result classifies as FETCH_FAILED or PARSE_FAILED
//     depending on the error's class, with ReasonCode from MapCollectorError.
//   - datesMissing (every item lacked a usable published-at) classifies as
//     CANNOT_CONFIRM: the source might have new content but ordering can't
//     prove it.
//   - Otherwise success is graded by the delta: new items first, then
//     updated-only, then no delta at all.
func (c *StatusComputer) Compute(sourceID string, result collector.Result, itemsNew, itemsUpdated int, datesMissing, statusOnly bool) Outcome {
	if statusOnly {
		return Outcome{
			Status:     StatusOnly,
			ReasonCode: ReasonStatusOnlySource,
			ReasonText: DefaultReasonText(ReasonStatusOnlySource),
		}
	}

	if !result.Success() {
		code := MapCollectorError(result.Error)
		statusCode := StatusFetchFailed
		if result.Error != nil && (result.Error.Class == collector.ErrorClassParse || result.Error.Class == collector.ErrorClassSchema) {
			statusCode = StatusParseFailed
		}
		RecordSourceFailed(sourceID, code)
		return Outcome{
			Status:          statusCode,
			ReasonCode:      code,
			ReasonText:      DefaultReasonText(code),
			RemediationHint: DefaultRemediationHint(code),
		}
	}

	if datesMissing {
		RecordSourceCannotConfirm(sourceID)
		return Outcome{
			Status:     StatusCannotConfirm,
			ReasonCode: ReasonDatesMissingNoOrdering,
			ReasonText: DefaultReasonText(ReasonDatesMissingNoOrdering),
		}
	}

	switch {
	case itemsNew > 0:
		return Outcome{
			Status:     StatusHasUpdate,
			ReasonCode: ReasonFetchParseOKHasNew,
			ReasonText: DefaultReasonText(ReasonFetchParseOKHasNew),
		}
	case itemsUpdated > 0:
		return Outcome{
			Status:     StatusHasUpdate,
			ReasonCode: ReasonFetchParseOKHasUpdated,
			ReasonText: DefaultReasonText(ReasonFetchParseOKHasUpdated),
		}
	default:
		return Outcome{
			Status:     StatusNoUpdate,
			ReasonCode: ReasonFetchParseOKNoDelta,
			ReasonText: DefaultReasonText(ReasonFetchParseOKNoDelta),
		}
	}
}
