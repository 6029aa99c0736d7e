package status

import (
	"testing"

	"digestpipe/internal/collector"
	"digestpipe/internal/fetch"
)

func TestMapFetchErrorClassifiesByClass(t *testing.T) {
	cases := []struct {
		name string
		err  *fetch.Error
		want ReasonCode
	}{
		{"nil error", nil, ReasonFetchNetworkError},
		{"timeout", &fetch.Error{Class: fetch.ErrorClassNetworkTimeout}, ReasonFetchTimeout},
		{"ssl", &fetch.Error{Class: fetch.ErrorClassSSLError}, ReasonFetchSSLError},
		{"too large", &fetch.Error{Class: fetch.ErrorClassResponseSizeExceeded}, ReasonFetchTooLarge},
		{"4xx", &fetch.Error{Class: fetch.ErrorClassHTTP4xx}, ReasonFetchHTTP4xx},
		{"rate limited", &fetch.Error{Class: fetch.ErrorClassRateLimited}, ReasonFetchHTTP4xx},
		{"5xx", &fetch.Error{Class: fetch.ErrorClassHTTP5xx}, ReasonFetchHTTP5xx},
		{"connection error falls back", &fetch.Error{Class: fetch.ErrorClassConnectionError}, ReasonFetchNetworkError},
		{"unknown falls back", &fetch.Error{Class: fetch.ErrorClassUnknown}, ReasonFetchNetworkError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapFetchError(tc.err); got != tc.want {
				t.Errorf("MapFetchError(%+v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestMapHTTPStatusClassifiesByRange(t *testing.T) {
	intPtr := func(v int) *int { return &v }
	cases := []struct {
		name string
		code *int
		want ReasonCode
	}{
		{"nil", nil, ReasonFetchNetworkError},
		{"200", intPtr(200), ReasonFetchNetworkError},
		{"404", intPtr(404), ReasonFetchHTTP4xx},
		{"499", intPtr(499), ReasonFetchHTTP4xx},
		{"500", intPtr(500), ReasonFetchHTTP5xx},
		{"599", intPtr(599), ReasonFetchHTTP5xx},
		{"600 out of range", intPtr(600), ReasonFetchNetworkError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapHTTPStatus(tc.code); got != tc.want {
				t.Errorf("MapHTTPStatus(%v) = %s, want %s", tc.code, got, tc.want)
			}
		})
	}
}

func TestMapParseErrorClassifiesByMessageOrClass(t *testing.T) {
	cases := []struct {
		name string
		err  *collector.Error
		want ReasonCode
	}{
		{"nil", nil, ReasonParseHTMLError},
		{"schema class", &collector.Error{Class: collector.ErrorClassSchema, Message: "whatever"}, ReasonParseSchemaError},
		{"xml message", &collector.Error{Class: collector.ErrorClassParse, Message: "malformed XML document"}, ReasonParseXMLError},
		{"json message", &collector.Error{Class: collector.ErrorClassParse, Message: "invalid JSON payload"}, ReasonParseJSONError},
		{"no items message", &collector.Error{Class: collector.ErrorClassParse, Message: "parse produced no items"}, ReasonParseNoItems},
		{"empty message", &collector.Error{Class: collector.ErrorClassParse, Message: "response body was empty"}, ReasonParseNoItems},
		{"generic falls back to html", &collector.Error{Class: collector.ErrorClassParse, Message: "unexpected token"}, ReasonParseHTMLError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapParseError(tc.err); got != tc.want {
				t.Errorf("MapParseError(%+v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestMapCollectorErrorDispatchesFetchVsParse(t *testing.T) {
	cases := []struct {
		name string
		err  *collector.Error
		want ReasonCode
	}{
		{"nil", nil, ReasonFetchNetworkError},
		{"fetch timeout message", &collector.Error{Class: collector.ErrorClassFetch, Message: "request timeout after 30s"}, ReasonFetchTimeout},
		{"fetch ssl message", &collector.Error{Class: collector.ErrorClassFetch, Message: "ssl certificate verify failed"}, ReasonFetchSSLError},
		{"fetch too large message", &collector.Error{Class: collector.ErrorClassFetch, Message: "response too large"}, ReasonFetchTooLarge},
		{"fetch generic falls back", &collector.Error{Class: collector.ErrorClassFetch, Message: "connection reset"}, ReasonFetchNetworkError},
		{"parse class routes to parse mapper", &collector.Error{Class: collector.ErrorClassParse, Message: "invalid xml"}, ReasonParseXMLError},
		{"schema class routes to parse mapper", &collector.Error{Class: collector.ErrorClassSchema, Message: "missing field"}, ReasonParseSchemaError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MapCollectorError(tc.err); got != tc.want {
				t.Errorf("MapCollectorError(%+v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestStatusComputerStatusOnlySourceAlwaysWins(t *testing.T) {
	c := NewStatusComputer()
	result := collector.Result{State: collector.SourceDone}
	out := c.Compute("src-a", result, 5, 3, true, true)
	if out.Status != StatusOnly {
		t.Fatalf("Status = %s, want %s", out.Status, StatusOnly)
	}
	if out.ReasonCode != ReasonStatusOnlySource {
		t.Fatalf("ReasonCode = %s, want %s", out.ReasonCode, ReasonStatusOnlySource)
	}
	if out.ReasonText != DefaultReasonText(ReasonStatusOnlySource) {
		t.Fatalf("ReasonText = %q, want fixed default text", out.ReasonText)
	}
}

func TestStatusComputerFetchFailedClassifiesAsFetchFailed(t *testing.T) {
	c := NewStatusComputer()
	result := collector.Result{
		State: collector.SourceFailed,
		Error: &collector.Error{Class: collector.ErrorClassFetch, Message: "request timeout after 30s"},
	}
	out := c.Compute("src-a", result, 0, 0, false, false)
	if out.Status != StatusFetchFailed {
		t.Fatalf("Status = %s, want %s", out.Status, StatusFetchFailed)
	}
	if out.ReasonCode != ReasonFetchTimeout {
		t.Fatalf("ReasonCode = %s, want %s", out.ReasonCode, ReasonFetchTimeout)
	}
	if out.ReasonText != "HTTP fetch timed out." {
		t.Fatalf("ReasonText = %q, want fixed canonical sentence", out.ReasonText)
	}
	if out.RemediationHint == "" {
		t.Fatal("expected a remediation hint for FETCH_TIMEOUT")
	}
}

func TestStatusComputerParseFailedClassifiesAsParseFailed(t *testing.T) {
	c := NewStatusComputer()
	result := collector.Result{
		State: collector.SourceFailed,
		Error: &collector.Error{Class: collector.ErrorClassSchema, Message: "missing required field"},
	}
	out := c.Compute("src-a", result, 0, 0, false, false)
	if out.Status != StatusParseFailed {
		t.Fatalf("Status = %s, want %s", out.Status, StatusParseFailed)
	}
	if out.ReasonCode != ReasonParseSchemaError {
		t.Fatalf("ReasonCode = %s, want %s", out.ReasonCode, ReasonParseSchemaError)
	}
}

func TestStatusComputerDatesMissingClassifiesAsCannotConfirm(t *testing.T) {
	c := NewStatusComputer()
	result := collector.Result{State: collector.SourceDone}
	out := c.Compute("src-a", result, 2, 0, true, false)
	if out.Status != StatusCannotConfirm {
		t.Fatalf("Status = %s, want %s", out.Status, StatusCannotConfirm)
	}
	if out.ReasonCode != ReasonDatesMissingNoOrdering {
		t.Fatalf("ReasonCode = %s, want %s", out.ReasonCode, ReasonDatesMissingNoOrdering)
	}
}

func TestStatusComputerSuccessGradesNewBeforeUpdatedBeforeNoDelta(t *testing.T) {
	c := NewStatusComputer()
	result := collector.Result{State: collector.SourceDone}

	out := c.Compute("src-a", result, 3, 1, false, false)
	if out.Status != StatusHasUpdate || out.ReasonCode != ReasonFetchParseOKHasNew {
		t.Fatalf("new-items case: got Status=%s ReasonCode=%s", out.Status, out.ReasonCode)
	}

	out = c.Compute("src-a", result, 0, 2, false, false)
	if out.Status != StatusHasUpdate || out.ReasonCode != ReasonFetchParseOKHasUpdated {
		t.Fatalf("updated-only case: got Status=%s ReasonCode=%s", out.Status, out.ReasonCode)
	}

	out = c.Compute("src-a", result, 0, 0, false, false)
	if out.Status != StatusNoUpdate || out.ReasonCode != ReasonFetchParseOKNoDelta {
		t.Fatalf("no-delta case: got Status=%s ReasonCode=%s", out.Status, out.ReasonCode)
	}
}

func TestDefaultRemediationHintEmptyForCodesWithoutOne(t *testing.T) {
	if hint := DefaultRemediationHint(ReasonFetchParseOKHasNew); hint != "" {
		t.Fatalf("expected no remediation hint for a success code, got %q", hint)
	}
}
