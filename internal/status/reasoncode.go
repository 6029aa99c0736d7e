// Package status classifies each source's per-run outcome into a closed
// ReasonCode enum, independent of collector.ErrorClass and fetch.ErrorClass
// (one source failure can have several underlying causes). Grounded on
// original_source/src/features/status's error_mapper.py and metrics.py.
package status

// ReasonCode is the closed set of machine-readable reasons a source's
// status can carry, per spec.md's §4.8 enum.
type ReasonCode string

const (
	ReasonFetchParseOKHasNew     ReasonCode = "FETCH_PARSE_OK_HAS_NEW"
	ReasonFetchParseOKHasUpdated ReasonCode = "FETCH_PARSE_OK_HAS_UPDATED"
	ReasonFetchParseOKNoDelta    ReasonCode = "FETCH_PARSE_OK_NO_DELTA"
	ReasonFetchTimeout           ReasonCode = "FETCH_TIMEOUT"
	ReasonFetchHTTP4xx           ReasonCode = "FETCH_HTTP_4XX"
	ReasonFetchHTTP5xx           ReasonCode = "FETCH_HTTP_5XX"
	ReasonFetchNetworkError      ReasonCode = "FETCH_NETWORK_ERROR"
	ReasonFetchSSLError          ReasonCode = "FETCH_SSL_ERROR"
	ReasonFetchTooLarge          ReasonCode = "FETCH_TOO_LARGE"
	ReasonParseXMLError          ReasonCode = "PARSE_XML_ERROR"
	ReasonParseJSONError         ReasonCode = "PARSE_JSON_ERROR"
	ReasonParseHTMLError         ReasonCode = "PARSE_HTML_ERROR"
	ReasonParseSchemaError       ReasonCode = "PARSE_SCHEMA_ERROR"
	ReasonParseNoItems           ReasonCode = "PARSE_NO_ITEMS"
	ReasonDatesMissingNoOrdering ReasonCode = "DATES_MISSING_NO_ORDERING"
	ReasonStatusOnlySource       ReasonCode = "STATUS_ONLY_SOURCE"
)

// reasonText gives the default human-readable sentence for a reason code,
// used when a caller doesn't supply a more specific message.
var reasonText = map[ReasonCode]string{
	ReasonFetchParseOKHasNew:     "Fetch and parse succeeded; new items found.",
	ReasonFetchParseOKHasUpdated: "Fetch and parse succeeded; existing items updated.",
	ReasonFetchParseOKNoDelta:    "Fetch and parse succeeded; no changes since last run.",
	ReasonFetchTimeout:           "HTTP fetch timed out.",
	ReasonFetchHTTP4xx:           "HTTP fetch failed with a client error.",
	ReasonFetchHTTP5xx:           "HTTP fetch failed with a server error.",
	ReasonFetchNetworkError:      "HTTP fetch failed with a network error.",
	ReasonFetchSSLError:          "HTTP fetch failed a TLS/certificate check.",
	ReasonFetchTooLarge:          "Response exceeded the maximum allowed size.",
	ReasonParseXMLError:          "Failed to parse the response as XML.",
	ReasonParseJSONError:         "Failed to parse the response as JSON.",
	ReasonParseHTMLError:         "Failed to parse the response as HTML.",
	ReasonParseSchemaError:       "Response did not match the expected schema.",
	ReasonParseNoItems:           "Parse succeeded but produced no items.",
	ReasonDatesMissingNoOrdering: "Published dates missing for all items; cannot confirm update status.",
	ReasonStatusOnlySource:       "Source only reports status, not content.",
}

// remediationHints gives an actionable next step for reason codes that
// usually indicate an operator-fixable problem; codes with no entry carry
// no hint.
var remediationHints = map[ReasonCode]string{
	ReasonFetchTimeout:     "Consider increasing timeout or checking network connectivity.",
	ReasonFetchHTTP4xx:     "Check the source URL and any required authentication headers.",
	ReasonFetchHTTP5xx:     "The upstream service may be degraded; retry on the next run.",
	ReasonFetchSSLError:    "Verify the source's TLS certificate is valid and not expired.",
	ReasonFetchTooLarge:    "Raise max_response_size_bytes or confirm the source isn't misbehaving.",
	ReasonParseSchemaError: "The source's response shape may have changed; review the adapter.",
	ReasonParseNoItems:     "Confirm the source still publishes items at the configured URL.",
}

// DefaultReasonText returns the default human-readable sentence for code.
func DefaultReasonText(code ReasonCode) string {
	return reasonText[code]
}

// DefaultRemediationHint returns the actionable hint for code, or "" when
// the code carries none.
func DefaultRemediationHint(code ReasonCode) string {
	return remediationHints[code]
}
