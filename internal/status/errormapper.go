package status

import (
	"strings"

	"digestpipe/internal/collector"
	"digestpipe/internal/fetch"
)

// MapFetchError maps a fetch-layer error to a ReasonCode. fetch.Error
// already classifies the failure (timeout, SSL, HTTP range, size), so this
// switches on Class directly rather than re-deriving it from the message,
// the way original_source/src/features/status/error_mapper.py's
// map_fetch_error_to_reason_code had to when the only input was a generic
// error class plus a message string.
func MapFetchError(err *fetch.Error) ReasonCode {
	if err == nil {
		return ReasonFetchNetworkError
	}

	switch err.Class {
	case fetch.ErrorClassNetworkTimeout:
		return ReasonFetchTimeout
	case fetch.ErrorClassSSLError:
		return ReasonFetchSSLError
	case fetch.ErrorClassResponseSizeExceeded:
		return ReasonFetchTooLarge
	case fetch.ErrorClassHTTP4xx, fetch.ErrorClassRateLimited:
		return ReasonFetchHTTP4xx
	case fetch.ErrorClassHTTP5xx:
		return ReasonFetchHTTP5xx
	default:
		return ReasonFetchNetworkError
	}
}

// MapHTTPStatus maps a raw HTTP status code to a ReasonCode, for call
// sites that only have the status and not a classified fetch.Error. Only
// the package's tests call it; the http_cache layer does not.
func MapHTTPStatus(statusCode *int) ReasonCode {
	if statusCode == nil {
		return ReasonFetchNetworkError
	}
	switch {
	case *statusCode >= 400 && *statusCode < 500:
		return ReasonFetchHTTP4xx
	case *statusCode >= 500 && *statusCode < 600:
		return ReasonFetchHTTP5xx
	default:
		return ReasonFetchNetworkError
	}
}

// MapParseError maps a collector-layer parse/schema error to a ReasonCode.
// collector.Error only distinguishes FETCH/PARSE/SCHEMA at the class level,
// so for PARSE it falls back to sniffing the message the same way
// error_mapper.py's map_parse_error_to_reason_code does, since the
// collector package doesn't carry a finer-grained parse error taxonomy.
func MapParseError(err *collector.Error) ReasonCode {
	if err == nil {
		return ReasonParseHTMLError
	}

	if err.Class == collector.ErrorClassSchema {
		return ReasonParseSchemaError
	}

	msg := strings.ToLower(err.Message)
	switch {
	case strings.Contains(msg, "xml"):
		return ReasonParseXMLError
	case strings.Contains(msg, "json"):
		return ReasonParseJSONError
	case strings.Contains(msg, "no items"), strings.Contains(msg, "empty"):
		return ReasonParseNoItems
	default:
		return ReasonParseHTMLError
	}
}

// MapCollectorError maps any collector.Error (fetch or parse class) to a
// ReasonCode, dispatching to MapParseError for PARSE/SCHEMA and otherwise
// falling back to the message-sniffing fetch rules error_mapper.py uses
// when only a generic FETCH class and message are available (the collector
// layer doesn't always have a classified fetch.Error to hand, e.g. when a
// source-specific adapter constructs the error directly).
func MapCollectorError(err *collector.Error) ReasonCode {
	if err == nil {
		return ReasonFetchNetworkError
	}
	if err.Class == collector.ErrorClassParse || err.Class == collector.ErrorClassSchema {
		return MapParseError(err)
	}

	msg := strings.ToLower(err.Message)
	switch {
	case strings.Contains(msg, "timeout"):
		return ReasonFetchTimeout
	case strings.Contains(msg, "ssl"), strings.Contains(msg, "certificate"):
		return ReasonFetchSSLError
	case strings.Contains(msg, "too large"), strings.Contains(msg, "size limit"):
		return ReasonFetchTooLarge
	default:
		return ReasonFetchNetworkError
	}
}
