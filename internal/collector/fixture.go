package collector

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"digestpipe/internal/fetch"
)

// Fixture is one pre-recorded response a FixtureTransport can serve,
// matched either by exact URL or by a regular expression pattern.
type Fixture struct {
	ExactURL    string
	Pattern     *regexp.Regexp
	StatusCode  int
	Body        []byte
	ContentType string
}

func (f Fixture) matches(url string) bool {
	if f.ExactURL != "" {
		return f.ExactURL == url
	}
	if f.Pattern != nil {
		return f.Pattern.MatchString(url)
	}
	return false
}

// FixtureTransport is the test-mode HTTPClient: it never touches the
// network, serving pre-recorded bytes keyed by URL. Unmatched URLs either
// return a 404 Result or make Fetch panic, per RaiseOnUnmatched — tests
// that want to assert "this URL must be fetched" set it to true.
type FixtureTransport struct {
	Fixtures         []Fixture
	RaiseOnUnmatched bool
	Calls            []string
}

// Fetch implements HTTPClient by scanning Fixtures in order for the first
// match, recording every call made (including unmatched ones) for assertions
// like "at most K item pages were fetched".
func (t *FixtureTransport) Fetch(_ context.Context, _ string, rawURL string, _ map[string]string) fetch.Result {
	t.Calls = append(t.Calls, rawURL)

	for _, fx := range t.Fixtures {
		if fx.matches(rawURL) {
			headers := map[string]string{}
			if fx.ContentType != "" {
				headers["content-type"] = fx.ContentType
			}
			status := fx.StatusCode
			if status == 0 {
				status = http.StatusOK
			}
			return fetch.Result{
				StatusCode: status,
				FinalURL:   rawURL,
				Headers:    headers,
				Body:       fx.Body,
				CacheHit:   status == http.StatusNotModified,
			}
		}
	}

	if t.RaiseOnUnmatched {
		panic(fmt.Sprintf("fixture transport: no fixture registered for %q", rawURL))
	}
	return fetch.Result{
		StatusCode: http.StatusNotFound,
		FinalURL:   rawURL,
		Body:       []byte("not found"),
	}
}
