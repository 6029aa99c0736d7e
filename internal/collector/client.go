package collector

import (
	"context"
	"time"

	"digestpipe/internal/fetch"
)

// HTTPClient is the surface an adapter needs from the fetch layer. Both
// *fetch.Fetcher and FixtureTransport implement it, so adapters and the
// Runner are agnostic to whether they're talking to the network or to
// pre-recorded fixtures.
type HTTPClient interface {
	Fetch(ctx context.Context, sourceID, rawURL string, extraHeaders map[string]string) fetch.Result
}

// Adapter produces items from one source's fetched bytes. Implementations
// are grouped by SourceMethod in the package registry.
type Adapter interface {
	Collect(ctx context.Context, cfg SourceConfig, client HTTPClient, now time.Time) Result
}
