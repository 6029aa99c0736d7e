package collector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"digestpipe/internal/domain"
	"digestpipe/internal/ratelimit"
)

// ItemStore is the persistence surface a source task needs. The Runner
// hands its one Store to every concurrent task, so an implementation must
// be safe for concurrent use — in production every task shares one *sql.DB
// through database/sql's own connection pool, exactly as store.Open
// configures it.
type ItemStore interface {
	ByURL(ctx context.Context, url string) (domain.Item, bool, error)
	UpsertBatch(ctx context.Context, items []domain.Item) error
}

// Registry maps a SourceMethod to the Adapter that implements it. A single
// registry instance is shared read-only across every concurrent source task.
type Registry map[SourceMethod]Adapter

// DefaultRegistry wires every built-in adapter to its source method.
func DefaultRegistry() Registry {
	return Registry{
		MethodRSSAtom:         RSSAdapter{},
		MethodArxivAPI:        ArxivAdapter{},
		MethodGitHubReleases:  GitHubAdapter{},
		MethodHFOrg:           HuggingFaceAdapter{},
		MethodOpenReviewVenue: OpenReviewAdapter{},
		MethodHTMLList:        HTMLListAdapter{},
	}
}

// Runner launches up to MaxWorkers source tasks concurrently and aggregates
// their outcomes. A failing or panicking source is isolated into its own
// SourceOutcome and never aborts the run.
type Runner struct {
	Client      HTTPClient
	Store       ItemStore
	Registry    Registry
	MaxWorkers  int
	Clock       func() time.Time
	Log         *slog.Logger
	RateLimiter *ratelimit.Registry
}

// NewRunner builds a Runner with the default adapter registry, the default
// per-platform rate limits, and a real-time clock; MaxWorkers below 1 is
// treated as 1.
func NewRunner(client HTTPClient, store ItemStore, maxWorkers int) *Runner {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Runner{
		Client:      client,
		Store:       store,
		Registry:    DefaultRegistry(),
		MaxWorkers:  maxWorkers,
		Clock:       time.Now,
		Log:         slog.Default(),
		RateLimiter: ratelimit.NewRegistry(ratelimit.DefaultPlatformLimits(), nil),
	}
}

// platformFor maps a source method to the shared platform bucket it must
// acquire from before fetching. Methods with no shared remote API quota
// (plain RSS/Atom feeds, arXiv, generic HTML listings) return false.
func platformFor(method SourceMethod) (ratelimit.Platform, bool) {
	switch method {
	case MethodGitHubReleases:
		return ratelimit.PlatformGitHub, true
	case MethodHFOrg:
		return ratelimit.PlatformHuggingFace, true
	case MethodOpenReviewVenue:
		return ratelimit.PlatformOpenReview, true
	default:
		return "", false
	}
}

// Run executes every source in sources, bounded to MaxWorkers concurrent
// tasks, and returns the aggregated RunnerResult. It never returns an error
// itself: per-source failures live inside the returned result.
func (r *Runner) Run(ctx context.Context, sources []SourceConfig) RunnerResult {
	sem := make(chan struct{}, r.MaxWorkers)
	eg, egCtx := errgroup.WithContext(ctx)

	results := make(map[string]SourceOutcome, len(sources))
	outcomeCh := make(chan struct {
		id      string
		outcome SourceOutcome
	}, len(sources))

	for _, src := range sources {
		src := src
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome := r.runOne(egCtx, src)
			outcomeCh <- struct {
				id      string
				outcome SourceOutcome
			}{id: src.ID, outcome: outcome}
			return nil
		})
	}

	_ = eg.Wait()
	close(outcomeCh)
	for entry := range outcomeCh {
		results[entry.id] = entry.outcome
	}

	return aggregate(results)
}

// runOne drives one source through the state machine, isolating both
// adapter panics and store errors into a SOURCE_FAILED outcome so they
// never propagate to sibling tasks.
func (r *Runner) runOne(ctx context.Context, src SourceConfig) (outcome SourceOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Log.Error("collector source panicked", slog.String("source_id", src.ID), slog.Any("panic", rec))
			outcome = SourceOutcome{Result: Result{State: SourceFailed, Error: &Error{Class: ErrorClassFetch, Message: fmt.Sprintf("panic: %v", rec)}}}
		}
	}()

	if err := src.Validate(); err != nil {
		return SourceOutcome{Result: Result{State: SourceFailed, Error: &Error{Class: ErrorClassSchema, Message: err.Error()}}}
	}

	adapter, ok := r.Registry[src.Method]
	if !ok {
		return SourceOutcome{Result: Result{State: SourceFailed, Error: &Error{Class: ErrorClassSchema, Message: fmt.Sprintf("no adapter registered for method %q", src.Method)}}}
	}

	if err := transition(SourcePending, SourceFetching); err != nil {
		return SourceOutcome{Result: Result{State: SourceFailed, Error: &Error{Class: ErrorClassSchema, Message: err.Error()}}}
	}

	if r.RateLimiter != nil {
		if platform, ok := platformFor(src.Method); ok {
			if err := r.RateLimiter.Bucket(platform).Acquire(ctx); err != nil {
				return SourceOutcome{Result: Result{State: SourceFailed, Error: &Error{Class: ErrorClassFetch, Message: fmt.Sprintf("rate limit: %v", err)}}}
			}
		}
	}

	result := adapter.Collect(ctx, src, r.Client, r.Clock())
	if !result.Success() {
		return SourceOutcome{Result: result}
	}
	for _, edge := range [][2]SourceState{{SourceFetching, SourceParsing}, {SourceParsing, SourceUpserting}} {
		if err := transition(edge[0], edge[1]); err != nil {
			return SourceOutcome{Result: Result{State: SourceFailed, Error: &Error{Class: ErrorClassSchema, Message: err.Error()}}}
		}
	}

	itemsNew, itemsUpdated, err := r.persist(ctx, result.Items)
	if err != nil {
		return SourceOutcome{Result: Result{State: SourceFailed, Error: &Error{Class: ErrorClassSchema, Message: fmt.Sprintf("upsert: %v", err)}}}
	}
	if err := transition(SourceUpserting, SourceDone); err != nil {
		return SourceOutcome{Result: Result{State: SourceFailed, Error: &Error{Class: ErrorClassSchema, Message: err.Error()}}}
	}

	return SourceOutcome{Result: result, ItemsNew: itemsNew, ItemsUpdated: itemsUpdated}
}

// persist classifies each item as new or updated (by checking whether its
// URL already existed) before upserting the whole batch transactionally.
func (r *Runner) persist(ctx context.Context, items []domain.Item) (itemsNew, itemsUpdated int, err error) {
	if len(items) == 0 {
		return 0, 0, nil
	}
	for _, item := range items {
		_, existed, lookupErr := r.Store.ByURL(ctx, item.URL)
		if lookupErr != nil {
			return 0, 0, lookupErr
		}
		if existed {
			itemsUpdated++
		} else {
			itemsNew++
		}
	}
	if err := r.Store.UpsertBatch(ctx, items); err != nil {
		return 0, 0, err
	}
	return itemsNew, itemsUpdated, nil
}

func aggregate(results map[string]SourceOutcome) RunnerResult {
	agg := RunnerResult{SourceResults: results}
	for _, outcome := range results {
		if outcome.Result.Success() {
			agg.SourcesSucceeded++
		} else {
			agg.SourcesFailed++
		}
		agg.TotalItems += len(outcome.Result.Items)
		agg.TotalNew += outcome.ItemsNew
		agg.TotalUpdated += outcome.ItemsUpdated
	}
	return agg
}

// SortedBySourceFirstSeen returns items from every successful source
// result, ordered by (source_id, first_seen_at, url) — the deterministic
// ordering the Linker requires regardless of which source task finished
// first.
func SortedBySourceFirstSeen(results map[string]SourceOutcome) []domain.Item {
	var all []domain.Item
	for _, outcome := range results {
		if outcome.Result.Success() {
			all = append(all, outcome.Result.Items...)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		if !a.FirstSeenAt.Equal(b.FirstSeenAt) {
			return a.FirstSeenAt.Before(b.FirstSeenAt)
		}
		return a.URL < b.URL
	})
	return all
}
