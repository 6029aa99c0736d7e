// Package main is the digest pipeline's batch entrypoint: load config, run
// the collectors, link, rank, compute per-source status, render the static
// site, and exit. One invocation is one run; --cron turns it into a
// recurring scheduler around that same run function, the way the teacher's
// worker wraps its crawl job in a cron.Schedule rather than looping forever
// by hand.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"digestpipe/internal/collector"
	"digestpipe/internal/config"
	"digestpipe/internal/fetch"
	"digestpipe/internal/linker"
	"digestpipe/internal/observability/logging"
	"digestpipe/internal/ranker"
	"digestpipe/internal/render"
	"digestpipe/internal/status"
	"digestpipe/internal/store"
)

// Exit codes per spec.md's external CLI collaborator contract: 0 success,
// 1 configuration validation failure, 2 any other pipeline failure.
const (
	exitSuccess = 0
	exitConfig  = 1
	exitRun     = 2
)

func main() {
	var (
		sourcesPath  string
		entitiesPath string
		topicsPath   string
		dbPath       string
		outputDir    string
		healthAddr   string
		maxWorkers   int
		retention    int
		cronSchedule string
		cronTZ       string
	)

	flag.StringVar(&sourcesPath, "sources", "config/sources.yaml", "path to sources.yaml")
	flag.StringVar(&entitiesPath, "entities", "config/entities.yaml", "path to entities.yaml")
	flag.StringVar(&topicsPath, "topics", "config/topics.yaml", "path to topics.yaml")
	flag.StringVar(&dbPath, "db", "digestpipe.db", "path to the SQLite state file")
	flag.StringVar(&outputDir, "output", "site", "output directory for the rendered static site")
	flag.StringVar(&healthAddr, "health-addr", ":9090", "listen address for /healthz and /metrics")
	flag.IntVar(&maxWorkers, "max-workers", 8, "maximum concurrent collector tasks")
	flag.IntVar(&retention, "retention-days", 30, "number of days of day pages to retain")
	flag.StringVar(&cronSchedule, "cron", "", "if set, run on this cron schedule instead of once")
	flag.StringVar(&cronTZ, "cron-tz", "UTC", "timezone used to evaluate --cron")
	flag.Parse()

	logger := logging.NewLogger()
	slog.SetDefault(logger)

	health := newHealthServer(healthAddr, logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := health.Start(ctx); err != nil {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	opts := runOptions{
		sourcesPath:  sourcesPath,
		entitiesPath: entitiesPath,
		topicsPath:   topicsPath,
		dbPath:       dbPath,
		outputDir:    outputDir,
		maxWorkers:   maxWorkers,
		retention:    retention,
	}

	if cronSchedule == "" {
		health.SetReady(true)
		code := runOnce(ctx, logger, opts)
		health.SetReady(false)
		os.Exit(code)
	}

	loc, err := time.LoadLocation(cronTZ)
	if err != nil {
		logger.Error("invalid cron timezone, using UTC", slog.String("tz", cronTZ), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cronSchedule, func() {
		health.SetReady(false)
		if code := runOnce(ctx, logger, opts); code != exitSuccess {
			logger.Error("scheduled run failed", slog.Int("exit_code", code))
		}
		health.SetReady(true)
	})
	if err != nil {
		logger.Error("invalid cron schedule", slog.String("schedule", cronSchedule), slog.Any("error", err))
		os.Exit(exitConfig)
	}
	c.Start()
	health.SetReady(true)
	logger.Info("digestd scheduled", slog.String("schedule", cronSchedule), slog.String("tz", cronTZ))
	<-ctx.Done()
	logger.Info("digestd shutting down")
	c.Stop()
}

// runOptions bundles one run's file locations and tuning knobs, kept
// together so runOnce takes a single value rather than seven separate
// parameters.
type runOptions struct {
	sourcesPath  string
	entitiesPath string
	topicsPath   string
	dbPath       string
	outputDir    string
	maxWorkers   int
	retention    int
}

// runOnce executes exactly one pipeline run and returns the process exit
// code it implies. It never calls os.Exit itself so the --cron path can
// call it repeatedly in one process.
func runOnce(ctx context.Context, logger *slog.Logger, opts runOptions) int {
	runID := uuid.NewString()
	log := logger.With(slog.String("run_id", runID), slog.String("component", "digestd"))
	startedAt := time.Now().UTC()

	loader := config.NewLoader(runID, log)
	effective, err := loader.Load(opts.sourcesPath, opts.entitiesPath, opts.topicsPath)
	if err != nil {
		log.Error("config load failed", slog.Any("error", err))
		return exitConfig
	}
	log.Info("config loaded",
		slog.Int("sources", len(effective.Sources.Sources)),
		slog.Int("entities", len(effective.Entities.Entities)),
		slog.Int("topics", len(effective.Topics.Topics)))

	db, err := store.Open(opts.dbPath, store.DefaultConnectionConfig())
	if err != nil {
		log.Error("store open failed", slog.Any("error", err))
		return exitRun
	}
	defer db.Close()

	itemRepo := store.NewItemRepo(db)
	cacheRepo := store.NewHTTPCacheRepo(db)
	runRepo := store.NewRunRepo(db)

	if err := runRepo.Begin(ctx, runID, startedAt); err != nil {
		log.Error("run record begin failed", slog.Any("error", err))
		return exitRun
	}

	result, runErr := runPipeline(ctx, log, effective, itemRepo, cacheRepo, opts)

	finishedAt := time.Now().UTC()
	errorSummary := ""
	if runErr != nil {
		errorSummary = runErr.Error()
	}
	if err := runRepo.Finish(ctx, runID, finishedAt, runErr == nil, errorSummary); err != nil {
		log.Error("run record finish failed", slog.Any("error", err))
	}

	if runErr != nil {
		log.Error("run failed", slog.Any("error", runErr))
		return exitRun
	}

	log.Info("run complete",
		slog.Int("files_written", len(result.Manifest.Files)),
		slog.Int("total_bytes", result.Manifest.TotalBytes),
		slog.Bool("render_success", result.Success))
	if !result.Success {
		return exitRun
	}
	return exitSuccess
}

// runPipeline drives the collect -> link -> rank -> status -> render chain
// for one loaded EffectiveConfig. Source-level failures are contained in
// the returned render.RenderResult's per-source statuses; a non-nil error
// here means a pipeline-level failure (store, linker, ranker, or renderer
// itself), which aborts the run per spec.md's propagation policy.
func runPipeline(ctx context.Context, log *slog.Logger, effective config.EffectiveConfig, itemRepo *store.ItemRepo, cacheRepo *store.HTTPCacheRepo, opts runOptions) (render.RenderResult, error) {
	fetcher := fetch.New(fetch.DefaultConfig(), cacheRepo, log)
	runner := collector.NewRunner(fetcher, itemRepo, opts.maxWorkers)

	sources := effective.GetEnabledSources()
	runnerResult := runner.Run(ctx, sources)
	log.Info("collection complete",
		slog.Int("sources_succeeded", runnerResult.SourcesSucceeded),
		slog.Int("sources_failed", runnerResult.SourcesFailed),
		slog.Int("total_items", runnerResult.TotalItems))

	items := collector.SortedBySourceFirstSeen(runnerResult.SourceResults)

	lk := linker.New(toLinkerEntities(effective.Entities.Entities), effective.Topics.PreferPrimaryLinkOrder)
	linked := lk.Link(items)
	log.Info("linking complete",
		slog.Int("stories_out", linked.StoriesOut),
		slog.Float64("fallback_ratio", linked.FallbackRatio()))

	scorerCfg := ranker.ScorerConfig{
		Scoring:   toRankerScoring(effective.Topics.Scoring),
		Topics:    toRankerTopics(effective.Topics.Topics),
		EntityIDs: entityIDs(effective.Entities.Entities),
	}
	quotaCfg := toRankerQuotas(effective.Topics.Quotas)
	rankerResult, err := ranker.NewStoryRanker(scorerCfg, quotaCfg).RankStories(uuid.NewString(), linked.Stories)
	if err != nil {
		return render.RenderResult{}, fmt.Errorf("rank: %w", err)
	}
	log.Info("ranking complete",
		slog.Int("stories_out", rankerResult.StoriesOut),
		slog.Int("dropped_total", rankerResult.DroppedTotal))

	sourcesStatus := buildSourcesStatus(sources, runnerResult)

	runInfo := render.RunInfo{
		RunID:        effective.RunID,
		StartedAt:    time.Now().UTC(),
		ItemsTotal:   runnerResult.TotalItems,
		StoriesTotal: rankerResult.StoriesOut,
	}
	entityCatalog := buildEntityCatalog(effective.Entities.Entities)

	renderer := render.NewStaticRenderer(effective.RunID, opts.outputDir, opts.retention, log)
	result := renderer.Render(rankerResult.Output, sourcesStatus, runInfo, nil, entityCatalog, time.Now().UTC())
	if !result.Success {
		return result, fmt.Errorf("render: %s", result.ErrorSummary)
	}
	return result, nil
}

// toLinkerEntities, toRankerScoring, toRankerTopics, toRankerQuotas adapt
// the YAML-shaped config package types into each stage's own configuration
// type. The ranker and linker packages predate internal/config and define
// their own unit-bearing config structs, so these are narrow field-by-field
// conversions rather than a shared type.
func toLinkerEntities(entities []config.EntityConfig) []linker.EntityConfig {
	out := make([]linker.EntityConfig, 0, len(entities))
	for _, e := range entities {
		out = append(out, linker.EntityConfig{ID: e.ID, Name: e.Name, Keywords: e.Keywords, PreferLinks: e.PreferLinks})
	}
	return out
}

func toRankerScoring(s config.ScoringConfig) ranker.ScoringConfig {
	return ranker.ScoringConfig{
		Tier0Weight:        s.Tier0Weight,
		Tier1Weight:        s.Tier1Weight,
		Tier2Weight:        s.Tier2Weight,
		TopicMatchWeight:   s.TopicMatchWeight,
		EntityMatchWeight:  s.EntityMatchWeight,
		RecencyDecayFactor: s.RecencyDecayFactor,
	}
}

func toRankerTopics(topics []config.TopicConfig) []ranker.TopicConfig {
	out := make([]ranker.TopicConfig, 0, len(topics))
	for _, t := range topics {
		out = append(out, ranker.TopicConfig{Name: t.Name, Keywords: t.Keywords, BoostWeight: t.BoostWeight})
	}
	return out
}

func toRankerQuotas(q config.QuotasConfig) ranker.QuotasConfig {
	quotas := ranker.DefaultQuotasConfig()
	quotas.Top5Max = q.Top5Max
	quotas.RadarMax = q.RadarMax
	quotas.PerSourceMax = q.PerSourceMax
	quotas.ArxivPerCategoryMax = q.ArxivPerCategoryMax
	return quotas
}

func entityIDs(entities []config.EntityConfig) []string {
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.ID)
	}
	return out
}

// buildSourcesStatus classifies every source the runner attempted via the
// status package. sources is already filtered to enabled sources by the
// caller; a source missing from runnerResult (shouldn't happen, but the
// runner's map is keyed defensively) is treated as an empty success.
func buildSourcesStatus(sources []collector.SourceConfig, runnerResult collector.RunnerResult) []render.SourceStatus {
	computer := status.NewStatusComputer()
	out := make([]render.SourceStatus, 0, len(sources))
	for _, src := range sources {
		outcome, ok := runnerResult.SourceResults[src.ID]
		result := outcome.Result
		if !ok {
			result = collector.Result{State: collector.SourceDone}
		}
		classified := computer.Compute(src.ID, result, outcome.ItemsNew, outcome.ItemsUpdated, false, false)
		out = append(out, render.SourceStatus{
			SourceID:        src.ID,
			Name:            src.Name,
			Tier:            src.Tier,
			Method:          string(src.Method),
			Status:          classified.Status,
			ReasonCode:      string(classified.ReasonCode),
			ReasonText:      classified.ReasonText,
			RemediationHint: classified.RemediationHint,
			ItemsNew:        outcome.ItemsNew,
			ItemsUpdated:    outcome.ItemsUpdated,
		})
	}
	return out
}

func buildEntityCatalog(entities []config.EntityConfig) map[string]render.EntityInfo {
	out := make(map[string]render.EntityInfo, len(entities))
	for _, e := range entities {
		out[e.ID] = render.EntityInfo{Name: e.Name, Region: string(e.Region)}
	}
	return out
}
