package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/fetch"
	"github.com/pagefold/pagefold/internal/frontier"
	"github.com/pagefold/pagefold/internal/merge"
	"github.com/pagefold/pagefold/internal/progress"
	"github.com/pagefold/pagefold/internal/queue"
	"github.com/pagefold/pagefold/internal/render"
	"github.com/pagefold/pagefold/internal/urlutil"
)

// Deps are the external collaborators a run needs. Renderer may be nil
// unless the output kind is pdf; a nil Emitter disables progress events.
type Deps struct {
	Fetcher  fetch.Fetcher
	Renderer render.Renderer
	Emitter  progress.Emitter
	Logger   *zap.Logger
}

// Summary reports what one run accomplished.
type Summary struct {
	RunID      uuid.UUID
	Visited    int
	Rounds     int
	Discovered int
	Artifacts  int64
	Parts      []merge.Part
	Elapsed    time.Duration
}

// Run executes the full crawl, transform, and merge pipeline. The three
// stages are connected by bounded queues; the crawler closes the page
// queue when discovery ends, the worker pool closes the artifact queue
// once the last worker drains, and the merger then seals its final bundle.
func Run(ctx context.Context, cfg config.Config, deps Deps) (Summary, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	emitter := deps.Emitter
	if emitter == nil {
		emitter = progress.Nop{}
	}

	runID := uuid.New()
	start := time.Now()
	emitter.Emit(progress.Event{RunID: runID, TS: start.UTC(), Stage: progress.StageRunStart, URL: cfg.Crawl.SeedURL})

	summary, err := run(ctx, cfg, deps, runID, logger, emitter)
	summary.RunID = runID
	summary.Elapsed = time.Since(start)
	if err != nil {
		emitter.Emit(progress.Event{RunID: runID, TS: time.Now().UTC(), Stage: progress.StageRunError, Note: err.Error()})
		return summary, err
	}
	emitter.Emit(progress.Event{RunID: runID, TS: time.Now().UTC(), Stage: progress.StageRunDone})
	return summary, nil
}

func run(ctx context.Context, cfg config.Config, deps Deps, runID uuid.UUID, logger *zap.Logger, emitter progress.Emitter) (Summary, error) {
	var summary Summary

	allow, err := urlutil.NewAllowList(allowPatterns(cfg))
	if err != nil {
		return summary, err
	}

	crawler, err := frontier.NewCrawler(
		frontier.Config{
			SeedURL:     cfg.Crawl.SeedURL,
			MaxURLs:     cfg.Crawl.MaxURLs,
			Concurrency: cfg.Crawl.Concurrency,
		},
		deps.Fetcher, allow, runID, logger.Named("crawler"), emitter,
	)
	if err != nil {
		return summary, err
	}

	strategy, err := NewStrategy(cfg.Output.Kind, cfg.Output.MarkdownPolicy, deps.Fetcher, deps.Renderer, logger.Named("strategy"))
	if err != nil {
		return summary, err
	}

	tmpDir, err := os.MkdirTemp("", "pagefold-*")
	if err != nil {
		return summary, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			logger.Warn("temp dir cleanup failed", zap.String("dir", tmpDir), zap.Error(err))
		}
	}()

	pool, err := NewPool(cfg.Pipeline.Workers, strategy, tmpDir, cfg.Output.Kind.Ext(), runID, logger.Named("worker"), emitter)
	if err != nil {
		return summary, err
	}

	merger, err := merge.NewMerger(mergeConfig(cfg), bundleWriterFor(cfg.Output.Kind), runID, logger.Named("merger"), emitter)
	if err != nil {
		return summary, err
	}

	pages := queue.New[frontier.Page](cfg.Pipeline.QueueDepth)
	artifacts := queue.New[merge.Artifact](cfg.Pipeline.QueueDepth)

	// A merger failure cancels the upstream stages so they never block on
	// a queue nobody is draining.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		parts     []merge.Part
		mergeErr  error
		poolErr   error
		mergeDone = make(chan struct{})
		poolDone  = make(chan struct{})
	)
	go func() {
		defer close(mergeDone)
		parts, mergeErr = merger.Run(runCtx, artifacts)
		if mergeErr != nil {
			cancel()
		}
	}()
	go func() {
		defer close(poolDone)
		poolErr = pool.Run(runCtx, pages, artifacts)
	}()

	stats, crawlErr := crawler.Run(runCtx, pages)
	<-poolDone
	<-mergeDone

	summary.Visited = stats.Visited
	summary.Rounds = stats.Rounds
	summary.Discovered = len(stats.Discovered)
	summary.Artifacts = pool.Converted()
	summary.Parts = parts

	switch {
	case mergeErr != nil:
		return summary, fmt.Errorf("merge: %w", mergeErr)
	case crawlErr != nil:
		return summary, fmt.Errorf("crawl: %w", crawlErr)
	case poolErr != nil:
		return summary, fmt.Errorf("transform: %w", poolErr)
	}

	logger.Info("run complete",
		zap.Int("visited", summary.Visited),
		zap.Int("rounds", summary.Rounds),
		zap.Int64("artifacts", summary.Artifacts),
		zap.Int("bundles", len(summary.Parts)),
	)
	return summary, nil
}

// allowPatterns defaults the crawl scope to the seed URL itself when no
// explicit prefixes are configured.
func allowPatterns(cfg config.Config) []string {
	if len(cfg.Crawl.AllowedPrefixes) > 0 {
		return cfg.Crawl.AllowedPrefixes
	}
	return []string{cfg.Crawl.SeedURL}
}

func mergeConfig(cfg config.Config) merge.Config {
	mc := merge.Config{
		OutputDir: cfg.Output.Dir,
		Name:      cfg.Output.Name,
		Ext:       cfg.Output.Kind.Ext(),
		MaxBytes:  cfg.MaxBundleBytes(),
	}
	if cfg.Output.Kind == config.KindPDF {
		mc.MaxItems = cfg.Output.MaxBundleItems
	}
	return mc
}

func bundleWriterFor(kind config.OutputKind) merge.BundleWriter {
	if kind == config.KindPDF {
		return merge.NewPDFWriter()
	}
	return merge.NewTextWriter()
}
