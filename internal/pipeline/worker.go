package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagefold/pagefold/internal/frontier"
	"github.com/pagefold/pagefold/internal/merge"
	"github.com/pagefold/pagefold/internal/progress"
	"github.com/pagefold/pagefold/internal/queue"
)

// Pool runs the transform workers between the crawl queue and the merge
// queue. Workers share one atomic counter so artifact files keep a stable
// zero-padded order on disk.
type Pool struct {
	workers  int
	strategy *Strategy
	tmpDir   string
	ext      string
	logger   *zap.Logger
	emitter  progress.Emitter
	runID    uuid.UUID

	chunk     atomic.Int64
	converted atomic.Int64
}

// NewPool builds a worker pool writing artifacts into tmpDir.
func NewPool(workers int, strategy *Strategy, tmpDir, ext string, runID uuid.UUID, logger *zap.Logger, emitter progress.Emitter) (*Pool, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("workers must be > 0")
	}
	if strategy == nil {
		return nil, fmt.Errorf("strategy is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = progress.Nop{}
	}
	return &Pool{
		workers:  workers,
		strategy: strategy,
		tmpDir:   tmpDir,
		ext:      ext,
		logger:   logger,
		emitter:  emitter,
		runID:    runID,
	}, nil
}

// Run consumes pages until in closes, then closes out so the merger knows
// no further artifacts will arrive. Conversion failures are logged and the
// page is dropped; the pool itself only fails on queue errors.
func (p *Pool) Run(ctx context.Context, in *queue.Queue[frontier.Page], out *queue.Queue[merge.Artifact]) error {
	defer out.Close()

	var wg sync.WaitGroup
	errs := make(chan error, p.workers)
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := p.work(ctx, id, in, out); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	return <-errs
}

// Converted reports how many pages produced an artifact.
func (p *Pool) Converted() int64 {
	return p.converted.Load()
}

func (p *Pool) work(ctx context.Context, id int, in *queue.Queue[frontier.Page], out *queue.Queue[merge.Artifact]) error {
	logger := p.logger.With(zap.Int("worker", id))
	for {
		page, ok, err := in.Get(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		art, err := p.transform(ctx, page)
		if err != nil {
			logger.Warn("page conversion failed", zap.String("url", page.URL), zap.Error(err))
			continue
		}
		if art == nil {
			logger.Debug("page yielded no artifact", zap.String("url", page.URL))
			continue
		}
		if err := out.Put(ctx, *art); err != nil {
			return err
		}
	}
}

// transform converts one page and writes the artifact file. A nil artifact
// with a nil error means the strategy produced nothing for this page.
func (p *Pool) transform(ctx context.Context, page frontier.Page) (*merge.Artifact, error) {
	start := time.Now()
	content, err := p.strategy.Convert(ctx, page)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, nil
	}

	seq := p.chunk.Add(1)
	path := filepath.Join(p.tmpDir, fmt.Sprintf("chunk_%05d%s", seq, p.ext))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}
	p.converted.Add(1)

	p.emitter.Emit(progress.Event{
		RunID: p.runID,
		TS:    time.Now().UTC(),
		Stage: progress.StageArtifactDone,
		URL:   page.URL,
		Bytes: int64(len(content)),
		Dur:   time.Since(start),
	})
	return &merge.Artifact{Path: path, URL: page.URL, Size: int64(len(content))}, nil
}
