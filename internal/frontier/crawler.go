package frontier

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagefold/pagefold/internal/extract"
	"github.com/pagefold/pagefold/internal/fetch"
	"github.com/pagefold/pagefold/internal/limiter"
	"github.com/pagefold/pagefold/internal/progress"
	"github.com/pagefold/pagefold/internal/queue"
	"github.com/pagefold/pagefold/internal/urlutil"
)

// Page is one visited URL handed to the transform stage. Body is nil when
// the response was not HTML or the fetch failed; the URL still flows
// downstream so strategies that re-fetch by URL can handle it.
type Page struct {
	URL         string
	Body        []byte
	ContentType string
	StatusCode  int
}

// Config sizes a crawl.
type Config struct {
	SeedURL     string
	MaxURLs     int
	Concurrency int
}

// Stats summarizes a finished crawl.
type Stats struct {
	Visited    int
	Rounds     int
	Discovered []string
}

// Crawler walks the site breadth-first from the seed, keeping discovered
// links inside the allow-list and the total visit count inside the budget.
// The seed itself is always visited even when it falls outside the
// allow-list.
type Crawler struct {
	cfg     Config
	fetcher fetch.Fetcher
	allow   *urlutil.AllowList
	logger  *zap.Logger
	emitter progress.Emitter
	runID   uuid.UUID
}

// NewCrawler wires a crawler. A nil emitter disables progress events.
func NewCrawler(cfg Config, fetcher fetch.Fetcher, allow *urlutil.AllowList, runID uuid.UUID, logger *zap.Logger, emitter progress.Emitter) (*Crawler, error) {
	if cfg.MaxURLs <= 0 {
		return nil, fmt.Errorf("max urls must be > 0")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = progress.Nop{}
	}
	return &Crawler{
		cfg:     cfg,
		fetcher: fetcher,
		allow:   allow,
		logger:  logger,
		emitter: emitter,
		runID:   runID,
	}, nil
}

// Run crawls rounds until the frontier drains or the budget is spent,
// pushing every visited page onto out. Run closes out when it finishes,
// which is the downstream shutdown signal, so the caller must not reuse
// the queue.
func (c *Crawler) Run(ctx context.Context, out *queue.Queue[Page]) (Stats, error) {
	defer out.Close()

	seed, err := urlutil.Normalize(c.cfg.SeedURL)
	if err != nil {
		return Stats{}, fmt.Errorf("seed url: %w", err)
	}

	front := New(c.cfg.MaxURLs)
	front.Add(seed)

	var stats Stats
	for {
		batch := front.NextBatch()
		if len(batch) == 0 {
			break
		}
		stats.Rounds++
		c.logger.Info("starting crawl round",
			zap.Int("round", stats.Rounds),
			zap.Int("urls", len(batch)),
			zap.Int("visited", front.Visited()),
		)

		results := limiter.Map(ctx, c.cfg.Concurrency, batch,
			func(ctx context.Context, url string) (fetch.Result, error) {
				return c.fetcher.Fetch(ctx, url)
			},
			limiter.Options{Logger: c.logger},
		)

		for i, res := range results {
			if err := ctx.Err(); err != nil {
				return stats, fmt.Errorf("crawl canceled: %w", err)
			}
			page := c.pageFor(batch[i], res)
			c.emitFetch(page, res.Duration)
			if err := out.Put(ctx, page); err != nil {
				return stats, err
			}
			if res.IsHTML() {
				c.discoverLinks(front, page.URL, res.Body)
			}
		}

		c.emitter.Emit(progress.Event{
			RunID: c.runID,
			TS:    time.Now().UTC(),
			Stage: progress.StageRoundDone,
			Count: int64(len(batch)),
		})
	}

	stats.Visited = front.Visited()
	stats.Discovered = front.Discovered()
	return stats, nil
}

// pageFor builds the downstream payload for one visit. Failed fetches keep
// their URL with a nil body.
func (c *Crawler) pageFor(url string, res fetch.Result) Page {
	page := Page{
		URL:         url,
		ContentType: res.ContentType,
		StatusCode:  res.StatusCode,
	}
	if res.IsHTML() {
		page.Body = res.Body
	}
	return page
}

func (c *Crawler) emitFetch(page Page, dur time.Duration) {
	c.emitter.Emit(progress.Event{
		RunID:       c.runID,
		TS:          time.Now().UTC(),
		Stage:       progress.StageFetchDone,
		Site:        urlutil.Host(page.URL),
		URL:         page.URL,
		Bytes:       int64(len(page.Body)),
		StatusClass: progress.ClassifyStatus(page.StatusCode),
		Dur:         dur,
	})
}

// discoverLinks extracts in-scope links from an HTML body and adds the new
// ones to the frontier.
func (c *Crawler) discoverLinks(front *Frontier, pageURL string, body []byte) {
	base, err := url.Parse(pageURL)
	if err != nil {
		c.logger.Warn("unparseable page url", zap.String("url", pageURL), zap.Error(err))
		return
	}
	links, err := extract.Links(body, base)
	if err != nil {
		c.logger.Warn("link extraction failed", zap.String("url", pageURL), zap.Error(err))
		return
	}
	added := 0
	for _, link := range links {
		if !c.allow.Match(link) {
			continue
		}
		if front.Add(link) {
			added++
		}
	}
	c.logger.Debug("links discovered",
		zap.String("url", pageURL),
		zap.Int("found", len(links)),
		zap.Int("added", added),
	)
}
