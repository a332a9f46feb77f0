package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pagefold/pagefold/internal/api"
	"github.com/pagefold/pagefold/internal/app"
	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/logging"
	"github.com/pagefold/pagefold/internal/pipeline"
)

// newCrawlCmd creates the 'crawl' subcommand. Flags are bound to viper so
// config file, environment, and flags layer in the usual priority order.
func newCrawlCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Run the crawl, convert, and merge pipeline",
		Long: `Crawls breadth-first from the seed URL, keeping discovered links that
match the allow-list prefixes, converts each visited page with the
selected output strategy, and merges the artifacts into numbered
bundles in the output directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.String("seed", "", "seed URL to start crawling from")
	flags.StringSlice("allow", nil, "URL prefixes or globs that keep links in scope (default: the seed URL)")
	flags.Int("max-urls", 500, "maximum number of URLs to visit")
	flags.Int("concurrency", 20, "maximum concurrent fetches per crawl round")
	flags.String("kind", "text", "output kind: text, markdown, or pdf")
	flags.String("markdown-policy", "only-html", "markdown source policy: only-html, only-md, or prioritize-md")
	flags.String("output-dir", "", "directory for output bundles (default: derived from the seed host)")
	flags.String("output-name", "", "base name for output bundles (default: derived from the seed URL)")
	flags.Int("max-bundle-mb", 99, "size cap per output bundle in megabytes")
	flags.Int("workers", 4, "transform worker count")
	flags.Bool("serve", false, "serve /healthz, /progress, and /metrics while the run is active")
	flags.Int("port", 8080, "status server port")

	bind := func(key, flag string) {
		cobra.CheckErr(v.BindPFlag(key, flags.Lookup(flag)))
	}
	bind("crawl.seed_url", "seed")
	bind("crawl.allowed_prefixes", "allow")
	bind("crawl.max_urls", "max-urls")
	bind("crawl.concurrency", "concurrency")
	bind("output.kind", "kind")
	bind("output.markdown_policy", "markdown-policy")
	bind("output.dir", "output-dir")
	bind("output.name", "output-name")
	bind("output.max_bundle_mb", "max-bundle-mb")
	bind("pipeline.workers", "workers")
	bind("server.enabled", "serve")
	bind("server.port", "port")

	return cmd
}

func runCrawl(ctx context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer services.Close(logger)

	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	if cfg.Server.Enabled {
		statusServer := api.NewServer(services.Snapshot, services.Registry, logger.Named("api"))
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			logger.Info("status server started", zap.String("addr", addr))
			if err := statusServer.Serve(serverCtx, addr); err != nil {
				logger.Error("status server error", zap.Error(err))
			}
		}()
	}

	summary, err := pipeline.Run(ctx, cfg, pipeline.Deps{
		Fetcher:  services.Fetcher,
		Renderer: services.Renderer,
		Emitter:  services.Hub,
		Logger:   logger,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run pipeline: %w", err)
	}

	printSummary(summary)
	return nil
}

const summaryPrecision = 10 * time.Millisecond

func printSummary(s pipeline.Summary) {
	fmt.Printf("visited %d URLs in %d rounds (%s)\n", s.Visited, s.Rounds, s.Elapsed.Round(summaryPrecision))
	fmt.Printf("converted %d pages into %d bundle(s)\n", s.Artifacts, len(s.Parts))
	for _, part := range s.Parts {
		fmt.Printf("  %s  (%d items, %d bytes)\n", part.Path, part.Items, part.Bytes)
	}
	if len(s.Parts) == 0 {
		fmt.Fprintln(os.Stderr, "no output bundles were produced")
	}
}
