// Package app initializes and holds the long-lived services a crawl run
// needs, acting as a small dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/fetch"
	"github.com/pagefold/pagefold/internal/progress"
	"github.com/pagefold/pagefold/internal/progress/sinks"
	"github.com/pagefold/pagefold/internal/render"
)

// Services bundles the collaborators assembled from configuration: the
// HTTP fetcher, the optional headless renderer, and the progress hub with
// its sinks. Initialize once at startup, Close once at exit.
type Services struct {
	Fetcher  fetch.Fetcher
	Renderer render.Renderer
	Hub      *progress.Hub
	Snapshot *sinks.SnapshotSink
	Registry *prometheus.Registry
}

// New builds all services. It fails fast when any of them cannot start,
// so a misconfigured run never gets past initialization.
func New(cfg config.Config, logger *zap.Logger) (*Services, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fetcher := fetch.New(fetch.Config{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	})

	var renderer render.Renderer = render.NewNoop()
	if cfg.Output.Kind == config.KindPDF {
		chromedpRenderer, err := render.NewChromedp(render.Config{
			MaxParallel: cfg.Render.MaxParallel,
			UserAgent:   cfg.HTTP.UserAgent,
			NavTimeout:  cfg.NavTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("init renderer: %w", err)
		}
		renderer = chromedpRenderer
	}

	registry := prometheus.NewRegistry()
	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	snapshot := sinks.NewSnapshotSink()
	hub := progress.NewHub(
		progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("events")),
		promSink,
		snapshot,
	)

	return &Services{
		Fetcher:  fetcher,
		Renderer: renderer,
		Hub:      hub,
		Snapshot: snapshot,
		Registry: registry,
	}, nil
}

// Close flushes the progress hub and shuts the renderer down.
func (s *Services) Close(logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Hub.Close(ctx); err != nil && logger != nil {
		logger.Warn("progress hub close failed", zap.Error(err))
	}
	s.Renderer.Close()
}
