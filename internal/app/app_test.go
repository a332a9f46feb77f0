package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/render"
)

func baseConfig() config.Config {
	return config.Config{
		Crawl:  config.CrawlConfig{SeedURL: "https://a.test/docs", MaxURLs: 10},
		Output: config.OutputConfig{Kind: config.KindText, MaxBundleMB: 99, MaxBundleItems: 50},
		HTTP:   config.HTTPConfig{TimeoutSeconds: 5},
		Render: config.RenderConfig{MaxParallel: 2, NavTimeoutSeconds: 30},
	}
}

func TestNewTextRunUsesNoopRenderer(t *testing.T) {
	t.Parallel()

	services, err := New(baseConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer services.Close(nil)

	assert.IsType(t, render.NewNoop(), services.Renderer)
	assert.NotNil(t, services.Fetcher)
	assert.NotNil(t, services.Hub)
	assert.NotNil(t, services.Snapshot)
	assert.NotNil(t, services.Registry)
}

func TestNewPDFRunBuildsChromedpRenderer(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Output.Kind = config.KindPDF

	services, err := New(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer services.Close(nil)

	_, ok := services.Renderer.(*render.Chromedp)
	assert.True(t, ok)
}

func TestNewPDFRunRejectsBadRendererConfig(t *testing.T) {
	t.Parallel()

	cfg := baseConfig()
	cfg.Output.Kind = config.KindPDF
	cfg.Render.MaxParallel = -1

	_, err := New(cfg, zaptest.NewLogger(t))
	require.Error(t, err)
}
