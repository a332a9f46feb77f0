// Package pipeline turns crawled pages into artifacts and drives the full
// crawl, transform, and merge run.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"go.uber.org/zap"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/extract"
	"github.com/pagefold/pagefold/internal/fetch"
	"github.com/pagefold/pagefold/internal/frontier"
	"github.com/pagefold/pagefold/internal/render"
)

// Strategy converts one visited page into artifact bytes. Empty output
// with a nil error means the page yields no artifact under the selected
// policy.
type Strategy struct {
	kind     config.OutputKind
	policy   config.MarkdownPolicy
	fetcher  fetch.Fetcher
	renderer render.Renderer
	logger   *zap.Logger
}

// NewStrategy wires a strategy for the configured output kind. The
// markdown policies need the fetcher to look for sibling markdown sources,
// and the pdf kind needs the renderer.
func NewStrategy(kind config.OutputKind, policy config.MarkdownPolicy, fetcher fetch.Fetcher, renderer render.Renderer, logger *zap.Logger) (*Strategy, error) {
	switch kind {
	case config.KindText:
	case config.KindMarkdown:
		if policy != config.PolicyOnlyHTML && fetcher == nil {
			return nil, fmt.Errorf("markdown policy %q needs a fetcher", policy)
		}
	case config.KindPDF:
		if renderer == nil {
			return nil, fmt.Errorf("pdf output needs a renderer")
		}
	default:
		return nil, fmt.Errorf("unknown output kind %q", kind)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Strategy{
		kind:     kind,
		policy:   policy,
		fetcher:  fetcher,
		renderer: renderer,
		logger:   logger,
	}, nil
}

// Convert produces the artifact bytes for one page.
func (s *Strategy) Convert(ctx context.Context, page frontier.Page) ([]byte, error) {
	switch s.kind {
	case config.KindText:
		return s.convertText(page)
	case config.KindMarkdown:
		return s.convertMarkdown(ctx, page)
	case config.KindPDF:
		return s.renderer.RenderPDF(ctx, page.URL)
	default:
		return nil, fmt.Errorf("unknown output kind %q", s.kind)
	}
}

func (s *Strategy) convertText(page frontier.Page) ([]byte, error) {
	if len(page.Body) == 0 {
		return nil, nil
	}
	text, err := extract.Text(page.Body)
	if err != nil {
		return nil, fmt.Errorf("extract text from %s: %w", page.URL, err)
	}
	return []byte(text), nil
}

// convertMarkdown applies the markdown sub-policy: only-html converts the
// crawled HTML; only-md uses a sibling .md source exclusively;
// prioritize-md tries the sibling first and falls back to converted HTML.
func (s *Strategy) convertMarkdown(ctx context.Context, page frontier.Page) ([]byte, error) {
	if s.policy != config.PolicyOnlyHTML {
		md, err := s.fetchSiblingMarkdown(ctx, page.URL)
		if err == nil && len(md) > 0 {
			return md, nil
		}
		if err != nil {
			s.logger.Debug("no sibling markdown source",
				zap.String("url", page.URL),
				zap.Error(err),
			)
		}
		if s.policy == config.PolicyOnlyMD {
			return nil, nil
		}
	}
	if len(page.Body) == 0 {
		return nil, nil
	}
	md, err := htmltomarkdown.ConvertString(string(page.Body))
	if err != nil {
		return nil, fmt.Errorf("convert %s to markdown: %w", page.URL, err)
	}
	return []byte(md), nil
}

func (s *Strategy) fetchSiblingMarkdown(ctx context.Context, pageURL string) ([]byte, error) {
	mdURL, err := siblingMarkdownURL(pageURL)
	if err != nil {
		return nil, err
	}
	res, err := s.fetcher.Fetch(ctx, mdURL)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}

// siblingMarkdownURL maps a page URL to the markdown source that doc sites
// commonly publish next to the rendered page: /guide.html becomes
// /guide.md, /guide becomes /guide.md, and a bare directory becomes
// /index.md.
func siblingMarkdownURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", pageURL, err)
	}
	p := u.Path
	switch {
	case p == "" || strings.HasSuffix(p, "/"):
		u.Path = p + "index.md"
	case strings.EqualFold(path.Ext(p), ".html") || strings.EqualFold(path.Ext(p), ".htm"):
		u.Path = strings.TrimSuffix(p, path.Ext(p)) + ".md"
	case path.Ext(p) == ".md":
		// Already a markdown source.
	default:
		u.Path = p + ".md"
	}
	return u.String(), nil
}
