package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pagefold/pagefold/internal/config"
	"github.com/pagefold/pagefold/internal/fetch"
	"github.com/pagefold/pagefold/internal/frontier"
)

func TestSiblingMarkdownURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://a.test":                 "https://a.test/index.md",
		"https://a.test/docs/":           "https://a.test/docs/index.md",
		"https://a.test/docs/guide":      "https://a.test/docs/guide.md",
		"https://a.test/docs/guide.html": "https://a.test/docs/guide.md",
		"https://a.test/docs/guide.md":   "https://a.test/docs/guide.md",
	}
	for in, want := range cases {
		got, err := siblingMarkdownURL(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "input %s", in)
	}
}

func TestTextStrategySkipsBodylessPages(t *testing.T) {
	t.Parallel()

	s, err := NewStrategy(config.KindText, "", nil, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := s.Convert(context.Background(), frontier.Page{URL: "https://a.test/x"})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestTextStrategyExtractsContent(t *testing.T) {
	t.Parallel()

	s, err := NewStrategy(config.KindText, "", nil, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	page := frontier.Page{
		URL:  "https://a.test/x",
		Body: []byte(`<html><body><nav>menu</nav><p>real content</p><script>junk()</script></body></html>`),
	}
	out, err := s.Convert(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, "real content", string(out))
}

func markdownSiteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/guide", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Guide</h1></body></html>`)
	})
	mux.HandleFunc("/guide.md", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		fmt.Fprint(w, "# Guide (authored)")
	})
	mux.HandleFunc("/other", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><h1>Other</h1></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestMarkdownPrioritizePrefersSiblingSource(t *testing.T) {
	srv := markdownSiteServer(t)
	fetcher := fetch.New(fetch.Config{})

	s, err := NewStrategy(config.KindMarkdown, config.PolicyPrioritizeMD, fetcher, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := s.Convert(context.Background(), frontier.Page{
		URL:  srv.URL + "/guide",
		Body: []byte(`<html><body><h1>Guide</h1></body></html>`),
	})
	require.NoError(t, err)
	assert.Equal(t, "# Guide (authored)", string(out))
}

func TestMarkdownPrioritizeFallsBackToConvertedHTML(t *testing.T) {
	srv := markdownSiteServer(t)
	fetcher := fetch.New(fetch.Config{})

	s, err := NewStrategy(config.KindMarkdown, config.PolicyPrioritizeMD, fetcher, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	// /other.md does not exist, so the crawled HTML gets converted.
	out, err := s.Convert(context.Background(), frontier.Page{
		URL:  srv.URL + "/other",
		Body: []byte(`<html><body><h1>Other</h1></body></html>`),
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), "# Other")
}

func TestMarkdownOnlyMDYieldsNothingWithoutSibling(t *testing.T) {
	srv := markdownSiteServer(t)
	fetcher := fetch.New(fetch.Config{})

	s, err := NewStrategy(config.KindMarkdown, config.PolicyOnlyMD, fetcher, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := s.Convert(context.Background(), frontier.Page{
		URL:  srv.URL + "/other",
		Body: []byte(`<html><body><h1>Other</h1></body></html>`),
	})
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestMarkdownOnlyHTMLIgnoresSibling(t *testing.T) {
	srv := markdownSiteServer(t)

	s, err := NewStrategy(config.KindMarkdown, config.PolicyOnlyHTML, nil, nil, zaptest.NewLogger(t))
	require.NoError(t, err)

	out, err := s.Convert(context.Background(), frontier.Page{
		URL:  srv.URL + "/guide",
		Body: []byte(`<html><body><h1>Guide</h1></body></html>`),
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), "# Guide")
}

func TestStrategyConstructorValidation(t *testing.T) {
	t.Parallel()

	_, err := NewStrategy(config.KindPDF, "", nil, nil, nil)
	require.Error(t, err)

	_, err = NewStrategy(config.KindMarkdown, config.PolicyOnlyMD, nil, nil, nil)
	require.Error(t, err)

	_, err = NewStrategy("bogus", "", nil, nil, nil)
	require.Error(t, err)
}
