package frontier

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pagefold/pagefold/internal/fetch"
	"github.com/pagefold/pagefold/internal/progress"
	"github.com/pagefold/pagefold/internal/queue"
	"github.com/pagefold/pagefold/internal/urlutil"
)

// captureEmitter records events in order. The crawler emits from a single
// goroutine, so no locking is needed as long as events are read after Run.
type captureEmitter struct {
	events []progress.Event
}

func (c *captureEmitter) Emit(evt progress.Event) {
	c.events = append(c.events, evt)
}

func (c *captureEmitter) count(stage progress.Stage) int {
	n := 0
	for _, evt := range c.events {
		if evt.Stage == stage {
			n++
		}
	}
	return n
}

func siteServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, body)
		}
	}
	mux.HandleFunc("/", page(`<html><body><a href="/b">b</a> <a href="/c">c</a></body></html>`))
	mux.HandleFunc("/b", page(`<html><body><a href="/d">d</a></body></html>`))
	mux.HandleFunc("/c", page(`<html><body>leaf</body></html>`))
	mux.HandleFunc("/d", page(`<html><body>leaf</body></html>`))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func drain(t *testing.T, q *queue.Queue[Page]) []Page {
	t.Helper()
	var pages []Page
	for {
		page, ok, err := q.Get(context.Background())
		require.NoError(t, err)
		if !ok {
			return pages
		}
		pages = append(pages, page)
	}
}

func TestCrawlerStopsAtBudget(t *testing.T) {
	srv := siteServer(t)

	allow, err := urlutil.NewAllowList([]string{srv.URL})
	require.NoError(t, err)

	emitter := &captureEmitter{}
	crawler, err := NewCrawler(
		Config{SeedURL: srv.URL, MaxURLs: 3, Concurrency: 2},
		fetch.New(fetch.Config{}),
		allow,
		uuid.New(),
		zaptest.NewLogger(t),
		emitter,
	)
	require.NoError(t, err)

	out := queue.New[Page](16)
	stats, err := crawler.Run(context.Background(), out)
	require.NoError(t, err)

	// Round one visits the seed; round two visits /b and /c, which spends
	// the budget before /d is reached.
	assert.Equal(t, 3, stats.Visited)
	assert.Equal(t, 2, stats.Rounds)
	assert.Len(t, stats.Discovered, 4)

	pages := drain(t, out)
	require.Len(t, pages, 3)
	for _, page := range pages {
		assert.Equal(t, http.StatusOK, page.StatusCode)
		assert.NotEmpty(t, page.Body)
	}

	assert.Equal(t, 3, emitter.count(progress.StageFetchDone))
	assert.Equal(t, 2, emitter.count(progress.StageRoundDone))
}

func TestCrawlerSkipsOutOfScopeLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
			<a href="/docs/in">in</a>
			<a href="/blog/out">out</a>
			<a href="https://elsewhere.test/">external</a>
		</body></html>`)
	})
	mux.HandleFunc("/docs/in", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>leaf</body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	// Seed is outside the allow-list but is always visited.
	allow, err := urlutil.NewAllowList([]string{srv.URL + "/docs/"})
	require.NoError(t, err)

	crawler, err := NewCrawler(
		Config{SeedURL: srv.URL, MaxURLs: 10, Concurrency: 2},
		fetch.New(fetch.Config{}),
		allow,
		uuid.New(),
		zaptest.NewLogger(t),
		nil,
	)
	require.NoError(t, err)

	out := queue.New[Page](16)
	stats, err := crawler.Run(context.Background(), out)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Visited)
	assert.Equal(t, []string{srv.URL, srv.URL + "/docs/in"}, stats.Discovered)
	assert.Len(t, drain(t, out), 2)
}

func TestCrawlerForwardsFailedFetches(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body><a href="/missing">gone</a></body></html>`)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	allow, err := urlutil.NewAllowList([]string{srv.URL})
	require.NoError(t, err)

	crawler, err := NewCrawler(
		Config{SeedURL: srv.URL, MaxURLs: 10, Concurrency: 1},
		fetch.New(fetch.Config{}),
		allow,
		uuid.New(),
		zaptest.NewLogger(t),
		nil,
	)
	require.NoError(t, err)

	out := queue.New[Page](16)
	stats, err := crawler.Run(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Visited)

	pages := drain(t, out)
	require.Len(t, pages, 2)

	var missing Page
	for _, page := range pages {
		if page.URL == srv.URL+"/missing" {
			missing = page
		}
	}
	require.NotEmpty(t, missing.URL)
	assert.Nil(t, missing.Body)
}
