// Package frontier implements breadth-first URL discovery over an
// allow-listed site section.
package frontier

import "sort"

// Frontier tracks which URLs have been discovered, which still await a
// visit, and how many visits the budget has left. URLs are expected to be
// normalized before they enter the frontier.
type Frontier struct {
	budget     int
	visited    int
	discovered map[string]struct{}
	pending    map[string]struct{}
}

// New builds a frontier limited to budget total visits.
func New(budget int) *Frontier {
	return &Frontier{
		budget:     budget,
		discovered: make(map[string]struct{}),
		pending:    make(map[string]struct{}),
	}
}

// Add records a newly discovered URL and queues it for a future round.
// Returns false when the URL was already known.
func (f *Frontier) Add(url string) bool {
	if _, seen := f.discovered[url]; seen {
		return false
	}
	f.discovered[url] = struct{}{}
	f.pending[url] = struct{}{}
	return true
}

// NextBatch drains pending URLs for the next round, trimmed to the
// remaining visit budget and sorted for deterministic round ordering. The
// returned URLs count against the budget immediately.
func (f *Frontier) NextBatch() []string {
	remaining := f.budget - f.visited
	if remaining <= 0 || len(f.pending) == 0 {
		return nil
	}

	batch := make([]string, 0, len(f.pending))
	for url := range f.pending {
		batch = append(batch, url)
	}
	sort.Strings(batch)
	if len(batch) > remaining {
		batch = batch[:remaining]
	}
	for _, url := range batch {
		delete(f.pending, url)
	}
	f.visited += len(batch)
	return batch
}

// Visited reports how many URLs have been handed out for visiting.
func (f *Frontier) Visited() int {
	return f.visited
}

// Discovered returns every URL ever added, sorted.
func (f *Frontier) Discovered() []string {
	urls := make([]string, 0, len(f.discovered))
	for url := range f.discovered {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}
