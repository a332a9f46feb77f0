// Package main hosts the pagefold CLI entrypoint.
//
// Architecture overview:
//   - Frontier crawl: internal/frontier walks the site breadth-first from
//     the seed URL, one round per link depth. Each round fetches its batch
//     concurrently through the Colly-based fetcher, extracts in-scope links
//     with goquery, and trims discovery to the configured URL budget. Every
//     visited URL flows downstream, body or not.
//   - Transform pool: internal/pipeline runs a fixed worker pool that
//     converts pages with the configured strategy (visible-text extraction,
//     html-to-markdown with sibling .md source policies, or headless Chrome
//     PDF rendering) and writes numbered artifact files to a temp dir.
//   - Merge: internal/merge drains artifacts strictly in arrival order and
//     seals size-capped bundles named {name}_part{N}.{ext}. PDF bundles are
//     composed with pdfcpu and additionally capped by item count.
//   - Shutdown: stages hand off over bounded queues; the crawler closes the
//     page queue when discovery ends, the pool closes the artifact queue
//     after its last worker drains, and the merger then seals the final
//     partial bundle. Context cancellation aborts all three stages.
//   - Plumbing: Viper layers config from flags, env (PAGEFOLD_*), and file;
//     zap provides structured logging; the progress hub batches run events
//     out to log, Prometheus, and snapshot sinks; an optional chi server
//     exposes /healthz, /progress, and /metrics during the run.
//
// Run locally: go run ./cmd/pagefold crawl --seed https://docs.example.com
// --allow https://docs.example.com/guide/ --kind markdown
package main
