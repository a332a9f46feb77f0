package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pagefold/pagefold/internal/progress"
)

// PrometheusSink exports pipeline progress metrics. It owns all collectors
// for fetches, artifacts, and sealed bundles.
type PrometheusSink struct {
	fetchRequests *prometheus.CounterVec
	fetchBytes    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	artifacts     prometheus.Counter
	artifactBytes prometheus.Counter
	bundlesSealed prometheus.Counter
	bundleBytes   prometheus.Counter
	bundleItems   prometheus.Histogram
}

// NewPrometheusSink registers the collectors against the provided registry.
// A nil registry uses the default registerer.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		fetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagefold_fetch_requests_total",
			Help: "Fetch completions partitioned by site and status class.",
		}, []string{"site", "status_class"}),
		fetchBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pagefold_fetch_bytes_total",
			Help: "Bytes downloaded per site.",
		}, []string{"site"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pagefold_fetch_duration_seconds",
			Help:    "Fetch duration partitioned by site and status class.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}, []string{"site", "status_class"}),
		artifacts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagefold_artifacts_total",
			Help: "Converted page artifacts written to the temp directory.",
		}),
		artifactBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagefold_artifact_bytes_total",
			Help: "Total bytes of converted artifacts.",
		}),
		bundlesSealed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagefold_bundles_sealed_total",
			Help: "Output bundles sealed and written to disk.",
		}),
		bundleBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pagefold_bundle_bytes_total",
			Help: "Total bytes written into sealed bundles.",
		}),
		bundleItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pagefold_bundle_items",
			Help:    "Artifacts per sealed bundle.",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.fetchRequests,
		s.fetchBytes,
		s.fetchDuration,
		s.artifacts,
		s.artifactBytes,
		s.bundlesSealed,
		s.bundleBytes,
		s.bundleItems,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors using the provided batch. It is safe for
// concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageFetchDone:
		site := evt.Site
		if site == "" {
			site = "unknown"
		}
		statusClass := string(evt.StatusClass)
		if statusClass == "" {
			statusClass = string(progress.StatusOther)
		}
		s.fetchRequests.WithLabelValues(site, statusClass).Inc()
		if evt.Bytes > 0 {
			s.fetchBytes.WithLabelValues(site).Add(float64(evt.Bytes))
		}
		if evt.Dur > 0 {
			s.fetchDuration.WithLabelValues(site, statusClass).Observe(evt.Dur.Seconds())
		}
	case progress.StageArtifactDone:
		s.artifacts.Inc()
		if evt.Bytes > 0 {
			s.artifactBytes.Add(float64(evt.Bytes))
		}
	case progress.StageBundleSealed:
		s.bundlesSealed.Inc()
		if evt.Bytes > 0 {
			s.bundleBytes.Add(float64(evt.Bytes))
		}
		if evt.Count > 0 {
			s.bundleItems.Observe(float64(evt.Count))
		}
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
