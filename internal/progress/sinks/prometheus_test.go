package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pagefold/pagefold/internal/progress"
)

func TestPrometheusSinkCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := uuid.New()
	now := time.Now().UTC()
	batch := []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageFetchDone, Site: "a.test", Bytes: 10, StatusClass: progress.Status2xx, Dur: 20 * time.Millisecond},
		{RunID: runID, TS: now, Stage: progress.StageFetchDone, Site: "a.test", StatusClass: progress.Status4xx},
		{RunID: runID, TS: now, Stage: progress.StageArtifactDone, Bytes: 5},
		{RunID: runID, TS: now, Stage: progress.StageBundleSealed, Part: 1, Count: 2, Bytes: 9},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, float64(1),
		testutil.ToFloat64(sink.fetchRequests.WithLabelValues("a.test", "2xx")))
	require.Equal(t, float64(1),
		testutil.ToFloat64(sink.fetchRequests.WithLabelValues("a.test", "4xx")))
	require.Equal(t, float64(10),
		testutil.ToFloat64(sink.fetchBytes.WithLabelValues("a.test")))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.artifacts))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.bundlesSealed))
	require.Equal(t, float64(9), testutil.ToFloat64(sink.bundleBytes))
}

func TestPrometheusSinkDoubleRegisterFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
