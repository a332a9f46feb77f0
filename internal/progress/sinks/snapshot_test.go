package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pagefold/pagefold/internal/progress"
)

func TestSnapshotSinkAccumulates(t *testing.T) {
	t.Parallel()

	sink := NewSnapshotSink()
	runID := uuid.New()
	now := time.Now().UTC()

	batch := []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageRunStart},
		{RunID: runID, TS: now, Stage: progress.StageFetchDone, Site: "a.test", URL: "https://a.test/x", Bytes: 100, StatusClass: progress.Status2xx},
		{RunID: runID, TS: now, Stage: progress.StageFetchDone, Site: "a.test", URL: "https://a.test/y", Bytes: 50, StatusClass: progress.Status2xx},
		{RunID: runID, TS: now, Stage: progress.StageRoundDone, Count: 2},
		{RunID: runID, TS: now, Stage: progress.StageArtifactDone, Bytes: 80},
		{RunID: runID, TS: now, Stage: progress.StageBundleSealed, Part: 1, Count: 1, Bytes: 80},
		{RunID: runID, TS: now.Add(time.Second), Stage: progress.StageRunDone},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	snap := sink.Snapshot()
	require.Equal(t, runID.String(), snap.RunID)
	require.Equal(t, StateDone, snap.State)
	require.EqualValues(t, 2, snap.URLsFetched)
	require.EqualValues(t, 1, snap.Rounds)
	require.EqualValues(t, 1, snap.Artifacts)
	require.EqualValues(t, 1, snap.Bundles)
	require.EqualValues(t, 150, snap.BytesFetched)
	require.EqualValues(t, 80, snap.BytesWritten)
	require.Equal(t, "https://a.test/y", snap.LastURL)
}

func TestSnapshotSinkRecordsError(t *testing.T) {
	t.Parallel()

	sink := NewSnapshotSink()
	runID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageRunStart},
		{RunID: runID, TS: now, Stage: progress.StageRunError, Note: "seed unreachable"},
	}))

	snap := sink.Snapshot()
	require.Equal(t, StateError, snap.State)
	require.Equal(t, "seed unreachable", snap.Note)
}
