package sinks

import (
	"context"
	"sync"
	"time"

	"github.com/pagefold/pagefold/internal/progress"
)

// RunState summarizes where a run currently stands.
type RunState string

// Supported run states.
const (
	StateIdle    RunState = "idle"
	StateRunning RunState = "running"
	StateDone    RunState = "done"
	StateError   RunState = "error"
)

// Snapshot is a point-in-time view of pipeline progress, served by the
// status endpoint.
type Snapshot struct {
	RunID        string    `json:"run_id,omitempty"`
	State        RunState  `json:"state"`
	StartedAt    time.Time `json:"started_at,omitempty"`
	FinishedAt   time.Time `json:"finished_at,omitempty"`
	URLsFetched  int64     `json:"urls_fetched"`
	Rounds       int64     `json:"rounds"`
	Artifacts    int64     `json:"artifacts"`
	Bundles      int64     `json:"bundles"`
	BytesFetched int64     `json:"bytes_fetched"`
	BytesWritten int64     `json:"bytes_written"`
	LastURL      string    `json:"last_url,omitempty"`
	Note         string    `json:"note,omitempty"`
}

// SnapshotSink accumulates run totals in memory so the status server can
// report progress without touching pipeline internals.
type SnapshotSink struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewSnapshotSink returns an empty snapshot sink.
func NewSnapshotSink() *SnapshotSink {
	return &SnapshotSink{snap: Snapshot{State: StateIdle}}
}

// Consume folds the batch into the running totals.
func (s *SnapshotSink) Consume(_ context.Context, batch []progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.snap = Snapshot{
				RunID:     evt.RunID.String(),
				State:     StateRunning,
				StartedAt: evt.TS,
			}
		case progress.StageRoundDone:
			s.snap.Rounds++
		case progress.StageFetchDone:
			s.snap.URLsFetched++
			s.snap.BytesFetched += evt.Bytes
			s.snap.LastURL = evt.URL
		case progress.StageArtifactDone:
			s.snap.Artifacts++
		case progress.StageBundleSealed:
			s.snap.Bundles++
			s.snap.BytesWritten += evt.Bytes
		case progress.StageRunDone:
			s.snap.State = StateDone
			s.snap.FinishedAt = evt.TS
		case progress.StageRunError:
			s.snap.State = StateError
			s.snap.FinishedAt = evt.TS
			s.snap.Note = evt.Note
		}
	}
	return nil
}

// Snapshot returns a copy of the current totals.
func (s *SnapshotSink) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Close implements the Sink interface; it performs no action.
func (s *SnapshotSink) Close(context.Context) error {
	return nil
}
