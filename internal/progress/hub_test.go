package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Consume(_ context.Context, batch []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func validEvent(stage Stage) Event {
	return Event{
		RunID:       uuid.New(),
		TS:          time.Now().UTC(),
		Stage:       stage,
		Site:        "a.test",
		StatusClass: Status2xx,
	}
}

func TestHubDeliversAndClosesSinks(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	for range 5 {
		hub.Emit(validEvent(StageFetchDone))
	}
	require.NoError(t, hub.Close(context.Background()))

	require.Equal(t, 5, sink.len())
	require.True(t, sink.closed)
}

func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{}, sink)

	hub.Emit(Event{}) // missing run id and timestamp
	hub.Emit(Event{RunID: uuid.New(), TS: time.Now(), Stage: "BOGUS"})
	require.NoError(t, hub.Close(context.Background()))

	require.Zero(t, sink.len())
}

func TestHubEmitAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(Config{}, sink)
	require.NoError(t, hub.Close(context.Background()))

	hub.Emit(validEvent(StageFetchDone))
	require.Zero(t, sink.len())
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	evt := validEvent(StageFetchDone)
	require.NoError(t, evt.Validate())

	noSite := evt
	noSite.Site = ""
	require.Error(t, noSite.Validate())

	sealed := validEvent(StageBundleSealed)
	sealed.Part = 0
	require.Error(t, sealed.Validate())
	sealed.Part = 3
	require.NoError(t, sealed.Validate())
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, Status2xx, ClassifyStatus(204))
	require.Equal(t, Status3xx, ClassifyStatus(301))
	require.Equal(t, Status4xx, ClassifyStatus(404))
	require.Equal(t, Status5xx, ClassifyStatus(503))
	require.Equal(t, StatusOther, ClassifyStatus(0))
}
