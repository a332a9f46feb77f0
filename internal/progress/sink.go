package progress

import "context"

// Sink consumes batches of progress events. Implementations must be safe for
// repeated calls, honor ctx deadlines, and may be invoked concurrently.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events; Hub satisfies this interface so the
// pipeline stages can remain agnostic about how events are buffered.
type Emitter interface {
	Emit(evt Event)
}

// Nop is an Emitter that discards everything; useful in tests and when
// observability is disabled.
type Nop struct{}

// Emit discards the event.
func (Nop) Emit(Event) {}
