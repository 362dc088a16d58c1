package notifications

import "context"

// Event describes something a write path wants recipients to hear about.
type Event struct {
	Type       Type
	TripID     *uint
	Message    string
	Recipients []uint
}

// EventSink accepts notification events after a write has committed. Emit never
// reports failure to the caller: a lost notification must not fail the write.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// NopSink discards every event.
type NopSink struct{}

// Emit implements EventSink.
func (NopSink) Emit(context.Context, Event) {}
