// Package notificationstest provides test doubles for notification producers.
package notificationstest

import (
	"context"
	"sync"

	"github.com/charlesng35/tripmate/internal/notifications"
)

// RecordingSink captures emitted events in order.
type RecordingSink struct {
	mu     sync.Mutex
	events []notifications.Event
}

// Emit implements notifications.EventSink.
func (s *RecordingSink) Emit(_ context.Context, event notifications.Event) {
	event.Recipients = append([]uint(nil), event.Recipients...)
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

// Events returns a copy of everything emitted so far.
func (s *RecordingSink) Events() []notifications.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notifications.Event(nil), s.events...)
}

// OfType returns the emitted events tagged t.
func (s *RecordingSink) OfType(t notifications.Type) []notifications.Event {
	var out []notifications.Event
	for _, event := range s.Events() {
		if event.Type == t {
			out = append(out, event)
		}
	}
	return out
}

// Reset forgets recorded events.
func (s *RecordingSink) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}
