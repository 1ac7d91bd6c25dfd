// Package realtimetest provides a Publisher that records events for tests.
package realtimetest

import (
	"sync"

	"leadflow_backend/internal/realtime"
)

// Recorder captures published events in order.
type Recorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

var _ realtime.Publisher = (*Recorder)(nil)

func (r *Recorder) Publish(event realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []realtime.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]realtime.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the event names in publish order.
func (r *Recorder) Names() []string {
	events := r.Events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.EventName()
	}
	return names
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
