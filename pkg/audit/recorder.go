package audit

import (
	"context"
	"sync"
)

// Recorder collects events for assertions in tests or for buffering before a
// real sink is available.
type Recorder struct {
	Events []Event
	Err    error
	mu     sync.Mutex
}

// Notify records the event and returns any configured error.
func (r *Recorder) Notify(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Normalize(event))
	return r.Err
}

// Recorded returns a copy of the events seen so far.
func (r *Recorder) Recorded() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.Events...)
}
