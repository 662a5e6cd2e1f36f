// Package audit fans out migration events to consumer-provided hooks, so
// applications can record when a stored configuration was silently upgraded.
package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Verbs emitted by the resolver.
const (
	// VerbStep is emitted once per applied upgrade step.
	VerbStep = "config.migrate.step"
	// VerbComplete is emitted after a successful resolution.
	VerbComplete = "config.migrate.complete"
	// VerbError is emitted when a resolution fails.
	VerbError = "config.migrate.error"
)

// Event describes a migration occurrence that can be fanned out to hooks.
type Event struct {
	// ID uniquely identifies the event; filled during normalization when
	// empty.
	ID string
	// RunID groups every event of one resolution.
	RunID string
	Verb  string
	// Document optionally labels which configuration document was resolved.
	Document    string
	FromVersion int64
	ToVersion   int64
	Metadata    map[string]any
	OccurredAt  time.Time
}

// Hook receives normalized migration events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. Events without a verb are dropped.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := Normalize(event)
	if normalized.Verb == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// Normalize trims identifiers, clones metadata, and ensures the event has an
// ID and timestamp.
func Normalize(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.RunID = strings.TrimSpace(event.RunID)
	normalized.Document = strings.TrimSpace(event.Document)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.ID == "" {
		normalized.ID = uuid.NewString()
	}
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
