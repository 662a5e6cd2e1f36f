// Package migrate resolves versioned configuration documents against a
// statically declared chain of schema types. A document tagged with an older
// version is deserialized as the historical shape it actually matches, then
// converted forward through every intermediate schema until the target type
// is reached.
package migrate

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-config-migrate/document"
	"github.com/goliatone/go-config-migrate/pkg/audit"
)

// Migrate is the one-shot entry point: it builds a Migrator for chain,
// resolves raw, and returns the value plus whether any conversion occurred.
func Migrate[T any](chain *Chain[T], raw []byte, opts ...Option) (T, bool, error) {
	result, err := New(chain, opts...).Migrate(raw)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return result.Value, result.Migrated, nil
}

// Migrate parses raw and resolves it against the chain.
func (m *Migrator[T]) Migrate(raw []byte) (*Result[T], error) {
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return m.MigrateDocument(doc)
}

// MigrateDocument resolves an already parsed document. The document is
// consumed: its version field is removed and must not be reused afterwards.
func (m *Migrator[T]) MigrateDocument(doc *document.Document) (*Result[T], error) {
	runID := uuid.NewString()
	logger := m.cfg.stepLogger()

	version, err := extractVersion(doc, m.cfg)
	if err != nil {
		m.notifyError(runID, 0, err)
		return nil, err
	}

	idx, ok := m.chain.indexOf(version)
	if !ok {
		err := &VersionError{Field: m.cfg.versionField, Version: version, Tagged: true}
		m.notifyError(runID, version, err)
		return nil, err
	}

	trace := newTrace(runID, version, m.chain.Target(), m.cfg.trace)

	start := time.Now()
	value, err := m.chain.steps[idx].decode(doc)
	logger.LogStep(StepLogEvent{
		RunID:     runID,
		Kind:      StepKindDecode,
		ToVersion: version,
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		wrapped := &DecodeError{Version: version, Err: err}
		m.notifyError(runID, version, wrapped)
		return nil, wrapped
	}
	trace.record(StepRecord{Kind: StepKindDecode, ToVersion: version})

	previous := version
	for _, step := range m.chain.steps[idx+1:] {
		start := time.Now()
		value, err = step.convert(value)
		logger.LogStep(StepLogEvent{
			RunID:       runID,
			Kind:        StepKindConvert,
			FromVersion: previous,
			ToVersion:   step.version,
			Duration:    time.Since(start),
			Err:         err,
		})
		if err != nil {
			m.notifyError(runID, previous, err)
			return nil, err
		}
		trace.record(StepRecord{Kind: StepKindConvert, FromVersion: previous, ToVersion: step.version})
		m.notify(audit.Event{
			RunID:       runID,
			Verb:        audit.VerbStep,
			FromVersion: previous,
			ToVersion:   step.version,
		})
		previous = step.version
	}

	m.notify(audit.Event{
		RunID:       runID,
		Verb:        audit.VerbComplete,
		FromVersion: version,
		ToVersion:   m.chain.Target(),
	})

	return &Result[T]{
		Value:       value.(T),
		Migrated:    version != m.chain.Target(),
		FromVersion: version,
		ToVersion:   m.chain.Target(),
		RunID:       runID,
		Trace:       trace,
	}, nil
}

func extractVersion(doc *document.Document, cfg migratorConfig) (int64, error) {
	version, tagged, err := doc.ExtractInt(cfg.versionField)
	if err != nil {
		return 0, &VersionError{Field: cfg.versionField, Tagged: true, Err: err}
	}
	if tagged {
		return version, nil
	}
	if !cfg.hasDefault {
		return 0, &VersionError{Field: cfg.versionField}
	}
	return cfg.defaultVersion, nil
}

// Observer failures never affect resolution.
func (m *Migrator[T]) notify(event audit.Event) {
	if !m.cfg.hooks.Enabled() {
		return
	}
	_ = m.cfg.hooks.Notify(context.Background(), event)
}

func (m *Migrator[T]) notifyError(runID string, fromVersion int64, cause error) {
	if !m.cfg.hooks.Enabled() {
		return
	}
	_ = m.cfg.hooks.Notify(context.Background(), audit.Event{
		RunID:       runID,
		Verb:        audit.VerbError,
		FromVersion: fromVersion,
		ToVersion:   m.chain.Target(),
		Metadata:    map[string]any{"error": cause.Error()},
	})
}
