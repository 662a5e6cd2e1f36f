package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-config-migrate/document"
	"github.com/goliatone/go-config-migrate/pkg/audit"
)

// ErrNoEvaluator is returned when an expression op runs without an evaluator
// configured on the rewriter.
var ErrNoEvaluator = errors.New("migrate: evaluator not configured")

// OpContext carries step metadata into document mutations.
type OpContext struct {
	// FromVersion is the document's version before this step.
	FromVersion int64
	// ToVersion is the version this step upgrades the document to.
	ToVersion int64
	// Evaluator runs expression-computed values; nil unless configured.
	Evaluator Evaluator
}

// Op is a reusable document mutation applied while upgrading a document from
// one version to the next.
type Op interface {
	Name() string
	Apply(ctx OpContext, doc *document.Document) error
}

type opFunc struct {
	name string
	fn   func(OpContext, *document.Document) error
}

func (o opFunc) Name() string { return o.name }

func (o opFunc) Apply(ctx OpContext, doc *document.Document) error {
	return o.fn(ctx, doc)
}

// Set writes value at path unconditionally.
func Set(path string, value any) Op {
	return opFunc{
		name: fmt.Sprintf("set %s", path),
		fn: func(_ OpContext, doc *document.Document) error {
			return doc.Set(path, value)
		},
	}
}

// SetDefault writes value at path only when the path is absent. This is the
// usual shape of "a new field appeared in this version".
func SetDefault(path string, value any) Op {
	return opFunc{
		name: fmt.Sprintf("default %s", path),
		fn: func(_ OpContext, doc *document.Document) error {
			if _, ok := doc.Get(path); ok {
				return nil
			}
			return doc.Set(path, value)
		},
	}
}

// Rename moves the value at from to to. Missing sources are a no-op.
func Rename(from, to string) Op {
	return opFunc{
		name: fmt.Sprintf("rename %s -> %s", from, to),
		fn: func(_ OpContext, doc *document.Document) error {
			return doc.Rename(from, to)
		},
	}
}

// Remove deletes the value at path. Missing paths are a no-op.
func Remove(path string) Op {
	return opFunc{
		name: fmt.Sprintf("remove %s", path),
		fn: func(_ OpContext, doc *document.Document) error {
			doc.Remove(path)
			return nil
		},
	}
}

// Apply wraps an arbitrary document mutation under a stable name.
func Apply(name string, fn func(*document.Document) error) Op {
	return opFunc{
		name: name,
		fn: func(_ OpContext, doc *document.Document) error {
			return fn(doc)
		},
	}
}

// SetExpr writes the result of evaluating expression against the current
// document snapshot at path. Document fields are available as variables, and
// from_version/to_version carry the step boundaries.
func SetExpr(path, expression string) Op {
	return opFunc{
		name: fmt.Sprintf("set %s = %s", path, expression),
		fn: func(ctx OpContext, doc *document.Document) error {
			if ctx.Evaluator == nil {
				return ErrNoEvaluator
			}
			value, err := ctx.Evaluator.Evaluate(RuleContext{
				Snapshot:    doc.Map(),
				FromVersion: ctx.FromVersion,
				ToVersion:   ctx.ToVersion,
			}, expression)
			if err != nil {
				return err
			}
			return doc.Set(path, value)
		},
	}
}

// SetExprDefault is SetExpr guarded on the path being absent.
func SetExprDefault(path, expression string) Op {
	inner := SetExpr(path, expression)
	return opFunc{
		name: fmt.Sprintf("default %s = %s", path, expression),
		fn: func(ctx OpContext, doc *document.Document) error {
			if _, ok := doc.Get(path); ok {
				return nil
			}
			return inner.Apply(ctx, doc)
		},
	}
}

// RewriteStep pairs a schema version with the document mutations that bring a
// document from the immediate predecessor version into this one. The matched
// step's own ops never run; they describe how to reach it.
type RewriteStep struct {
	version int64
	root    bool
	ops     []Op
}

// Version returns the step's schema version number.
func (s RewriteStep) Version() int64 { return s.version }

// RewriteRoot declares the earliest version in a rewrite plan.
func RewriteRoot(version int64) RewriteStep {
	return RewriteStep{version: version, root: true}
}

// Rewrite declares a successor version along with the ops that upgrade a
// document from the previous version.
func Rewrite(version int64, ops ...Op) RewriteStep {
	return RewriteStep{version: version, ops: ops}
}

// RewritePlan is a validated ordered list of rewrite steps.
type RewritePlan struct {
	steps []RewriteStep
}

// NewRewritePlan validates the declared steps: non-empty, root first and only
// first, unique versions.
func NewRewritePlan(steps ...RewriteStep) (*RewritePlan, error) {
	if len(steps) == 0 {
		return nil, &ChainError{Reason: "rewrite plan must declare at least one version"}
	}
	if !steps[0].root {
		return nil, &ChainError{Reason: "first step must be declared with RewriteRoot"}
	}
	seen := map[int64]bool{}
	for i, step := range steps {
		if seen[step.version] {
			return nil, &ChainError{Reason: fmt.Sprintf("duplicate version %d", step.version)}
		}
		seen[step.version] = true
		if i > 0 && step.root {
			return nil, &ChainError{Reason: fmt.Sprintf("step %d redeclares the plan root", i)}
		}
	}
	return &RewritePlan{steps: append([]RewriteStep(nil), steps...)}, nil
}

// Target returns the final version of the plan.
func (p *RewritePlan) Target() int64 {
	return p.steps[len(p.steps)-1].version
}

// Versions returns the plan's version numbers in declaration order.
func (p *RewritePlan) Versions() []int64 {
	versions := make([]int64, len(p.steps))
	for i, step := range p.steps {
		versions[i] = step.version
	}
	return versions
}

func (p *RewritePlan) indexOf(version int64) (int, bool) {
	for i := len(p.steps) - 1; i >= 0; i-- {
		if p.steps[i].version == version {
			return i, true
		}
	}
	return 0, false
}

// Rewriter is the document-object counterpart of Migrator: instead of
// decoding at the matched version and converting typed values forward, it
// mutates the one live document step by step and decodes once at the end.
type Rewriter[T any] struct {
	plan *RewritePlan
	cfg  migratorConfig
}

// NewRewriter constructs a Rewriter for the given plan.
func NewRewriter[T any](plan *RewritePlan, opts ...Option) *Rewriter[T] {
	return &Rewriter[T]{
		plan: plan,
		cfg:  applyOptions(opts),
	}
}

// Migrate parses raw and rewrites it up to the plan's target version.
func (r *Rewriter[T]) Migrate(raw []byte) (*Result[T], error) {
	doc, err := document.Parse(raw)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return r.MigrateDocument(doc)
}

// MigrateDocument rewrites an already parsed document. The document is
// mutated in place and consumed.
func (r *Rewriter[T]) MigrateDocument(doc *document.Document) (*Result[T], error) {
	runID := uuid.NewString()
	logger := r.cfg.stepLogger()

	version, err := extractVersion(doc, r.cfg)
	if err != nil {
		r.notifyError(runID, 0, err)
		return nil, err
	}

	idx, ok := r.plan.indexOf(version)
	if !ok {
		err := &VersionError{Field: r.cfg.versionField, Version: version, Tagged: true}
		r.notifyError(runID, version, err)
		return nil, err
	}

	trace := newTrace(runID, version, r.plan.Target(), r.cfg.trace)
	evaluator := r.resolveEvaluator()

	previous := version
	for _, step := range r.plan.steps[idx+1:] {
		start := time.Now()
		err := applyOps(step, OpContext{
			FromVersion: previous,
			ToVersion:   step.version,
			Evaluator:   evaluator,
		}, doc)
		logger.LogStep(StepLogEvent{
			RunID:       runID,
			Kind:        StepKindRewrite,
			FromVersion: previous,
			ToVersion:   step.version,
			Duration:    time.Since(start),
			Err:         err,
		})
		if err != nil {
			r.notifyError(runID, previous, err)
			return nil, err
		}
		trace.record(StepRecord{
			Kind:        StepKindRewrite,
			FromVersion: previous,
			ToVersion:   step.version,
			Ops:         len(step.ops),
		})
		r.notify(audit.Event{
			RunID:       runID,
			Verb:        audit.VerbStep,
			FromVersion: previous,
			ToVersion:   step.version,
		})
		previous = step.version
	}

	target := r.plan.Target()
	start := time.Now()
	value, err := document.Decode[T](document.Context{Version: target}, doc)
	logger.LogStep(StepLogEvent{
		RunID:     runID,
		Kind:      StepKindDecode,
		ToVersion: target,
		Duration:  time.Since(start),
		Err:       err,
	})
	if err != nil {
		wrapped := &DecodeError{Version: target, Err: err}
		r.notifyError(runID, version, wrapped)
		return nil, wrapped
	}
	trace.record(StepRecord{Kind: StepKindDecode, ToVersion: target})

	r.notify(audit.Event{
		RunID:       runID,
		Verb:        audit.VerbComplete,
		FromVersion: version,
		ToVersion:   target,
	})

	return &Result[T]{
		Value:       value,
		Migrated:    version != target,
		FromVersion: version,
		ToVersion:   target,
		RunID:       runID,
		Trace:       trace,
	}, nil
}

func applyOps(step RewriteStep, ctx OpContext, doc *document.Document) error {
	for _, op := range step.ops {
		if op == nil {
			continue
		}
		if err := op.Apply(ctx, doc); err != nil {
			return fmt.Errorf("migrate: rewrite to version %d: op %q: %w", step.version, op.Name(), err)
		}
	}
	return nil
}

// resolveEvaluator returns the configured engine, falling back to expr with
// any configured cache and function registry.
func (r *Rewriter[T]) resolveEvaluator() Evaluator {
	if r.cfg.evaluator != nil {
		return r.cfg.evaluator
	}
	var exprOpts []ExprEvaluatorOption
	if cache := r.cfg.programCache; cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cache))
	}
	if registry := r.cfg.functions; registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(registry))
	}
	return NewExprEvaluator(exprOpts...)
}

func (r *Rewriter[T]) notify(event audit.Event) {
	if !r.cfg.hooks.Enabled() {
		return
	}
	_ = r.cfg.hooks.Notify(context.Background(), event)
}

func (r *Rewriter[T]) notifyError(runID string, fromVersion int64, cause error) {
	if !r.cfg.hooks.Enabled() {
		return
	}
	_ = r.cfg.hooks.Notify(context.Background(), audit.Event{
		RunID:       runID,
		Verb:        audit.VerbError,
		FromVersion: fromVersion,
		ToVersion:   r.plan.Target(),
		Metadata:    map[string]any{"error": cause.Error()},
	})
}
