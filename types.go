package migrate

import (
	"time"
)

// Result carries the outcome of a resolution: the value in the target schema
// shape plus provenance about the upgrade path that produced it.
type Result[T any] struct {
	// Value is the configuration in the target schema shape.
	Value T
	// Migrated reports whether any forward conversion occurred, i.e. the
	// document's tag differed from the target schema's version.
	Migrated bool
	// FromVersion is the version the document was actually written for.
	FromVersion int64
	// ToVersion is the target schema's version.
	ToVersion int64
	// RunID identifies this resolution in logs and audit events.
	RunID string
	// Trace records the applied steps when tracing is enabled.
	Trace *Trace
}

// RuleContext carries inputs needed when evaluating a rewrite expression.
type RuleContext struct {
	// Snapshot is the document tree the expression runs against.
	Snapshot any
	// FromVersion is the document's version before the current step.
	FromVersion int64
	// ToVersion is the version the current step upgrades to.
	ToVersion int64
	Now       *time.Time
	Args      map[string]any
	Metadata  map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

func snapshotAsMap(value any) map[string]any {
	if value == nil {
		return map[string]any{}
	}
	if m, ok := value.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}
