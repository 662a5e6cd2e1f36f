package migrate

import (
	"github.com/goliatone/go-config-migrate/pkg/audit"
)

// DefaultVersionField is the conventional name of the reserved top-level
// field carrying a document's schema version.
const DefaultVersionField = "version"

// Migrator resolves raw documents against a schema chain. A Migrator holds
// no per-call state; concurrent calls are safe.
type Migrator[T any] struct {
	chain *Chain[T]
	cfg   migratorConfig
}

type migratorConfig struct {
	versionField   string
	defaultVersion int64
	hasDefault     bool
	logger         StepLogger
	hooks          audit.Hooks
	trace          bool
	evaluator      Evaluator
	functions      *FunctionRegistry
	programCache   ProgramCache
}

// Option configures a Migrator or Rewriter.
type Option func(*migratorConfig)

func applyOptions(opts []Option) migratorConfig {
	cfg := migratorConfig{versionField: DefaultVersionField}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// New constructs a Migrator for the given chain.
func New[T any](chain *Chain[T], opts ...Option) *Migrator[T] {
	return &Migrator[T]{
		chain: chain,
		cfg:   applyOptions(opts),
	}
}

// WithVersionField overrides the name of the reserved version field.
func WithVersionField(name string) Option {
	return func(cfg *migratorConfig) {
		if name != "" {
			cfg.versionField = name
		}
	}
}

// WithDefaultVersion configures the version assumed when a document omits the
// version field entirely.
func WithDefaultVersion(version int64) Option {
	return func(cfg *migratorConfig) {
		cfg.defaultVersion = version
		cfg.hasDefault = true
	}
}

// WithTrace toggles recording of the applied upgrade steps on the Result.
func WithTrace(enabled bool) Option {
	return func(cfg *migratorConfig) {
		cfg.trace = enabled
	}
}

// WithAuditHooks attaches audit hooks notified per applied step and per run
// outcome. Hooks are cloned and nil entries dropped.
func WithAuditHooks(hooks audit.Hooks) Option {
	normalized := cloneAuditHooks(hooks)
	return func(cfg *migratorConfig) {
		cfg.hooks = normalized
	}
}

// WithEvaluator configures the expression engine used by rewrite ops.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *migratorConfig) {
		cfg.evaluator = e
	}
}

// WithFunctionRegistry exposes custom functions to rewrite expressions.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *migratorConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithProgramCache reuses compiled expression programs across runs.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *migratorConfig) {
		cfg.programCache = cache
	}
}

func cloneAuditHooks(hooks audit.Hooks) audit.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]audit.Hook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return audit.Hooks(normalized)
}

func (cfg migratorConfig) stepLogger() StepLogger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return noopStepLogger{}
}
