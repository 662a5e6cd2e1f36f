package migrate

import (
	"errors"
	"testing"
	"time"
)

func evaluatorFactories() map[string]func(*FunctionRegistry, ProgramCache) Evaluator {
	return map[string]func(*FunctionRegistry, ProgramCache) Evaluator{
		"expr": func(registry *FunctionRegistry, cache ProgramCache) Evaluator {
			var opts []ExprEvaluatorOption
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			return NewExprEvaluator(opts...)
		},
		"cel": func(registry *FunctionRegistry, cache ProgramCache) Evaluator {
			var opts []CELEvaluatorOption
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			return NewCELEvaluator(opts...)
		},
	}
}

func TestEvaluatorsSnapshotArithmetic(t *testing.T) {
	ctx := RuleContext{
		Snapshot: map[string]any{
			"timeout": int64(60),
			"retries": int64(4),
		},
	}

	for name, factory := range evaluatorFactories() {
		t.Run(name, func(t *testing.T) {
			result, err := factory(nil, nil).Evaluate(ctx, "timeout * retries")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := asInt(t, result); got != 240 {
				t.Fatalf("expected 240, got %v (%T)", result, result)
			}
		})
	}
}

func TestEvaluatorsExposeStepVersions(t *testing.T) {
	ctx := RuleContext{
		Snapshot:    map[string]any{"timeout": int64(60)},
		FromVersion: 2,
		ToVersion:   3,
	}

	for name, factory := range evaluatorFactories() {
		t.Run(name, func(t *testing.T) {
			result, err := factory(nil, nil).Evaluate(ctx, "to_version - from_version")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := asInt(t, result); got != 1 {
				t.Fatalf("expected 1, got %v (%T)", result, result)
			}
		})
	}
}

func TestEvaluatorsCallRegisteredFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("double", func(args ...any) (any, error) {
		value, _ := args[0].(int64)
		return value * 2, nil
	}); err != nil {
		t.Fatalf("unexpected error registering function: %v", err)
	}

	ctx := RuleContext{Snapshot: map[string]any{"timeout": int64(60)}}

	for name, factory := range evaluatorFactories() {
		t.Run(name, func(t *testing.T) {
			result, err := factory(registry, nil).Evaluate(ctx, `call("double", timeout)`)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := asInt(t, result); got != 120 {
				t.Fatalf("expected 120, got %v (%T)", result, result)
			}
		})
	}
}

func TestEvaluatorsRejectEmptyExpression(t *testing.T) {
	for name, factory := range evaluatorFactories() {
		t.Run(name, func(t *testing.T) {
			if _, err := factory(nil, nil).Evaluate(RuleContext{}, ""); err == nil {
				t.Fatalf("expected empty expressions to be rejected")
			}
		})
	}
}

func TestEvaluatorsWrapFailuresWithEvaluationError(t *testing.T) {
	for name, factory := range evaluatorFactories() {
		t.Run(name, func(t *testing.T) {
			_, err := factory(nil, nil).Evaluate(RuleContext{}, "((")
			if err == nil {
				t.Fatalf("expected a compile failure")
			}
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Fatalf("expected *EvaluationError, got %T: %v", err, err)
			}
			if evalErr.Engine != name || evalErr.Expr != "((" {
				t.Fatalf("unexpected error metadata: %+v", evalErr)
			}
		})
	}
}

func TestEvaluatorsCompileReusableRules(t *testing.T) {
	for name, factory := range evaluatorFactories() {
		t.Run(name, func(t *testing.T) {
			rule, err := factory(nil, NewMemoryProgramCache()).Compile("timeout + 1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, timeout := range []int64{10, 20} {
				result, err := rule.Evaluate(RuleContext{Snapshot: map[string]any{"timeout": timeout}})
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got := asInt(t, result); got != timeout+1 {
					t.Fatalf("expected %d, got %v", timeout+1, result)
				}
			}
		})
	}
}

func TestExprEvaluatorUsesProgramCache(t *testing.T) {
	cache := &countingCache{inner: NewMemoryProgramCache()}
	evaluator := NewExprEvaluator(ExprWithProgramCache(cache))

	ctx := RuleContext{Snapshot: map[string]any{"timeout": int64(60)}}
	for i := 0; i < 3; i++ {
		if _, err := evaluator.Evaluate(ctx, "timeout / 2"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if cache.sets != 1 {
		t.Fatalf("expected the program to be compiled once, got %d compiles", cache.sets)
	}
	if cache.hits < 2 {
		t.Fatalf("expected cache hits on repeat evaluations, got %d", cache.hits)
	}
}

func TestExprEvaluatorExposesTimestamp(t *testing.T) {
	fixed := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	result, err := NewExprEvaluator().Evaluate(RuleContext{Now: &fixed}, "now")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok := result.(time.Time)
	if !ok || !got.Equal(fixed) {
		t.Fatalf("expected pinned timestamp, got %v (%T)", result, result)
	}
}

func TestJSEvaluatorStub(t *testing.T) {
	if jsEvaluatorAvailable() {
		t.Skip("goja engine compiled in")
	}
	if evaluator := NewJSEvaluator(); evaluator != nil {
		t.Fatalf("expected nil evaluator without the js_eval build tag")
	}
}

type countingCache struct {
	inner ProgramCache
	hits  int
	sets  int
}

func (c *countingCache) Get(key string) (any, bool) {
	value, ok := c.inner.Get(key)
	if ok {
		c.hits++
	}
	return value, ok
}

func (c *countingCache) Set(key string, value any) {
	c.sets++
	c.inner.Set(key, value)
}

func asInt(t *testing.T, value any) int64 {
	t.Helper()
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	default:
		t.Fatalf("expected numeric result, got %T", value)
		return 0
	}
}
