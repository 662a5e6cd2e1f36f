package migrate

import (
	"fmt"
	"reflect"

	"github.com/goliatone/go-config-migrate/document"
)

// Step describes one schema in a migration chain: its version number, how to
// decode a document that is already in its shape, and how to convert a value
// from the immediate predecessor's shape. Steps are immutable once declared.
type Step struct {
	version int64
	root    bool
	in      reflect.Type
	out     reflect.Type
	decode  func(*document.Document) (any, error)
	convert func(any) (any, error)
}

// Version returns the step's schema version number.
func (s Step) Version() int64 { return s.version }

// IsRoot reports whether the step is the chain root.
func (s Step) IsRoot() bool { return s.root }

// Root declares the earliest schema in a chain. Documents tagged with version
// decode directly into S; there is no predecessor to convert from.
func Root[S any](version int64) Step {
	return Step{
		version: version,
		root:    true,
		out:     reflect.TypeFor[S](),
		decode:  decodeAs[S](version),
	}
}

// RootFunc declares a chain root with a custom decode function, for schemas
// that need hooks or strict decoding.
func RootFunc[S any](version int64, decode func(*document.Document) (S, error)) Step {
	return Step{
		version: version,
		root:    true,
		out:     reflect.TypeFor[S](),
		decode:  eraseDecode(decode),
	}
}

// Next declares a schema that succeeds Prev in the chain. The convert
// function is the total structural conversion from the predecessor's shape:
// it fills defaults for new fields and drops removed ones, and must not fail.
func Next[Prev, S any](version int64, convert func(Prev) S) Step {
	return Step{
		version: version,
		in:      reflect.TypeFor[Prev](),
		out:     reflect.TypeFor[S](),
		decode:  decodeAs[S](version),
		convert: eraseConvert(convert),
	}
}

// NextFunc is Next with a custom decode function for the step's own shape.
func NextFunc[Prev, S any](version int64, convert func(Prev) S, decode func(*document.Document) (S, error)) Step {
	return Step{
		version: version,
		in:      reflect.TypeFor[Prev](),
		out:     reflect.TypeFor[S](),
		decode:  eraseDecode(decode),
		convert: eraseConvert(convert),
	}
}

func decodeAs[S any](version int64) func(*document.Document) (any, error) {
	return func(doc *document.Document) (any, error) {
		return document.Decode[S](document.Context{Version: version}, doc)
	}
}

func eraseDecode[S any](decode func(*document.Document) (S, error)) func(*document.Document) (any, error) {
	return func(doc *document.Document) (any, error) {
		return decode(doc)
	}
}

func eraseConvert[Prev, S any](convert func(Prev) S) func(any) (any, error) {
	return func(prev any) (any, error) {
		typed, ok := prev.(Prev)
		if !ok {
			return nil, &ChainError{Reason: fmt.Sprintf("conversion expects %T, chain produced %T", typed, prev)}
		}
		return convert(typed), nil
	}
}

// Chain is a validated, ordered sequence of schema steps ending in the target
// type T. A built chain is read-only and safe for concurrent use.
type Chain[T any] struct {
	steps []Step
}

// NewChain validates the declared steps and assembles the chain. Validation
// happens here, once, rather than surfacing later as resolution failures:
// the chain must be non-empty, start with exactly one root, carry unique
// version numbers, link each step's input type to its predecessor's output
// type, and end in T.
func NewChain[T any](steps ...Step) (*Chain[T], error) {
	if len(steps) == 0 {
		return nil, &ChainError{Reason: "chain must declare at least one schema"}
	}
	if !steps[0].root {
		return nil, &ChainError{Reason: "first step must be declared with Root"}
	}
	seen := map[int64]bool{}
	for i, step := range steps {
		if step.decode == nil {
			return nil, &ChainError{Reason: fmt.Sprintf("step %d has no decode function", i)}
		}
		if seen[step.version] {
			return nil, &ChainError{Reason: fmt.Sprintf("duplicate version %d", step.version)}
		}
		seen[step.version] = true
		if i == 0 {
			continue
		}
		if step.root {
			return nil, &ChainError{Reason: fmt.Sprintf("step %d redeclares the chain root", i)}
		}
		if step.convert == nil {
			return nil, &ChainError{Reason: fmt.Sprintf("step %d has no conversion from its predecessor", i)}
		}
		if step.in != steps[i-1].out {
			return nil, &ChainError{Reason: fmt.Sprintf("step %d converts from %v but predecessor produces %v", i, step.in, steps[i-1].out)}
		}
	}
	target := reflect.TypeFor[T]()
	if last := steps[len(steps)-1].out; last != target {
		return nil, &ChainError{Reason: fmt.Sprintf("chain produces %v, want %v", last, target)}
	}
	return &Chain[T]{steps: append([]Step(nil), steps...)}, nil
}

// Target returns the version number of the final schema in the chain.
func (c *Chain[T]) Target() int64 {
	return c.steps[len(c.steps)-1].version
}

// Versions returns the chain's version numbers in declaration order.
func (c *Chain[T]) Versions() []int64 {
	versions := make([]int64, len(c.steps))
	for i, step := range c.steps {
		versions[i] = step.version
	}
	return versions
}

// Len returns the number of schemas in the chain.
func (c *Chain[T]) Len() int {
	return len(c.steps)
}

// indexOf walks the chain backward from the target looking for version.
func (c *Chain[T]) indexOf(version int64) (int, bool) {
	for i := len(c.steps) - 1; i >= 0; i-- {
		if c.steps[i].version == version {
			return i, true
		}
	}
	return 0, false
}
