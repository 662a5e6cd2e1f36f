package document

import (
	"bytes"
	"fmt"

	toml "github.com/pelletier/go-toml/v2"
)

// Context carries resolution metadata into decode hooks.
type Context struct {
	// Version is the schema version the document is being decoded as.
	Version int64
}

// PreHook lets callers normalise the tree before it is decoded.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the decoded value.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts documents into strongly typed schema values by encoding
// the tree back to TOML and unmarshalling it into T.
type Decoder[T any] struct {
	preHooks  []PreHook
	postHooks []PostHook[T]
	strict    bool
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithStrict makes decoding fail when the document carries keys the target
// shape does not declare.
func WithStrict[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// NewDecoder constructs a decoder for T.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts doc into T applying configured hooks. Shape mismatches are
// reported through the underlying toml decode error, which remains reachable
// via errors.As.
func (d *Decoder[T]) Decode(ctx Context, doc *Document) (T, error) {
	var zero T

	if doc == nil {
		return zero, fmt.Errorf("document: decode: document is nil")
	}

	current := doc.Map()
	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("document: pre-hook for version %d: %w", ctx.Version, err)
		}
		if next != nil {
			current = next
		}
	}

	encoded, err := toml.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("document: encode for version %d: %w", ctx.Version, err)
	}

	var result T
	decoder := toml.NewDecoder(bytes.NewReader(encoded))
	if d.strict {
		decoder.DisallowUnknownFields()
	}
	if err := decoder.Decode(&result); err != nil {
		return zero, fmt.Errorf("document: decode as version %d: %w", ctx.Version, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("document: post-hook for version %d: %w", ctx.Version, err)
		}
	}

	return result, nil
}

// Decode is a convenience wrapper around a hook-free Decoder.
func Decode[T any](ctx Context, doc *Document) (T, error) {
	return NewDecoder[T]().Decode(ctx, doc)
}
