// Package document provides the mutable key-value document that migration
// chains resolve against. A Document is parsed from TOML into an in-memory
// tree that can be queried and rewritten by dotted path before it is decoded
// into a concrete schema shape.
package document

import (
	"fmt"
	"math"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Document is a mutable key-value tree. Nested tables are represented as
// map[string]any nodes. A Document is not safe for concurrent mutation; each
// resolution owns its document exclusively.
type Document struct {
	root map[string]any
}

// New returns an empty document.
func New() *Document {
	return &Document{root: map[string]any{}}
}

// FromMap wraps an existing tree without copying it. The caller must not
// retain references into the map afterwards.
func FromMap(root map[string]any) *Document {
	if root == nil {
		root = map[string]any{}
	}
	return &Document{root: root}
}

// Parse reads TOML text into a document. The error wraps the underlying
// toml error so callers can still reach the parser's diagnostics.
func Parse(raw []byte) (*Document, error) {
	root := map[string]any{}
	if err := toml.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("document: parse: %w", err)
	}
	return &Document{root: root}, nil
}

// Len reports the number of top-level keys.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}
	return len(d.root)
}

// Keys returns the top-level keys in deterministic (sorted) order.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, 0, len(d.root))
	for key := range d.root {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Get resolves a dotted path and reports whether it was present.
func (d *Document) Get(path string) (any, bool) {
	if d == nil || path == "" {
		return nil, false
	}
	segments := strings.Split(path, ".")
	node := any(d.root)
	for _, segment := range segments {
		table, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = table[segment]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// Set writes value at a dotted path, creating intermediate tables as needed.
// It fails when a path segment already holds a non-table value.
func (d *Document) Set(path string, value any) error {
	if d == nil {
		return fmt.Errorf("document: set %q on nil document", path)
	}
	if path == "" {
		return fmt.Errorf("document: set requires a non-empty path")
	}
	segments := strings.Split(path, ".")
	table := d.root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := table[segment]
		if !ok {
			next := map[string]any{}
			table[segment] = next
			table = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("document: %q is not a table", segment)
		}
		table = next
	}
	table[segments[len(segments)-1]] = value
	return nil
}

// Remove deletes the value at a dotted path and reports whether it existed.
// Emptied intermediate tables are kept in place.
func (d *Document) Remove(path string) bool {
	if d == nil || path == "" {
		return false
	}
	segments := strings.Split(path, ".")
	table := d.root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := table[segment].(map[string]any)
		if !ok {
			return false
		}
		table = child
	}
	last := segments[len(segments)-1]
	if _, ok := table[last]; !ok {
		return false
	}
	delete(table, last)
	return true
}

// Rename moves the value at from to to. Renaming a missing path is a no-op.
func (d *Document) Rename(from, to string) error {
	value, ok := d.Get(from)
	if !ok {
		return nil
	}
	if err := d.Set(to, value); err != nil {
		return err
	}
	d.Remove(from)
	return nil
}

// ExtractInt removes the named top-level field and returns it as an int64.
// The second return reports whether the field was present at all; err is
// non-nil when the field was present but did not hold an integer.
func (d *Document) ExtractInt(key string) (int64, bool, error) {
	if d == nil {
		return 0, false, nil
	}
	raw, ok := d.root[key]
	if !ok {
		return 0, false, nil
	}
	delete(d.root, key)
	value, err := asInt64(raw)
	if err != nil {
		return 0, true, fmt.Errorf("document: field %q: %w", key, err)
	}
	return value, true, nil
}

func asInt64(raw any) (int64, error) {
	switch typed := raw.(type) {
	case int64:
		return typed, nil
	case int:
		return int64(typed), nil
	case uint64:
		if typed > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", typed)
		}
		return int64(typed), nil
	case float64:
		if typed != math.Trunc(typed) {
			return 0, fmt.Errorf("value %v is not an integer", typed)
		}
		return int64(typed), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", raw, raw)
	}
}

// Map returns a deep copy of the tree, suitable for expression snapshots.
func (d *Document) Map() map[string]any {
	if d == nil {
		return map[string]any{}
	}
	return cloneTable(d.root)
}

// Clone returns an independent copy of the document.
func (d *Document) Clone() *Document {
	return &Document{root: cloneTable(d.root)}
}

// Encode renders the document back to TOML.
func (d *Document) Encode() ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("document: encode nil document")
	}
	out, err := toml.Marshal(d.root)
	if err != nil {
		return nil, fmt.Errorf("document: encode: %w", err)
	}
	return out, nil
}

func cloneTable(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = cloneNode(value)
	}
	return dst
}

func cloneNode(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneTable(typed)
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneNode(item)
		}
		return out
	default:
		return value
	}
}
