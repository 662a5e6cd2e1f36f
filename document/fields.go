package document

import (
	"fmt"
	"sort"
	"strings"
)

// FieldDescriptor describes a dotted path and the inferred value type.
type FieldDescriptor struct {
	Path string
	Type string
}

// Fields flattens the document into path descriptors, sorted by path. Useful
// for diffing what a historical document actually carries against what a
// schema expects.
func (d *Document) Fields() []FieldDescriptor {
	if d == nil {
		return []FieldDescriptor{}
	}
	fields := describeNode(d.root, "")
	if fields == nil {
		fields = []FieldDescriptor{}
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Path < fields[j].Path })
	return fields
}

func describeNode(value any, prefix string) []FieldDescriptor {
	switch typed := value.(type) {
	case map[string]any:
		if len(typed) == 0 {
			if prefix == "" {
				return nil
			}
			return []FieldDescriptor{{Path: prefix, Type: "table"}}
		}
		var fields []FieldDescriptor
		for key, child := range typed {
			fields = append(fields, describeNode(child, joinPath(prefix, key))...)
		}
		return fields
	case []any:
		elementType := "any"
		if len(typed) > 0 {
			elementType = typeName(typed[0])
		}
		return []FieldDescriptor{{Path: prefix, Type: "[]" + elementType}}
	default:
		if prefix == "" {
			return nil
		}
		return []FieldDescriptor{{Path: prefix, Type: typeName(typed)}}
	}
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
