package migrate

import (
	"errors"
	"fmt"
)

// Sentinel kinds for the three resolution failure classes. Use errors.Is to
// distinguish a garbled document from one that is structurally wrong for its
// version, or one whose version tag cannot be resolved at all.
var (
	// ErrParse marks documents that are not well-formed TOML.
	ErrParse = errors.New("migrate: malformed configuration document")
	// ErrDecode marks documents that parsed but did not fit the matched
	// schema shape.
	ErrDecode = errors.New("migrate: document does not match schema")
	// ErrNoVersion marks documents whose version tag is missing, invalid, or
	// does not correspond to any schema in the chain.
	ErrNoVersion = errors.New("migrate: no valid version")
)

// ParseError wraps a document parse failure.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("migrate: parse document: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// DecodeError wraps a shape mismatch between a document and the schema
// matched for its version tag.
type DecodeError struct {
	Version int64
	Err     error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("migrate: decode document as version %d: %v", e.Version, e.Err)
}

func (e *DecodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// VersionError reports that no usable version tag could be established for a
// document: the field was absent with no configured default, held a
// non-integer value, or named a version outside the chain.
type VersionError struct {
	// Field is the version field that was consulted.
	Field string
	// Version is the extracted tag when Tagged is true.
	Version int64
	// Tagged reports whether the document carried a version tag at all.
	Tagged bool
	// Err carries the underlying cause when the field held an invalid value.
	Err error
}

func (e *VersionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Err != nil:
		return fmt.Sprintf("migrate: no valid version: %v", e.Err)
	case !e.Tagged:
		return fmt.Sprintf("migrate: no valid version: document has no %q field and no default version is configured", e.Field)
	default:
		return fmt.Sprintf("migrate: no valid version: %d does not match any schema in the chain", e.Version)
	}
}

func (e *VersionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *VersionError) Is(target error) bool {
	return target == ErrNoVersion
}

// ChainError reports a malformed chain declaration. Chains are validated when
// they are built, so these never surface during resolution.
type ChainError struct {
	Reason string
}

func (e *ChainError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "migrate: invalid chain: " + e.Reason
}
