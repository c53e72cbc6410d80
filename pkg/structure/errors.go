package structure

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by mutation operations. None of them leave a
// partially updated tree behind.
var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNotRemovable    = errors.New("field may not be removed")
	ErrNotChild        = errors.New("field is not a child of this node")
	ErrAttached        = errors.New("field already has a parent")
	ErrCycle           = errors.New("node cannot be inserted into its own subtree")
	ErrDepthExceeded   = errors.New("maximum nesting depth exceeded")
)

// ParseReason classifies a ParseError.
type ParseReason uint8

const (
	Truncated ParseReason = iota + 1
	InvalidSignature
	UnknownVariant
	Overlap
)

func (r ParseReason) String() string {
	switch r {
	case Truncated:
		return "truncated"
	case InvalidSignature:
		return "invalid signature"
	case UnknownVariant:
		return "unknown variant"
	case Overlap:
		return "overlapping fields"
	default:
		return "unknown"
	}
}

// ParseError reports why decoding a field failed.
type ParseError struct {
	Reason ParseReason
	Name   string // Field being decoded
	Offset int    // Absolute offset of the field
	Detail string
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %q at 0x%x: %s", e.Name, e.Offset, e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is reports whether target is a ParseError with the same reason, so that
// errors.Is(err, &ParseError{Reason: Truncated}) works.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	if !ok {
		return false
	}
	return t.Reason == e.Reason
}

func truncated(name string, offset, need, have int) error {
	return &ParseError{
		Reason: Truncated,
		Name:   name,
		Offset: offset,
		Detail: fmt.Sprintf("need %d bytes, got %d", need, have),
	}
}
