package errors

import (
	"errors"
	"fmt"
)

// DecodeError reports a malformed envelope record. It retains the raw record
// for diagnostics because structural protocol errors must be visibly reported
// with the offending payload. Decoding aborts at the first DecodeError;
// records already applied stay applied.
type DecodeError struct {
	Record []byte // offending raw record, verbatim
	Line   int    // 1-based record number within the stream
	Err    error
}

// Error implements the error interface
func (de *DecodeError) Error() string {
	return fmt.Sprintf("decode record %d: %v", de.Line, de.Err)
}

// Unwrap returns the underlying error
func (de *DecodeError) Unwrap() error {
	return de.Err
}

// NewDecodeError creates a DecodeError for the given raw record.
// The record is copied so callers may reuse their buffers.
func NewDecodeError(record []byte, line int, err error) *DecodeError {
	raw := make([]byte, len(record))
	copy(raw, record)
	return &DecodeError{Record: raw, Line: line, Err: err}
}

// IsDecodeError reports whether err is (or wraps) a DecodeError
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// TopologyError reports a surface whose component registry has no derivable
// render root (every component lists another as a child, or a cycle).
// Fatal to the affected surface; rendering of that surface aborts.
type TopologyError struct {
	SurfaceID  string
	Components int // registry size when the derivation failed
}

// Error implements the error interface
func (te *TopologyError) Error() string {
	return fmt.Sprintf("surface %q: no renderable root among %d components", te.SurfaceID, te.Components)
}

// Unwrap ties TopologyError into the sentinel hierarchy
func (te *TopologyError) Unwrap() error {
	return ErrNoRenderableRoot
}

// IsTopologyError reports whether err is (or wraps) a TopologyError
func IsTopologyError(err error) bool {
	var te *TopologyError
	return errors.As(err, &te)
}

// MissingComponentError reports a dangling child reference encountered during
// rendering. Never fatal: the dispatcher renders a visible fallback node and
// continues with the remaining siblings.
type MissingComponentError struct {
	SurfaceID   string
	ComponentID string
}

// Error implements the error interface
func (me *MissingComponentError) Error() string {
	return fmt.Sprintf("surface %q: component %q referenced but not defined", me.SurfaceID, me.ComponentID)
}

// BindingError reports a data-binding path that resolved to nothing.
// Never fatal: the dispatcher substitutes an empty literal and continues.
type BindingError struct {
	ComponentID string
	Path        string
}

// Error implements the error interface
func (be *BindingError) Error() string {
	return fmt.Sprintf("component %q: binding path %q resolved to nothing", be.ComponentID, be.Path)
}
