package envelope

import (
	"fmt"

	"github.com/c360/surfacestream/errors"
)

// Variant discriminates the envelope union.
type Variant int

// Envelope variants in protocol order.
const (
	VariantNone Variant = iota
	VariantSurfaceUpdate
	VariantDataModelUpdate
	VariantBeginRendering
	VariantDeleteSurface
)

// String returns the wire name of the variant.
func (v Variant) String() string {
	switch v {
	case VariantSurfaceUpdate:
		return "surfaceUpdate"
	case VariantDataModelUpdate:
		return "dataModelUpdate"
	case VariantBeginRendering:
		return "beginRendering"
	case VariantDeleteSurface:
		return "deleteSurface"
	default:
		return "none"
	}
}

// Envelope is one protocol message with exactly one variant populated.
type Envelope struct {
	SurfaceUpdate   *SurfaceUpdate   `json:"surfaceUpdate,omitempty"`
	DataModelUpdate *DataModelUpdate `json:"dataModelUpdate,omitempty"`
	BeginRendering  *BeginRendering  `json:"beginRendering,omitempty"`
	DeleteSurface   *DeleteSurface   `json:"deleteSurface,omitempty"`
}

// SurfaceUpdate inserts or wholesale-replaces components on a surface.
// A repeated update for an id is a total replacement, never a merge.
type SurfaceUpdate struct {
	SurfaceID  string      `json:"surfaceId"`
	Components []Component `json:"components"`
}

// DataModelUpdate writes values into the surface's data model under Path
// (defaulting to "/"). Intermediate containers are created on demand.
type DataModelUpdate struct {
	SurfaceID string    `json:"surfaceId"`
	Path      string    `json:"path,omitempty"`
	Contents  []Content `json:"contents"`
}

// TargetPath returns the update path, applying the protocol default of "/".
func (u *DataModelUpdate) TargetPath() string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

// Content is one (key, value) entry of a DataModelUpdate. The protocol
// populates exactly one value variant; entries populating more than one are
// rejected at decode time as a schema violation.
type Content struct {
	Key          string   `json:"key"`
	ValueString  *string  `json:"valueString,omitempty"`
	ValueNumber  *float64 `json:"valueNumber,omitempty"`
	ValueBoolean *bool    `json:"valueBoolean,omitempty"`
	ValueArray   []any    `json:"valueArray,omitempty"`
}

// Value returns the populated variant and true, or (nil, false) when no
// variant is set. When several variants are set (an envelope built outside
// the decoder) the precedence is string > number > boolean > array, keeping
// the fold total.
func (c *Content) Value() (any, bool) {
	switch {
	case c.ValueString != nil:
		return *c.ValueString, true
	case c.ValueNumber != nil:
		return *c.ValueNumber, true
	case c.ValueBoolean != nil:
		return *c.ValueBoolean, true
	case c.ValueArray != nil:
		return c.ValueArray, true
	default:
		return nil, false
	}
}

// variantCount reports how many value variants are populated.
func (c *Content) variantCount() int {
	n := 0
	if c.ValueString != nil {
		n++
	}
	if c.ValueNumber != nil {
		n++
	}
	if c.ValueBoolean != nil {
		n++
	}
	if c.ValueArray != nil {
		n++
	}
	return n
}

// BeginRendering marks the surface ready. Idempotent; readiness is monotonic
// until DeleteSurface.
type BeginRendering struct {
	SurfaceID string `json:"surfaceId"`
}

// DeleteSurface discards the surface. Any later envelope for the same id
// recreates a fresh surface.
type DeleteSurface struct {
	SurfaceID string `json:"surfaceId"`
}

// Variant returns the populated variant, VariantNone when empty. When more
// than one is populated the first in protocol order wins; Validate rejects
// such envelopes before they reach a fold.
func (e *Envelope) Variant() Variant {
	switch {
	case e.SurfaceUpdate != nil:
		return VariantSurfaceUpdate
	case e.DataModelUpdate != nil:
		return VariantDataModelUpdate
	case e.BeginRendering != nil:
		return VariantBeginRendering
	case e.DeleteSurface != nil:
		return VariantDeleteSurface
	default:
		return VariantNone
	}
}

// SurfaceID returns the surface the envelope addresses, "" for an empty
// envelope. Producers discriminate interleaved streams by this id.
func (e *Envelope) SurfaceID() string {
	switch {
	case e.SurfaceUpdate != nil:
		return e.SurfaceUpdate.SurfaceID
	case e.DataModelUpdate != nil:
		return e.DataModelUpdate.SurfaceID
	case e.BeginRendering != nil:
		return e.BeginRendering.SurfaceID
	case e.DeleteSurface != nil:
		return e.DeleteSurface.SurfaceID
	default:
		return ""
	}
}

// Validate checks the structural protocol rules: exactly one variant
// populated, a non-empty surface id, and single-variant content entries.
func (e *Envelope) Validate() error {
	populated := 0
	if e.SurfaceUpdate != nil {
		populated++
	}
	if e.DataModelUpdate != nil {
		populated++
	}
	if e.BeginRendering != nil {
		populated++
	}
	if e.DeleteSurface != nil {
		populated++
	}
	if populated == 0 {
		return errors.ErrEmptyEnvelope
	}
	if populated > 1 {
		return fmt.Errorf("%d variants populated: %w", populated, errors.ErrMalformedRecord)
	}
	if e.SurfaceID() == "" {
		return fmt.Errorf("missing surfaceId: %w", errors.ErrMalformedRecord)
	}
	if err := validateSurfaceID(e.SurfaceID()); err != nil {
		return err
	}

	if u := e.DataModelUpdate; u != nil {
		for i := range u.Contents {
			c := &u.Contents[i]
			if c.Key == "" {
				return fmt.Errorf("content %d: missing key: %w", i, errors.ErrMalformedRecord)
			}
			if c.variantCount() > 1 {
				return fmt.Errorf("content %q: %w", c.Key, errors.ErrAmbiguousContent)
			}
		}
	}
	return nil
}

// validateSurfaceID rejects ids that cannot travel as a NATS subject suffix.
// Rendered trees publish on <renderSubject>.<surfaceId>, so whitespace,
// wildcards, and control bytes would break or escape the subject hierarchy.
// Dots are allowed: the suffix is recovered wholesale on the consuming side.
func validateSurfaceID(id string) error {
	for _, r := range id {
		if r <= ' ' || r == '*' || r == '>' || r == 0x7f {
			return fmt.Errorf("surfaceId %q: invalid character %q: %w", id, r, errors.ErrMalformedRecord)
		}
	}
	return nil
}
