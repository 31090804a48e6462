package envelope

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// TextValue is a component text property that is either a literal string or
// a data-binding path into the surface's data model. Exactly one of the two
// is set after decoding.
//
// The canonical wire shape is {"literalString": "..."} for literals and
// {"path": "/..."} for bindings. Two legacy spellings are accepted and
// normalized on ingestion: a bare JSON string (treated as a literal) and the
// dataPath/dataBinding field names (treated as a binding path).
type TextValue struct {
	Literal string
	Path    string
}

// Bound reports whether the value is a data-binding path rather than a literal.
func (v TextValue) Bound() bool {
	return v.Path != ""
}

// textValueWire is the canonical object form plus the legacy binding names.
type textValueWire struct {
	LiteralString *string `json:"literalString,omitempty"`
	Path          string  `json:"path,omitempty"`
	DataPath      string  `json:"dataPath,omitempty"`
	DataBinding   string  `json:"dataBinding,omitempty"`
}

// UnmarshalJSON accepts the canonical object form, the legacy binding field
// names, and a bare string literal.
func (v *TextValue) UnmarshalJSON(data []byte) error {
	// Legacy: plain string where a literalString wrapper is expected.
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Literal = s
		v.Path = ""
		return nil
	}

	var wire textValueWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("text value: %w", err)
	}

	v.Literal = ""
	v.Path = ""
	switch {
	case wire.LiteralString != nil:
		v.Literal = *wire.LiteralString
	case wire.Path != "":
		v.Path = wire.Path
	case wire.DataPath != "":
		v.Path = wire.DataPath
	case wire.DataBinding != "":
		v.Path = wire.DataBinding
	}
	return nil
}

// MarshalJSON always emits the canonical shape.
func (v TextValue) MarshalJSON() ([]byte, error) {
	if v.Bound() {
		return json.Marshal(textValueWire{Path: v.Path})
	}
	lit := v.Literal
	return json.Marshal(textValueWire{LiteralString: &lit})
}
