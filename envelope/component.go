package envelope

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/c360/surfacestream/errors"
)

// Properties is the closed union of kind-specific component payloads.
// Container kinds report their ordered child id list through ChildIDs;
// leaf kinds return nil.
type Properties interface {
	// PropKind returns the kind tag this payload belongs to.
	PropKind() Kind

	// ChildIDs returns the ordered child component ids for container kinds,
	// nil for leaves.
	ChildIDs() []string

	// normalize rewrites legacy field spellings into the canonical shape.
	// Runs once, during Component decoding.
	normalize()
}

// TextProps renders a block of text, literal or bound.
type TextProps struct {
	Text      TextValue `json:"text"`
	UsageHint string    `json:"usage_hint,omitempty"` // title, subtitle, or body
}

// PropKind implements Properties.
func (p *TextProps) PropKind() Kind { return KindText }

// ChildIDs implements Properties.
func (p *TextProps) ChildIDs() []string { return nil }

func (p *TextProps) normalize() {}

// ButtonProps renders an interactive button.
type ButtonProps struct {
	Text      TextValue `json:"text"`
	ActionID  string    `json:"actionId"`
	UsageHint string    `json:"usage_hint,omitempty"` // primary or secondary
}

// PropKind implements Properties.
func (p *ButtonProps) PropKind() Kind { return KindButton }

// ChildIDs implements Properties.
func (p *ButtonProps) ChildIDs() []string { return nil }

func (p *ButtonProps) normalize() {}

// CardProps is a titled container.
type CardProps struct {
	Children []string   `json:"children"`
	Title    *TextValue `json:"title,omitempty"`
}

// PropKind implements Properties.
func (p *CardProps) PropKind() Kind { return KindCard }

// ChildIDs implements Properties.
func (p *CardProps) ChildIDs() []string { return p.Children }

func (p *CardProps) normalize() {}

// RowProps lays children out horizontally.
type RowProps struct {
	Children []string `json:"children"`
}

// PropKind implements Properties.
func (p *RowProps) PropKind() Kind { return KindRow }

// ChildIDs implements Properties.
func (p *RowProps) ChildIDs() []string { return p.Children }

func (p *RowProps) normalize() {}

// ColumnProps lays children out vertically.
type ColumnProps struct {
	Children []string `json:"children"`
}

// PropKind implements Properties.
func (p *ColumnProps) PropKind() Kind { return KindColumn }

// ChildIDs implements Properties.
func (p *ColumnProps) ChildIDs() []string { return p.Children }

func (p *ColumnProps) normalize() {}

// TableColumn defines one column of a Table component.
type TableColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Type  string `json:"type,omitempty"` // string, number, boolean
}

// TableProps is a data-driven table bound to an array in the data model.
type TableProps struct {
	Columns  []TableColumn `json:"columns"`
	DataPath string        `json:"dataPath"`

	// DataBinding is the legacy spelling of DataPath. Normalized into
	// DataPath on decode; renderers only read DataPath.
	DataBinding string `json:"dataBinding,omitempty"`
}

// PropKind implements Properties.
func (p *TableProps) PropKind() Kind { return KindTable }

// ChildIDs implements Properties.
func (p *TableProps) ChildIDs() []string { return nil }

func (p *TableProps) normalize() {
	if p.DataPath == "" && p.DataBinding != "" {
		p.DataPath = p.DataBinding
	}
	p.DataBinding = ""
}

// ChartConfig configures a Chart's shape and data binding.
type ChartConfig struct {
	Type     string `json:"type"` // line, bar, pie, area
	XKey     string `json:"xKey"`
	YKey     string `json:"yKey"`
	DataPath string `json:"dataPath"`

	// DataBinding is the legacy spelling of DataPath, normalized on decode.
	DataBinding string `json:"dataBinding,omitempty"`
}

// ChartProps is a data-driven chart bound to an array in the data model.
type ChartProps struct {
	Config ChartConfig `json:"config"`
	Title  *TextValue  `json:"title,omitempty"`
}

// PropKind implements Properties.
func (p *ChartProps) PropKind() Kind { return KindChart }

// ChildIDs implements Properties.
func (p *ChartProps) ChildIDs() []string { return nil }

func (p *ChartProps) normalize() {
	if p.Config.DataPath == "" && p.Config.DataBinding != "" {
		p.Config.DataPath = p.Config.DataBinding
	}
	p.Config.DataBinding = ""
}

// FormProps is a container that submits its children's bound values.
type FormProps struct {
	Children       []string `json:"children"`
	SubmitActionID string   `json:"submitActionId"`
}

// PropKind implements Properties.
func (p *FormProps) PropKind() Kind { return KindForm }

// ChildIDs implements Properties.
func (p *FormProps) ChildIDs() []string { return p.Children }

func (p *FormProps) normalize() {}

// TextFieldProps is a single-line text input bound into the data model.
type TextFieldProps struct {
	Label       TextValue  `json:"label"`
	BindingPath string     `json:"bindingPath"`
	Placeholder *TextValue `json:"placeholder,omitempty"`

	// DataBinding is the legacy spelling of BindingPath, normalized on decode.
	DataBinding string `json:"dataBinding,omitempty"`
}

// PropKind implements Properties.
func (p *TextFieldProps) PropKind() Kind { return KindTextField }

// ChildIDs implements Properties.
func (p *TextFieldProps) ChildIDs() []string { return nil }

func (p *TextFieldProps) normalize() {
	if p.BindingPath == "" && p.DataBinding != "" {
		p.BindingPath = p.DataBinding
	}
	p.DataBinding = ""
}

// DateTimeInputProps is a date/time input bound into the data model.
type DateTimeInputProps struct {
	Label       TextValue `json:"label"`
	BindingPath string    `json:"bindingPath"`
	Mode        string    `json:"mode,omitempty"` // date, time, or datetime

	// DataBinding is the legacy spelling of BindingPath, normalized on decode.
	DataBinding string `json:"dataBinding,omitempty"`
}

// PropKind implements Properties.
func (p *DateTimeInputProps) PropKind() Kind { return KindDateTimeInput }

// ChildIDs implements Properties.
func (p *DateTimeInputProps) ChildIDs() []string { return nil }

func (p *DateTimeInputProps) normalize() {
	if p.BindingPath == "" && p.DataBinding != "" {
		p.BindingPath = p.DataBinding
	}
	p.DataBinding = ""
}

// newProperties returns a zero payload for a known kind, nil otherwise.
func newProperties(k Kind) Properties {
	switch k {
	case KindText:
		return &TextProps{}
	case KindButton:
		return &ButtonProps{}
	case KindCard:
		return &CardProps{}
	case KindRow:
		return &RowProps{}
	case KindColumn:
		return &ColumnProps{}
	case KindTable:
		return &TableProps{}
	case KindChart:
		return &ChartProps{}
	case KindForm:
		return &FormProps{}
	case KindTextField:
		return &TextFieldProps{}
	case KindDateTimeInput:
		return &DateTimeInputProps{}
	default:
		return nil
	}
}

// Component is one UI tree node: a unique id plus a kind-tagged payload.
// Components arrive in flat adjacency-list form; containers reference their
// children by id, and the tree shape is derived, never declared.
//
// For unrecognized kind tags Props is nil and Raw retains the original
// payload so the dispatcher can render a visible placeholder instead of
// failing the surface.
type Component struct {
	ID    string
	Kind  Kind
	Props Properties
	Raw   json.RawMessage
}

// ChildIDs returns the ordered child ids for container components, nil for
// leaves and unknown kinds.
func (c *Component) ChildIDs() []string {
	if c.Props == nil {
		return nil
	}
	return c.Props.ChildIDs()
}

// componentWire is the adjacency-list entry shape:
// {"id": "t1", "component": {"Text": {...}}}
type componentWire struct {
	ID        string                     `json:"id"`
	Component map[string]json.RawMessage `json:"component"`
}

// UnmarshalJSON decodes the kind-tagged payload union. The component object
// must carry exactly one kind tag; the payload of an unrecognized tag is kept
// raw rather than rejected, for forward compatibility.
func (c *Component) UnmarshalJSON(data []byte) error {
	var wire componentWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("component: %w", err)
	}
	if wire.ID == "" {
		return fmt.Errorf("component: %w", errors.ErrMalformedRecord)
	}
	if len(wire.Component) != 1 {
		return fmt.Errorf("component %q: expected exactly one kind tag, got %d: %w",
			wire.ID, len(wire.Component), errors.ErrMalformedRecord)
	}

	c.ID = wire.ID
	for tag, raw := range wire.Component {
		c.Kind = Kind(tag)
		c.Raw = raw
		c.Props = newProperties(c.Kind)
		if c.Props == nil {
			// Unknown kind: carried through, rendered as a placeholder.
			return nil
		}
		if err := json.Unmarshal(raw, c.Props); err != nil {
			return fmt.Errorf("component %q (%s): %w", c.ID, tag, err)
		}
		c.Props.normalize()
	}
	return nil
}

// MarshalJSON re-emits the adjacency-list entry shape. Known kinds serialize
// their normalized payload; unknown kinds round-trip their raw payload.
func (c Component) MarshalJSON() ([]byte, error) {
	payload := c.Raw
	if c.Props != nil {
		data, err := json.Marshal(c.Props)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", c.ID, err)
		}
		payload = data
	}
	return json.Marshal(componentWire{
		ID:        c.ID,
		Component: map[string]json.RawMessage{string(c.Kind): payload},
	})
}
