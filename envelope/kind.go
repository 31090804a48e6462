package envelope

// Kind identifies a component type within the closed protocol set.
// The zero value is not a valid kind.
type Kind string

// The ten component kinds of the protocol. Adding a kind means extending
// this enumeration, newProperties, and the render dispatcher's switch;
// the compiler and tests keep the three in step.
const (
	KindText          Kind = "Text"
	KindButton        Kind = "Button"
	KindCard          Kind = "Card"
	KindRow           Kind = "Row"
	KindColumn        Kind = "Column"
	KindTable         Kind = "Table"
	KindChart         Kind = "Chart"
	KindForm          Kind = "Form"
	KindTextField     Kind = "TextField"
	KindDateTimeInput Kind = "DateTimeInput"
)

// Kinds lists all supported component kinds in declaration order.
var Kinds = []Kind{
	KindText, KindButton, KindCard, KindRow, KindColumn,
	KindTable, KindChart, KindForm, KindTextField, KindDateTimeInput,
}

// Known reports whether k is one of the supported kinds. Unknown kinds are
// carried through decode (the dispatcher renders a placeholder for them).
func (k Kind) Known() bool {
	switch k {
	case KindText, KindButton, KindCard, KindRow, KindColumn,
		KindTable, KindChart, KindForm, KindTextField, KindDateTimeInput:
		return true
	default:
		return false
	}
}

// Container reports whether k is a layout kind whose properties carry an
// ordered child id list.
func (k Kind) Container() bool {
	switch k {
	case KindCard, KindRow, KindColumn, KindForm:
		return true
	default:
		return false
	}
}
