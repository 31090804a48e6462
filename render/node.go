// Package render derives a visual tree from a surface snapshot. The
// dispatcher is polymorphic over the closed component kind set with an
// exhaustive switch: adding a kind is a compile-checked enumeration change.
//
// Rendering is pure over a stable snapshot and safe to run on any goroutine;
// it must not share a Surface with an in-progress fold (snapshot-then-render,
// see surface.Store). Structural failures (no derivable root) abort the
// surface's render pass; per-component issues (dangling child reference,
// unresolvable binding, unrecognized kind tag) degrade to visible fallback
// nodes and never abort.
package render

import (
	"encoding/json"

	"github.com/c360/surfacestream/envelope"
)

// Node is one node of the rendered visual tree handed to the visual layer.
// Which fields are populated depends on Kind; the concrete widget technology
// consuming the tree is outside this contract.
type Node struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	// Text carries the resolved label for Text and Button nodes.
	Text      string `json:"text,omitempty"`
	UsageHint string `json:"usageHint,omitempty"`
	ActionID  string `json:"actionId,omitempty"`

	// Title is the resolved title for Card and Chart nodes.
	Title string `json:"title,omitempty"`

	// Input fields (TextField, DateTimeInput).
	Label       string `json:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Mode        string `json:"mode,omitempty"`
	BindingPath string `json:"bindingPath,omitempty"`
	Value       any    `json:"value,omitempty"`

	// Data-driven leaves (Table, Chart). Rows is always non-nil for these
	// kinds - resolution failures default to empty, never null.
	Columns []envelope.TableColumn `json:"columns,omitempty"`
	Chart   *ChartSpec             `json:"chart,omitempty"`
	Rows    []any                  `json:"rows,omitempty"`

	// Form submit action.
	SubmitActionID string `json:"submitActionId,omitempty"`

	// Containers recurse depth-first over children in list order.
	Children []*Node `json:"children,omitempty"`

	// Missing marks the visible fallback for a dangling child reference.
	Missing bool `json:"missing,omitempty"`
	// Unsupported marks the placeholder for an unrecognized kind tag.
	Unsupported bool `json:"unsupported,omitempty"`
}

// MarshalJSON keeps rows and columns present for data-driven kinds even when
// empty. omitempty drops a zero-length slice entirely, but the contract for
// Table and Chart is an empty array, never null or an absent key.
func (n *Node) MarshalJSON() ([]byte, error) {
	type alias Node
	aux := struct {
		*alias
		Columns *[]envelope.TableColumn `json:"columns,omitempty"`
		Rows    *[]any                  `json:"rows,omitempty"`
	}{alias: (*alias)(n)}

	if n.Columns != nil {
		aux.Columns = &n.Columns
	}
	if n.Rows != nil {
		aux.Rows = &n.Rows
	}
	return json.Marshal(aux)
}

// ChartSpec is the resolved chart configuration, minus the binding path
// (already resolved into Rows).
type ChartSpec struct {
	Type string `json:"type"`
	XKey string `json:"xKey"`
	YKey string `json:"yKey"`
}

// Observer receives per-component degradation events during a render pass.
// Implementations must be cheap; the dispatcher calls them inline.
type Observer interface {
	// MissingComponent fires when a child id has no live component.
	MissingComponent(surfaceID, componentID string)
	// BindingMiss fires when a binding path resolves to nothing.
	BindingMiss(componentID, path string)
	// UnsupportedKind fires when a component carries an unrecognized kind tag.
	UnsupportedKind(componentID string, kind string)
}
