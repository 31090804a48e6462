package render

import (
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/c360/surfacestream/envelope"
	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/surface"
)

// Dispatcher renders surface snapshots into visual trees.
type Dispatcher struct {
	logger   *slog.Logger
	observer Observer
}

// NewDispatcher creates a Dispatcher. observer may be nil.
func NewDispatcher(logger *slog.Logger, observer Observer) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger, observer: observer}
}

// RenderSurface derives the snapshot's render roots and renders each into a
// visual tree, in registry order. A surface with components but no derivable
// root returns a TopologyError and no trees: structural errors are fatal to
// the surface, while everything below the roots degrades per component.
func (d *Dispatcher) RenderSurface(s *surface.Surface) ([]*Node, error) {
	roots, err := s.Roots()
	if err != nil {
		d.logger.Error("Surface has no renderable root",
			"surface_id", s.ID(),
			"components", s.Len(),
			"error", err)
		return nil, err
	}

	trees := make([]*Node, 0, len(roots))
	for _, id := range roots {
		trees = append(trees, d.Render(id, s))
	}
	return trees, nil
}

// Render renders one component and, depth-first, everything below it.
// A missing id yields a visible fallback node, never a hard failure.
func (d *Dispatcher) Render(id string, s *surface.Surface) *Node {
	comp, ok := s.Component(id)
	if !ok {
		missing := &errors.MissingComponentError{SurfaceID: s.ID(), ComponentID: id}
		d.logger.Warn("Dangling child reference", "surface_id", s.ID(), "component_id", id, "error", missing)
		if d.observer != nil {
			d.observer.MissingComponent(s.ID(), id)
		}
		return &Node{ID: id, Kind: "Missing", Missing: true}
	}

	// Exhaustive over the closed kind set; the default arm is the forward
	// compatibility path for tags this build does not know.
	switch props := comp.Props.(type) {
	case *envelope.TextProps:
		return &Node{
			ID:        comp.ID,
			Kind:      string(envelope.KindText),
			Text:      d.resolveText(comp.ID, props.Text, s),
			UsageHint: props.UsageHint,
		}

	case *envelope.ButtonProps:
		return &Node{
			ID:        comp.ID,
			Kind:      string(envelope.KindButton),
			Text:      d.resolveText(comp.ID, props.Text, s),
			ActionID:  props.ActionID,
			UsageHint: props.UsageHint,
		}

	case *envelope.CardProps:
		node := &Node{
			ID:       comp.ID,
			Kind:     string(envelope.KindCard),
			Children: d.renderChildren(props.Children, s),
		}
		if props.Title != nil {
			node.Title = d.resolveText(comp.ID, *props.Title, s)
		}
		return node

	case *envelope.RowProps:
		return &Node{
			ID:       comp.ID,
			Kind:     string(envelope.KindRow),
			Children: d.renderChildren(props.Children, s),
		}

	case *envelope.ColumnProps:
		return &Node{
			ID:       comp.ID,
			Kind:     string(envelope.KindColumn),
			Children: d.renderChildren(props.Children, s),
		}

	case *envelope.TableProps:
		columns := props.Columns
		if columns == nil {
			columns = []envelope.TableColumn{}
		}
		return &Node{
			ID:      comp.ID,
			Kind:    string(envelope.KindTable),
			Columns: columns,
			Rows:    d.resolveRows(comp.ID, props.DataPath, s),
		}

	case *envelope.ChartProps:
		node := &Node{
			ID:   comp.ID,
			Kind: string(envelope.KindChart),
			Chart: &ChartSpec{
				Type: props.Config.Type,
				XKey: props.Config.XKey,
				YKey: props.Config.YKey,
			},
			Rows: d.resolveRows(comp.ID, props.Config.DataPath, s),
		}
		if props.Title != nil {
			node.Title = d.resolveText(comp.ID, *props.Title, s)
		}
		return node

	case *envelope.FormProps:
		return &Node{
			ID:             comp.ID,
			Kind:           string(envelope.KindForm),
			SubmitActionID: props.SubmitActionID,
			Children:       d.renderChildren(props.Children, s),
		}

	case *envelope.TextFieldProps:
		node := &Node{
			ID:          comp.ID,
			Kind:        string(envelope.KindTextField),
			Label:       d.resolveText(comp.ID, props.Label, s),
			BindingPath: props.BindingPath,
			Value:       d.resolveValue(comp.ID, props.BindingPath, s),
		}
		if props.Placeholder != nil {
			node.Placeholder = d.resolveText(comp.ID, *props.Placeholder, s)
		}
		return node

	case *envelope.DateTimeInputProps:
		return &Node{
			ID:          comp.ID,
			Kind:        string(envelope.KindDateTimeInput),
			Label:       d.resolveText(comp.ID, props.Label, s),
			BindingPath: props.BindingPath,
			Mode:        props.Mode,
			Value:       d.resolveValue(comp.ID, props.BindingPath, s),
		}

	default:
		d.logger.Warn("Unsupported component kind",
			"surface_id", s.ID(),
			"component_id", comp.ID,
			"kind", string(comp.Kind))
		if d.observer != nil {
			d.observer.UnsupportedKind(comp.ID, string(comp.Kind))
		}
		return &Node{ID: comp.ID, Kind: string(comp.Kind), Unsupported: true}
	}
}

// renderChildren recurses depth-first over children in list order.
func (d *Dispatcher) renderChildren(ids []string, s *surface.Surface) []*Node {
	nodes := make([]*Node, 0, len(ids))
	for _, id := range ids {
		nodes = append(nodes, d.Render(id, s))
	}
	return nodes
}

// resolveText produces the display string for a text value: the literal as-is,
// or the bound data model value formatted. A path that resolves to nothing
// substitutes the empty literal and the render continues.
func (d *Dispatcher) resolveText(componentID string, v envelope.TextValue, s *surface.Surface) string {
	if !v.Bound() {
		return v.Literal
	}

	resolved := s.Resolve(v.Path)
	if resolved == nil {
		d.reportBindingMiss(componentID, v.Path)
		return ""
	}
	return formatValue(resolved)
}

// resolveValue resolves an input component's current bound value, defaulting
// to the empty literal on failure.
func (d *Dispatcher) resolveValue(componentID, path string, s *surface.Surface) any {
	if path == "" {
		return ""
	}
	resolved := s.Resolve(path)
	if resolved == nil {
		d.reportBindingMiss(componentID, path)
		return ""
	}
	return resolved
}

// resolveRows resolves a table/chart source path to its row array, defaulting
// to empty (never nil) on failure or a non-array shape. A resolved {data: X}
// wrapper is unwrapped to X here, keeping the path resolver a pure tree walk.
func (d *Dispatcher) resolveRows(componentID, path string, s *surface.Surface) []any {
	resolved := s.Resolve(path)
	if resolved == nil {
		d.reportBindingMiss(componentID, path)
		return []any{}
	}

	resolved = unwrapData(resolved)
	rows, ok := resolved.([]any)
	if !ok || rows == nil {
		if !ok {
			d.logger.Warn("Data source is not an array",
				"component_id", componentID,
				"path", path)
		}
		return []any{}
	}
	return rows
}

// unwrapData unwraps the {data: X} convention used by producers that wrap
// row arrays in a single-key object.
func unwrapData(v any) any {
	switch node := v.(type) {
	case *surface.Container:
		if inner, ok := node.Get("data"); ok && node.Len() == 1 {
			return inner
		}
	case map[string]any:
		if inner, ok := node["data"]; ok && len(node) == 1 {
			return inner
		}
	}
	return v
}

func (d *Dispatcher) reportBindingMiss(componentID, path string) {
	miss := &errors.BindingError{ComponentID: componentID, Path: path}
	d.logger.Debug("Binding resolution failed", "component_id", componentID, "path", path, "error", miss)
	if d.observer != nil {
		d.observer.BindingMiss(componentID, path)
	}
}

// formatValue renders a resolved scalar for display. Numbers drop the
// trailing ".0" that float64 wire decoding would otherwise introduce.
func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
