package surface

import (
	"fmt"

	"github.com/c360/surfacestream/envelope"
	"github.com/c360/surfacestream/errors"
)

// Apply folds one envelope into surface state and returns the resulting
// state. Pass nil state for the first envelope of a surface id: the surface
// is created lazily. A nil result signals DeleteSurface - the caller drops
// the surface, and any further envelope for the id recreates fresh state.
//
// Envelopes must be applied in arrival order by a single logical writer per
// surface. Apply is total over well-formed envelopes with one exception:
// a SurfaceUpdate whose component graph would contain a cycle is rejected
// here, where the full registry is visible, so the recursive renderer can
// trust the topology.
func Apply(s *Surface, env *envelope.Envelope) (*Surface, error) {
	if env == nil {
		return s, nil
	}

	switch env.Variant() {
	case envelope.VariantSurfaceUpdate:
		return applySurfaceUpdate(s, env.SurfaceUpdate)
	case envelope.VariantDataModelUpdate:
		return applyDataModelUpdate(s, env.DataModelUpdate), nil
	case envelope.VariantBeginRendering:
		s = ensure(s, env.BeginRendering.SurfaceID)
		s.ready = true // idempotent, monotonic until delete
		return s, nil
	case envelope.VariantDeleteSurface:
		return nil, nil
	default:
		return s, nil
	}
}

// ensure creates the surface on first use.
func ensure(s *Surface, id string) *Surface {
	if s == nil {
		return New(id)
	}
	return s
}

func applySurfaceUpdate(s *Surface, update *envelope.SurfaceUpdate) (*Surface, error) {
	s = ensure(s, update.SurfaceID)

	// Overlay the update on the live registry and check the merged child
	// graph before committing anything: rejecting here keeps render-time
	// recursion guard-free.
	merged := make(map[string][]string, len(s.components)+len(update.Components))
	for id, c := range s.components {
		merged[id] = c.ChildIDs()
	}
	for i := range update.Components {
		c := &update.Components[i]
		merged[c.ID] = c.ChildIDs()
	}
	if id, cyclic := findCycle(merged); cyclic {
		return s, errors.WrapInvalid(
			fmt.Errorf("component %q: %w", id, errors.ErrCycleIntroduced),
			"Builder", "Apply", "surface update cycle check")
	}

	for _, c := range update.Components {
		s.upsert(c)
	}
	return s, nil
}

func applyDataModelUpdate(s *Surface, update *envelope.DataModelUpdate) *Surface {
	s = ensure(s, update.SurfaceID)

	// Walk/create intermediate containers down to the target path.
	target := s.data
	for _, segment := range splitPath(update.TargetPath()) {
		target = target.EnsureChild(segment)
	}

	for i := range update.Contents {
		content := &update.Contents[i]
		value, ok := content.Value()
		if !ok {
			// No variant populated: nothing to write for this key.
			continue
		}
		target.Set(content.Key, value)
	}
	return s
}

// splitPath normalizes a slash path into its non-empty segments.
func splitPath(path string) []string {
	var segments []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}
	return segments
}

// findCycle detects a cycle in the child graph using iterative DFS with
// three-color marking. Edges to undeclared ids are ignored; the producer is
// trusted on reference existence, and dangling references degrade at render
// time instead.
func findCycle(children map[string][]string) (string, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(children))

	var visit func(id string) (string, bool)
	visit = func(id string) (string, bool) {
		color[id] = gray
		for _, child := range children[id] {
			if _, declared := children[child]; !declared {
				continue
			}
			switch color[child] {
			case gray:
				return child, true
			case white:
				if at, found := visit(child); found {
					return at, true
				}
			}
		}
		color[id] = black
		return "", false
	}

	for id := range children {
		if color[id] == white {
			if at, found := visit(id); found {
				return at, true
			}
		}
	}
	return "", false
}
