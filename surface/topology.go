package surface

import (
	"github.com/c360/surfacestream/envelope"
	"github.com/c360/surfacestream/errors"
)

// RootIDs computes render entry points from a flat registry: the union of all
// ids listed as children is subtracted, and whatever remains is returned in
// registry order. The producer never declares roots; they are always derived.
func RootIDs(components []envelope.Component) []string {
	referenced := make(map[string]struct{})
	for i := range components {
		for _, child := range components[i].ChildIDs() {
			referenced[child] = struct{}{}
		}
	}

	var roots []string
	for i := range components {
		if _, isChild := referenced[components[i].ID]; !isChild {
			roots = append(roots, components[i].ID)
		}
	}
	return roots
}

// Roots derives this surface's render roots, recomputed fresh per render
// pass. A non-empty registry with no derivable root (every component listed
// as another's child) yields a TopologyError: rendering that surface must
// abort rather than recurse indefinitely.
func (s *Surface) Roots() ([]string, error) {
	roots := RootIDs(s.Components())
	if len(roots) == 0 && s.Len() > 0 {
		return nil, &errors.TopologyError{
			SurfaceID:  s.id,
			Components: s.Len(),
		}
	}
	return roots, nil
}
