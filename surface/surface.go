package surface

import (
	"encoding/json"
	"fmt"

	"github.com/c360/surfacestream/envelope"
)

// Surface is one UI tree plus its bound data instance: a flat component
// registry, a data model rooted at "/", and a readiness flag. A Surface is
// created lazily on the first envelope for its id, mutated by every
// subsequent envelope, and discarded on DeleteSurface or session end.
type Surface struct {
	id         string
	order      []string
	components map[string]envelope.Component
	data       *Container
	ready      bool
}

// New creates an empty surface for the given id.
func New(id string) *Surface {
	return &Surface{
		id:         id,
		components: make(map[string]envelope.Component),
		data:       NewContainer(),
	}
}

// ID returns the surface id.
func (s *Surface) ID() string {
	return s.id
}

// Ready reports whether BeginRendering has been applied. Readiness is
// monotonic until the surface is deleted.
func (s *Surface) Ready() bool {
	return s.ready
}

// Data returns the data model root container.
func (s *Surface) Data() *Container {
	return s.data
}

// Component returns the component registered under id.
func (s *Surface) Component(id string) (envelope.Component, bool) {
	c, ok := s.components[id]
	return c, ok
}

// Components returns the registry in insertion order. A replaced component
// keeps its original position.
func (s *Surface) Components() []envelope.Component {
	out := make([]envelope.Component, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.components[id])
	}
	return out
}

// Len returns the number of registered components.
func (s *Surface) Len() int {
	return len(s.order)
}

// upsert inserts or wholesale-replaces a component by id. Ids are unique per
// surface; replacement is total, never a merge.
func (s *Surface) upsert(c envelope.Component) {
	if _, exists := s.components[c.ID]; !exists {
		s.order = append(s.order, c.ID)
	}
	s.components[c.ID] = c
}

// Resolve resolves a binding path against this surface's data model.
func (s *Surface) Resolve(path string) any {
	return Resolve(path, s.data)
}

// Clone deep-copies the surface, giving renderers a stable snapshot that
// cannot interleave with an in-progress fold.
func (s *Surface) Clone() *Surface {
	if s == nil {
		return nil
	}
	out := &Surface{
		id:         s.id,
		order:      make([]string, len(s.order)),
		components: make(map[string]envelope.Component, len(s.components)),
		data:       s.data.Clone(),
		ready:      s.ready,
	}
	copy(out.order, s.order)
	for id, c := range s.components {
		out.components[id] = c
	}
	return out
}

// surfaceWire is the persistence shape for surface snapshots.
type surfaceWire struct {
	ID         string               `json:"id"`
	Components []envelope.Component `json:"components"`
	DataModel  *Container           `json:"dataModel"`
	Ready      bool                 `json:"ready"`
}

// MarshalJSON serializes the surface for snapshot storage, components in
// registry order.
func (s *Surface) MarshalJSON() ([]byte, error) {
	return json.Marshal(surfaceWire{
		ID:         s.id,
		Components: s.Components(),
		DataModel:  s.data,
		Ready:      s.ready,
	})
}

// UnmarshalJSON restores a surface from snapshot storage.
func (s *Surface) UnmarshalJSON(data []byte) error {
	var wire surfaceWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return fmt.Errorf("surface snapshot: %w", err)
	}
	if wire.ID == "" {
		return fmt.Errorf("surface snapshot: missing id")
	}

	restored := New(wire.ID)
	for _, c := range wire.Components {
		restored.upsert(c)
	}
	if wire.DataModel != nil {
		restored.data = wire.DataModel
	}
	restored.ready = wire.Ready

	*s = *restored
	return nil
}
