package surface

import (
	"sort"
	"sync"

	"github.com/c360/surfacestream/envelope"
)

// Store holds the live surfaces of a session and serializes writers. The
// fold itself is not safe under concurrent writers on the same surface, so
// Apply takes the write lock; readers take deep-copy snapshots and may render
// on any goroutine.
type Store struct {
	mu       sync.RWMutex
	surfaces map[string]*Surface
}

// NewStore creates an empty surface store.
func NewStore() *Store {
	return &Store{surfaces: make(map[string]*Surface)}
}

// Apply folds one envelope into the addressed surface, creating it lazily on
// its first envelope and evicting it on DeleteSurface. Returns the surface
// after application (nil when deleted) and whether the envelope deleted it.
//
// An aborted source stream simply stops calling Apply: everything folded so
// far stays applied, and a partial, ready surface remains valid for
// rendering. No rollback.
func (st *Store) Apply(env *envelope.Envelope) (*Surface, bool, error) {
	id := env.SurfaceID()

	st.mu.Lock()
	defer st.mu.Unlock()

	next, err := Apply(st.surfaces[id], env)
	if err != nil {
		return nil, false, err
	}
	if next == nil {
		delete(st.surfaces, id)
		return nil, true, nil
	}
	st.surfaces[id] = next
	return next, false, nil
}

// Snapshot returns a deep copy of the surface for rendering.
func (st *Store) Snapshot(id string) (*Surface, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.surfaces[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Restore installs a surface recovered from persistence, replacing any live
// surface with the same id.
func (st *Store) Restore(s *Surface) {
	if s == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.surfaces[s.ID()] = s
}

// Delete evicts a surface, typically at session end.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.surfaces, id)
}

// IDs returns the ids of all live surfaces, sorted for stable output.
func (st *Store) IDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	ids := make([]string, 0, len(st.surfaces))
	for id := range st.surfaces {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live surfaces.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.surfaces)
}
