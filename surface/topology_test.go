package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/surfacestream/errors"
)

func TestRoots_UnreferencedIDsInRegistryOrder(t *testing.T) {
	// {A:[B], B:[], C:[]} -> roots {A, C}
	env := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[
		{"id":"A","component":{"Row":{"children":["B"]}}},
		{"id":"B","component":{"Text":{"text":"b"}}},
		{"id":"C","component":{"Text":{"text":"c"}}}
	]}}`)
	s, err := Apply(nil, env)
	require.NoError(t, err)

	roots, err := s.Roots()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, roots)
}

func TestRoots_EmptyRegistry(t *testing.T) {
	s := New("s1")
	roots, err := s.Roots()
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestRoots_NoDerivableRootIsTopologyError(t *testing.T) {
	// Build the mutual-reference registry without the fold (which would
	// reject it) to prove the deriver's backstop holds on its own.
	s := New("s1")
	for _, raw := range []string{
		`{"id":"A","component":{"Row":{"children":["B"]}}}`,
		`{"id":"B","component":{"Row":{"children":["A"]}}}`,
	} {
		s.upsert(decodeComponent(t, raw))
	}

	roots, err := s.Roots()
	require.Error(t, err)
	assert.Nil(t, roots)
	assert.True(t, errors.IsTopologyError(err))
	assert.ErrorIs(t, err, errors.ErrNoRenderableRoot)

	var te *errors.TopologyError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "s1", te.SurfaceID)
	assert.Equal(t, 2, te.Components)
}

func TestRoots_RecomputedAfterReplace(t *testing.T) {
	// Replacing the container that referenced B promotes B to a root
	first := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[
		{"id":"A","component":{"Column":{"children":["B"]}}},
		{"id":"B","component":{"Text":{"text":"b"}}}
	]}}`)
	replace := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[
		{"id":"A","component":{"Column":{"children":[]}}}
	]}}`)

	s, err := Apply(nil, first)
	require.NoError(t, err)
	roots, err := s.Roots()
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, roots)

	s, err = Apply(s, replace)
	require.NoError(t, err)
	roots, err = s.Roots()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, roots)
}
