package surface

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/surfacestream/envelope"
	"github.com/c360/surfacestream/errors"
)

// mustEnvelope parses one wire record for fold tests.
func mustEnvelope(t *testing.T, raw string) *envelope.Envelope {
	t.Helper()
	env, err := envelope.ParseRecord([]byte(raw))
	require.NoError(t, err)
	return env
}

// decodeComponent parses one adjacency-list component entry.
func decodeComponent(t *testing.T, raw string) envelope.Component {
	t.Helper()
	var c envelope.Component
	require.NoError(t, json.Unmarshal([]byte(raw), &c))
	return c
}

func TestApply_CreatesSurfaceLazily(t *testing.T) {
	env := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":{"literalString":"Hi"}}}}]}}`)

	s, err := Apply(nil, env)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "s1", s.ID())
	assert.Equal(t, 1, s.Len())
	assert.False(t, s.Ready())
}

func TestApply_RepeatedUpdateIsTotalReplacement(t *testing.T) {
	// Last write per id wins; replacement is wholesale, never a merge
	first := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":{"literalString":"old"},"usage_hint":"title"}}}]}}`)
	second := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":{"literalString":"new"}}}}]}}`)

	s, err := Apply(nil, first)
	require.NoError(t, err)
	s, err = Apply(s, second)
	require.NoError(t, err)

	require.Equal(t, 1, s.Len())
	comp, ok := s.Component("t1")
	require.True(t, ok)
	props := comp.Props.(*envelope.TextProps)
	assert.Equal(t, "new", props.Text.Literal)
	assert.Empty(t, props.UsageHint, "replacement must not merge old properties")
}

func TestApply_OrderSensitivity(t *testing.T) {
	// Reordering two updates for the same id changes the survivor
	a := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":{"literalString":"A"}}}}]}}`)
	b := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":{"literalString":"B"}}}}]}}`)

	s1, err := Apply(nil, a)
	require.NoError(t, err)
	s1, err = Apply(s1, b)
	require.NoError(t, err)

	s2, err := Apply(nil, b)
	require.NoError(t, err)
	s2, err = Apply(s2, a)
	require.NoError(t, err)

	c1, _ := s1.Component("t1")
	c2, _ := s2.Component("t1")
	assert.Equal(t, "B", c1.Props.(*envelope.TextProps).Text.Literal)
	assert.Equal(t, "A", c2.Props.(*envelope.TextProps).Text.Literal)
}

func TestApply_BeginRenderingIdempotent(t *testing.T) {
	env := mustEnvelope(t, `{"beginRendering":{"surfaceId":"s1"}}`)

	s, err := Apply(nil, env)
	require.NoError(t, err)
	assert.True(t, s.Ready())

	s, err = Apply(s, env)
	require.NoError(t, err)
	assert.True(t, s.Ready(), "applying twice equals applying once")
}

func TestApply_DeleteSignalsRemoval(t *testing.T) {
	create := mustEnvelope(t, `{"beginRendering":{"surfaceId":"s1"}}`)
	del := mustEnvelope(t, `{"deleteSurface":{"surfaceId":"s1"}}`)

	s, err := Apply(nil, create)
	require.NoError(t, err)

	s, err = Apply(s, del)
	require.NoError(t, err)
	assert.Nil(t, s, "nil state signals removal to the caller")

	// Further envelopes recreate a fresh surface, not a continuation.
	fresh, err := Apply(s, create)
	require.NoError(t, err)
	require.NotNil(t, fresh)
	assert.Equal(t, 0, fresh.Len())
	assert.True(t, fresh.Ready())
}

func TestApply_DataModelIntermediateContainersOnDemand(t *testing.T) {
	env := mustEnvelope(t, `{"dataModelUpdate":{"surfaceId":"s1","path":"/a/b/c","contents":[{"key":"leaf","valueNumber":7}]}}`)

	s, err := Apply(nil, env)
	require.NoError(t, err)
	assert.Equal(t, 7.0, s.Resolve("/a/b/c/leaf"))
}

func TestApply_DataModelDefaultsToRoot(t *testing.T) {
	env := mustEnvelope(t, `{"dataModelUpdate":{"surfaceId":"s1","contents":[{"key":"name","valueString":"ok"}]}}`)

	s, err := Apply(nil, env)
	require.NoError(t, err)
	assert.Equal(t, "ok", s.Resolve("/name"))
}

func TestApply_DataModelAllValueVariants(t *testing.T) {
	env := mustEnvelope(t, `{"dataModelUpdate":{"surfaceId":"s1","contents":[
		{"key":"s","valueString":"x"},
		{"key":"n","valueNumber":1.5},
		{"key":"b","valueBoolean":true},
		{"key":"a","valueArray":[{"v":1}]}
	]}}`)

	s, err := Apply(nil, env)
	require.NoError(t, err)
	assert.Equal(t, "x", s.Resolve("/s"))
	assert.Equal(t, 1.5, s.Resolve("/n"))
	assert.Equal(t, true, s.Resolve("/b"))
	rows, ok := s.Resolve("/a").([]any)
	require.True(t, ok)
	assert.Len(t, rows, 1)
}

func TestApply_CycleIntroducingUpdateRejected(t *testing.T) {
	// A and B each list the other as a child: rejected at fold time
	env := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[
		{"id":"A","component":{"Row":{"children":["B"]}}},
		{"id":"B","component":{"Row":{"children":["A"]}}}
	]}}`)

	s, err := Apply(nil, env)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCycleIntroduced)
	assert.True(t, errors.IsInvalid(err))
	// State before the offending update is preserved.
	require.NotNil(t, s)
	assert.Equal(t, 0, s.Len())
}

func TestApply_CycleAcrossUpdatesRejected(t *testing.T) {
	first := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"A","component":{"Column":{"children":["B"]}}},{"id":"B","component":{"Text":{"text":"x"}}}]}}`)
	second := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"B","component":{"Column":{"children":["A"]}}}]}}`)

	s, err := Apply(nil, first)
	require.NoError(t, err)

	s, err = Apply(s, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrCycleIntroduced)

	// The replacement was not committed.
	b, _ := s.Component("B")
	assert.Equal(t, envelope.KindText, b.Kind)
}

func TestApply_DanglingChildReferenceAccepted(t *testing.T) {
	// Child references to undeclared ids are trusted at fold time and
	// degrade at render time instead.
	env := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"row","component":{"Row":{"children":["ghost"]}}}]}}`)

	s, err := Apply(nil, env)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestApply_RegistryOrderPreservedOnReplace(t *testing.T) {
	first := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[
		{"id":"a","component":{"Text":{"text":"1"}}},
		{"id":"b","component":{"Text":{"text":"2"}}}
	]}}`)
	replace := mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"a","component":{"Text":{"text":"1x"}}}]}}`)

	s, err := Apply(nil, first)
	require.NoError(t, err)
	s, err = Apply(s, replace)
	require.NoError(t, err)

	comps := s.Components()
	require.Len(t, comps, 2)
	assert.Equal(t, "a", comps[0].ID, "replaced component keeps its position")
	assert.Equal(t, "b", comps[1].ID)
}
