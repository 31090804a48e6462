package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ApplyAndSnapshot(t *testing.T) {
	st := NewStore()

	_, deleted, err := st.Apply(mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":{"literalString":"Hi"}}}}]}}`))
	require.NoError(t, err)
	assert.False(t, deleted)

	snap, ok := st.Snapshot("s1")
	require.True(t, ok)
	assert.Equal(t, 1, snap.Len())
}

func TestStore_SnapshotIsolatedFromLaterFolds(t *testing.T) {
	// Snapshots are deep copies: later envelopes must not mutate them
	st := NewStore()
	_, _, err := st.Apply(mustEnvelope(t, `{"dataModelUpdate":{"surfaceId":"s1","contents":[{"key":"v","valueNumber":1}]}}`))
	require.NoError(t, err)

	snap, ok := st.Snapshot("s1")
	require.True(t, ok)

	_, _, err = st.Apply(mustEnvelope(t, `{"dataModelUpdate":{"surfaceId":"s1","contents":[{"key":"v","valueNumber":2}]}}`))
	require.NoError(t, err)

	assert.Equal(t, 1.0, snap.Resolve("/v"), "snapshot must keep the state at copy time")

	fresh, _ := st.Snapshot("s1")
	assert.Equal(t, 2.0, fresh.Resolve("/v"))
}

func TestStore_DeleteThenRecreateStartsFresh(t *testing.T) {
	st := NewStore()
	_, _, err := st.Apply(mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":"x"}}}]}}`))
	require.NoError(t, err)
	_, _, err = st.Apply(mustEnvelope(t, `{"beginRendering":{"surfaceId":"s1"}}`))
	require.NoError(t, err)

	s, deleted, err := st.Apply(mustEnvelope(t, `{"deleteSurface":{"surfaceId":"s1"}}`))
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Nil(t, s)

	_, ok := st.Snapshot("s1")
	assert.False(t, ok)

	// New updates for the same id build a fresh surface, not a continuation.
	recreated, deleted, err := st.Apply(mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"n1","component":{"Text":{"text":"y"}}}]}}`))
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, 1, recreated.Len())
	assert.False(t, recreated.Ready())
	_, hasOld := recreated.Component("t1")
	assert.False(t, hasOld)
}

func TestStore_IndependentSurfaces(t *testing.T) {
	st := NewStore()
	_, _, err := st.Apply(mustEnvelope(t, `{"beginRendering":{"surfaceId":"a"}}`))
	require.NoError(t, err)
	_, _, err = st.Apply(mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"b","components":[{"id":"t","component":{"Text":{"text":"x"}}}]}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, st.IDs())
	assert.Equal(t, 2, st.Len())

	st.Delete("a")
	assert.Equal(t, []string{"b"}, st.IDs())
}

func TestStore_RejectedUpdateLeavesStateIntact(t *testing.T) {
	st := NewStore()
	_, _, err := st.Apply(mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"A","component":{"Row":{"children":["B"]}}},{"id":"B","component":{"Text":{"text":"b"}}}]}}`))
	require.NoError(t, err)

	_, _, err = st.Apply(mustEnvelope(t, `{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"B","component":{"Row":{"children":["A"]}}}]}}`))
	require.Error(t, err)

	snap, ok := st.Snapshot("s1")
	require.True(t, ok)
	b, _ := snap.Component("B")
	assert.Nil(t, b.ChildIDs())
}
