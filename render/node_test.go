package render

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalTree(t *testing.T, n *Node) map[string]any {
	t.Helper()
	raw, err := json.Marshal(n)
	require.NoError(t, err)
	var tree map[string]any
	require.NoError(t, json.Unmarshal(raw, &tree))
	return tree
}

func TestNodeJSON_TableWithMissingSourceKeepsEmptyArrays(t *testing.T) {
	// A table whose data binding resolves to nothing still renders as a
	// table: clients need "rows" and "columns" present (empty), not absent.
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[
			{"id":"tbl","component":{"Table":{"dataPath":"/missing"}}}
		]}}`,
	)

	trees, err := NewDispatcher(nil, nil).RenderSurface(s)
	require.NoError(t, err)
	require.Len(t, trees, 1)

	tree := marshalTree(t, trees[0])
	rows, ok := tree["rows"].([]any)
	require.True(t, ok, "rows must be a JSON array, got %T", tree["rows"])
	assert.Empty(t, rows)
	columns, ok := tree["columns"].([]any)
	require.True(t, ok, "columns must be a JSON array, got %T", tree["columns"])
	assert.Empty(t, columns)
}

func TestNodeJSON_ChartWithEmptyDataKeepsRows(t *testing.T) {
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[
			{"id":"ch","component":{"Chart":{"config":{"type":"bar","dataPath":"/series"}}}}
		]}}`,
		`{"dataModelUpdate":{"surfaceId":"s1","contents":[{"key":"series","valueArray":[]}]}}`,
	)

	trees, err := NewDispatcher(nil, nil).RenderSurface(s)
	require.NoError(t, err)
	require.Len(t, trees, 1)

	tree := marshalTree(t, trees[0])
	rows, ok := tree["rows"].([]any)
	require.True(t, ok, "rows must be a JSON array, got %T", tree["rows"])
	assert.Empty(t, rows)
}

func TestNodeJSON_NonDataKindsOmitRowsAndColumns(t *testing.T) {
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":"Hi"}}}]}}`,
	)

	trees, err := NewDispatcher(nil, nil).RenderSurface(s)
	require.NoError(t, err)
	require.Len(t, trees, 1)

	tree := marshalTree(t, trees[0])
	assert.NotContains(t, tree, "rows")
	assert.NotContains(t, tree, "columns")
}
