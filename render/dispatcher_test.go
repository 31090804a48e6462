package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/surfacestream/envelope"
	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/surface"
)

// recordingObserver captures degradation callbacks for assertions.
type recordingObserver struct {
	missing     []string
	bindingMiss []string
	unsupported []string
}

func (r *recordingObserver) MissingComponent(surfaceID, componentID string) {
	r.missing = append(r.missing, componentID)
}

func (r *recordingObserver) BindingMiss(componentID, path string) {
	r.bindingMiss = append(r.bindingMiss, componentID+":"+path)
}

func (r *recordingObserver) UnsupportedKind(componentID, kind string) {
	r.unsupported = append(r.unsupported, componentID+":"+kind)
}

// foldStream applies an ordered sequence of wire records into one surface.
func foldStream(t *testing.T, records ...string) *surface.Surface {
	t.Helper()
	var s *surface.Surface
	for _, raw := range records {
		env, err := envelope.ParseRecord([]byte(raw))
		require.NoError(t, err)
		s, err = surface.Apply(s, env)
		require.NoError(t, err)
	}
	return s
}

func TestRenderSurface_MinimalLiteralText(t *testing.T) {
	// surfaceUpdate + beginRendering is the smallest renderable stream
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":{"literalString":"Hi"}}}}]}}`,
		`{"beginRendering":{"surfaceId":"s1"}}`,
	)
	require.True(t, s.Ready())

	trees, err := NewDispatcher(nil, nil).RenderSurface(s)
	require.NoError(t, err)
	require.Len(t, trees, 1)
	assert.Equal(t, "t1", trees[0].ID)
	assert.Equal(t, "Text", trees[0].Kind)
	assert.Equal(t, "Hi", trees[0].Text)
}

func TestRenderSurface_BoundTextFormatsNumber(t *testing.T) {
	// 1000 arrives as float64 off the wire but must render as "1000"
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":{"path":"/kpis/revenue"}}}}]}}`,
		`{"dataModelUpdate":{"surfaceId":"s1","path":"/kpis","contents":[{"key":"revenue","valueNumber":1000}]}}`,
	)

	trees, err := NewDispatcher(nil, nil).RenderSurface(s)
	require.NoError(t, err)
	require.Len(t, trees, 1)
	assert.Equal(t, "1000", trees[0].Text)
}

func TestRenderSurface_ContainerNesting(t *testing.T) {
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[
			{"id":"card","component":{"Card":{"title":{"literalString":"KPIs"},"children":["row"]}}},
			{"id":"row","component":{"Row":{"children":["a","b"]}}},
			{"id":"a","component":{"Text":{"text":"left"}}},
			{"id":"b","component":{"Button":{"text":{"literalString":"Go"},"actionId":"submit"}}}
		]}}`,
	)

	trees, err := NewDispatcher(nil, nil).RenderSurface(s)
	require.NoError(t, err)
	require.Len(t, trees, 1)

	card := trees[0]
	assert.Equal(t, "Card", card.Kind)
	assert.Equal(t, "KPIs", card.Title)
	require.Len(t, card.Children, 1)

	row := card.Children[0]
	require.Len(t, row.Children, 2)
	assert.Equal(t, "left", row.Children[0].Text)
	assert.Equal(t, "Go", row.Children[1].Text)
	assert.Equal(t, "submit", row.Children[1].ActionID)
}

func TestRender_MissingChildDegradesInPlace(t *testing.T) {
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[
			{"id":"col","component":{"Column":{"children":["ok","ghost"]}}},
			{"id":"ok","component":{"Text":{"text":"fine"}}}
		]}}`,
	)

	obs := &recordingObserver{}
	trees, err := NewDispatcher(nil, obs).RenderSurface(s)
	require.NoError(t, err)
	require.Len(t, trees, 1)
	require.Len(t, trees[0].Children, 2)

	assert.Equal(t, "fine", trees[0].Children[0].Text, "siblings render unaffected")
	ghost := trees[0].Children[1]
	assert.True(t, ghost.Missing)
	assert.Equal(t, "ghost", ghost.ID)
	assert.Equal(t, []string{"ghost"}, obs.missing)
}

func TestRender_UnknownKindBecomesPlaceholder(t *testing.T) {
	// Unknown kinds survive decode with their tag; rendering degrades to a
	// placeholder node without taking down siblings.
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[
			{"id":"row","component":{"Row":{"children":["sl","t"]}}},
			{"id":"sl","component":{"Slider":{"min":0,"max":10}}},
			{"id":"t","component":{"Text":{"text":"still here"}}}
		]}}`,
	)

	obs := &recordingObserver{}
	trees, err := NewDispatcher(nil, obs).RenderSurface(s)
	require.NoError(t, err)
	require.Len(t, trees, 1)

	slider := trees[0].Children[0]
	assert.True(t, slider.Unsupported)
	assert.Equal(t, "Slider", slider.Kind, "original tag is preserved for diagnostics")
	assert.Equal(t, "still here", trees[0].Children[1].Text)
	assert.Equal(t, []string{"sl:Slider"}, obs.unsupported)
}

func TestRender_BindingMissSubstitutesEmpty(t *testing.T) {
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":{"path":"/nope"}}}}]}}`,
	)

	obs := &recordingObserver{}
	trees, err := NewDispatcher(nil, obs).RenderSurface(s)
	require.NoError(t, err)
	assert.Equal(t, "", trees[0].Text)
	assert.Equal(t, []string{"t1:/nope"}, obs.bindingMiss)
}

func TestRender_TableRowsWithDataWrapper(t *testing.T) {
	// Producers wrap row arrays as {data: [...]}: the dispatcher unwraps it
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"tbl","component":{"Table":{"columns":[{"key":"name","label":"Name"}],"dataPath":"/sales"}}}]}}`,
		`{"dataModelUpdate":{"surfaceId":"s1","path":"/sales","contents":[{"key":"data","valueArray":[{"name":"a"},{"name":"b"}]}]}}`,
	)

	trees, err := NewDispatcher(nil, nil).RenderSurface(s)
	require.NoError(t, err)

	tbl := trees[0]
	require.Len(t, tbl.Columns, 1)
	assert.Equal(t, "name", tbl.Columns[0].Key)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, map[string]any{"name": "a"}, tbl.Rows[0])
}

func TestRender_TableNonArraySourceYieldsEmptyRows(t *testing.T) {
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"tbl","component":{"Table":{"dataPath":"/scalar"}}}]}}`,
		`{"dataModelUpdate":{"surfaceId":"s1","contents":[{"key":"scalar","valueString":"oops"}]}}`,
	)

	trees, err := NewDispatcher(nil, nil).RenderSurface(s)
	require.NoError(t, err)
	require.NotNil(t, trees[0].Rows, "rows default to empty, never nil")
	assert.Empty(t, trees[0].Rows)
}

func TestRender_TableMissingSourceYieldsEmptyRows(t *testing.T) {
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"tbl","component":{"Table":{"dataPath":"/absent"}}}]}}`,
	)

	obs := &recordingObserver{}
	trees, err := NewDispatcher(nil, obs).RenderSurface(s)
	require.NoError(t, err)
	require.NotNil(t, trees[0].Rows)
	assert.Empty(t, trees[0].Rows)
	assert.Equal(t, []string{"tbl:/absent"}, obs.bindingMiss)
}

func TestRender_ChartConfigAndRows(t *testing.T) {
	// Legacy dataBinding spelling normalizes into the chart's data path
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"ch","component":{"Chart":{"title":{"literalString":"Revenue"},"config":{"type":"bar","xKey":"month","yKey":"total","dataBinding":"/series"}}}}]}}`,
		`{"dataModelUpdate":{"surfaceId":"s1","contents":[{"key":"series","valueArray":[{"month":"Jan","total":10}]}]}}`,
	)

	trees, err := NewDispatcher(nil, nil).RenderSurface(s)
	require.NoError(t, err)

	ch := trees[0]
	assert.Equal(t, "Revenue", ch.Title)
	require.NotNil(t, ch.Chart)
	assert.Equal(t, "bar", ch.Chart.Type)
	assert.Equal(t, "month", ch.Chart.XKey)
	assert.Equal(t, "total", ch.Chart.YKey)
	require.Len(t, ch.Rows, 1)
}

func TestRender_FormWithInputs(t *testing.T) {
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[
			{"id":"f","component":{"Form":{"submitActionId":"save","children":["name","when"]}}},
			{"id":"name","component":{"TextField":{"label":{"literalString":"Name"},"bindingPath":"/form/name","placeholder":{"literalString":"Jane"}}}},
			{"id":"when","component":{"DateTimeInput":{"label":{"literalString":"When"},"bindingPath":"/form/when","mode":"date"}}}
		]}}`,
		`{"dataModelUpdate":{"surfaceId":"s1","path":"/form","contents":[{"key":"name","valueString":"Ada"}]}}`,
	)

	obs := &recordingObserver{}
	trees, err := NewDispatcher(nil, obs).RenderSurface(s)
	require.NoError(t, err)

	form := trees[0]
	assert.Equal(t, "Form", form.Kind)
	assert.Equal(t, "save", form.SubmitActionID)
	require.Len(t, form.Children, 2)

	name := form.Children[0]
	assert.Equal(t, "Name", name.Label)
	assert.Equal(t, "Jane", name.Placeholder)
	assert.Equal(t, "/form/name", name.BindingPath)
	assert.Equal(t, "Ada", name.Value)

	when := form.Children[1]
	assert.Equal(t, "date", when.Mode)
	assert.Equal(t, "", when.Value, "unset input binding defaults to empty")
	assert.Equal(t, []string{"when:/form/when"}, obs.bindingMiss)
}

func TestRenderSurface_NoDerivableRootFails(t *testing.T) {
	// Built below the fold's cycle check to exercise the deriver's backstop.
	var restored surface.Surface
	raw := `{"id":"s1","components":[
		{"id":"A","component":{"Row":{"children":["B"]}}},
		{"id":"B","component":{"Row":{"children":["A"]}}}
	],"ready":true}`
	require.NoError(t, restored.UnmarshalJSON([]byte(raw)))

	trees, err := NewDispatcher(nil, nil).RenderSurface(&restored)
	require.Error(t, err)
	assert.Nil(t, trees)
	assert.True(t, errors.IsTopologyError(err))
}

func TestRenderSurface_MultipleRootsInRegistryOrder(t *testing.T) {
	s := foldStream(t,
		`{"surfaceUpdate":{"surfaceId":"s1","components":[
			{"id":"z","component":{"Text":{"text":"first by insertion"}}},
			{"id":"a","component":{"Text":{"text":"second"}}}
		]}}`,
	)

	trees, err := NewDispatcher(nil, nil).RenderSurface(s)
	require.NoError(t, err)
	require.Len(t, trees, 2)
	assert.Equal(t, "z", trees[0].ID, "roots come out in registry order, not sorted")
	assert.Equal(t, "a", trees[1].ID)
}
