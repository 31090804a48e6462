package surfaceproc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/surfacestream/render"
	"github.com/c360/surfacestream/surface"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePublisher records everything a processor publishes, by subject
type fakePublisher struct {
	published map[string][][]byte
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{published: make(map[string][][]byte)}
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte) error {
	f.published[subject] = append(f.published[subject], data)
	return nil
}

// lastStatus decodes the most recent frame on the status subject
func (f *fakePublisher) lastStatus(t *testing.T) StatusFrame {
	t.Helper()
	frames := f.published["surface.status"]
	require.NotEmpty(t, frames, "expected at least one status frame")
	var frame StatusFrame
	require.NoError(t, json.Unmarshal(frames[len(frames)-1], &frame))
	return frame
}

func newTestProcessor(t *testing.T) (*Processor, *fakePublisher) {
	t.Helper()
	pub := newFakePublisher()
	p := &Processor{
		name:   componentName,
		config: Config{},
		pub:    pub,
		store:  surface.NewStore(),
	}
	p.config.applyDefaults()
	p.logger = testLogger()
	p.dispatcher = render.NewDispatcher(p.logger, p)
	return p, pub
}

func TestHandleRecord_AppliedBeforeReady(t *testing.T) {
	p, pub := newTestProcessor(t)

	p.HandleRecord(context.Background(),
		[]byte(`{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":{"literalString":"Hi"}}}}]}}`))

	assert.Empty(t, pub.published["surface.rendered.s1"], "no render before beginRendering")
	frame := pub.lastStatus(t)
	assert.Equal(t, "applied", frame.Status)
	assert.Equal(t, "s1", frame.SurfaceID)
}

func TestHandleRecord_BeginRenderingPublishesTrees(t *testing.T) {
	p, pub := newTestProcessor(t)
	ctx := context.Background()

	p.HandleRecord(ctx, []byte(`{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":{"literalString":"Hi"}}}}]}}`))
	p.HandleRecord(ctx, []byte(`{"beginRendering":{"surfaceId":"s1"}}`))

	rendered := pub.published["surface.rendered.s1"]
	require.Len(t, rendered, 1)

	var result RenderedSurface
	require.NoError(t, json.Unmarshal(rendered[0], &result))
	assert.Equal(t, "s1", result.SurfaceID)
	require.Len(t, result.Roots, 1)
	assert.Equal(t, "Hi", result.Roots[0].Text)
	assert.Equal(t, "rendered", pub.lastStatus(t).Status)
}

func TestHandleRecord_ReadySurfaceReRendersOnUpdate(t *testing.T) {
	p, pub := newTestProcessor(t)
	ctx := context.Background()

	p.HandleRecord(ctx, []byte(`{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t1","component":{"Text":{"text":{"path":"/v"}}}}]}}`))
	p.HandleRecord(ctx, []byte(`{"beginRendering":{"surfaceId":"s1"}}`))
	p.HandleRecord(ctx, []byte(`{"dataModelUpdate":{"surfaceId":"s1","contents":[{"key":"v","valueNumber":42}]}}`))

	rendered := pub.published["surface.rendered.s1"]
	require.Len(t, rendered, 2, "data arriving after readiness triggers a new pass")

	var result RenderedSurface
	require.NoError(t, json.Unmarshal(rendered[1], &result))
	assert.Equal(t, "42", result.Roots[0].Text)
}

func TestHandleRecord_MalformedRecordEmitsErrorFrame(t *testing.T) {
	p, pub := newTestProcessor(t)

	p.HandleRecord(context.Background(), []byte(`{"surfaceUpdate":{"components":[]}}`))

	frame := pub.lastStatus(t)
	assert.Equal(t, "error", frame.Status)
	assert.NotEmpty(t, frame.Error)
	assert.Equal(t, int64(1), p.errorCount.Load())
	assert.Equal(t, 0, p.store.Len(), "nothing folded from a rejected record")
}

func TestHandleRecord_CyclicUpdateRejectedStreamContinues(t *testing.T) {
	p, pub := newTestProcessor(t)
	ctx := context.Background()

	p.HandleRecord(ctx, []byte(`{"surfaceUpdate":{"surfaceId":"s1","components":[
		{"id":"A","component":{"Row":{"children":["B"]}}},
		{"id":"B","component":{"Row":{"children":["A"]}}}
	]}}`))
	assert.Equal(t, "error", pub.lastStatus(t).Status)

	// Later records for the same surface still fold
	p.HandleRecord(ctx, []byte(`{"surfaceUpdate":{"surfaceId":"s1","components":[{"id":"t","component":{"Text":{"text":"ok"}}}]}}`))
	assert.Equal(t, "applied", pub.lastStatus(t).Status)
}

func TestHandleRecord_DeleteEmitsDeletedFrame(t *testing.T) {
	p, pub := newTestProcessor(t)
	ctx := context.Background()

	p.HandleRecord(ctx, []byte(`{"beginRendering":{"surfaceId":"s1"}}`))
	p.HandleRecord(ctx, []byte(`{"deleteSurface":{"surfaceId":"s1"}}`))

	assert.Equal(t, "deleted", pub.lastStatus(t).Status)
	assert.Equal(t, 0, p.store.Len())
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()
	assert.Equal(t, "surface.events", cfg.InputSubject)
	assert.Equal(t, "surface.rendered", cfg.RenderSubject)
	assert.Equal(t, "surface.status", cfg.StatusSubject)
}
