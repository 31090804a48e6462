package websocket

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/surfacestream/metric"
)

func TestSurfaceIDFromSubject(t *testing.T) {
	assert.Equal(t, "s1", SurfaceIDFromSubject("surface.rendered", "surface.rendered.s1"))
	// Surface ids may contain dots; only the prefix is stripped
	assert.Equal(t, "session.42", SurfaceIDFromSubject("surface.rendered", "surface.rendered.session.42"))
}

func TestNewOutput_DuplicateMetricRegistrationTolerated(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewOutput("egress", Config{HTTPPort: 18091}, nil, registry, logger)
	require.NoError(t, err)

	// A second instance under the same name collides on every collector;
	// construction still succeeds with the failures logged.
	second, err := NewOutput("egress", Config{HTTPPort: 18092}, nil, registry, logger)
	require.NoError(t, err)
	require.NotNil(t, second.metrics)
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{HTTPPort: 8081}
	cfg.applyDefaults()
	assert.NoError(t, cfg.validate())
	assert.Equal(t, "/ws/surfaces", cfg.Path)
	assert.Equal(t, "surface.rendered", cfg.RenderSubject)
}

func TestConfig_PortValidation(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()
	assert.Error(t, cfg.validate())
}
