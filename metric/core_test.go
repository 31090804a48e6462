package metric

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NATSHealthRecorders(t *testing.T) {
	m := NewMetrics()

	// Connection status flips the gauge between 0 and 1
	m.RecordNATSStatus(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSConnected))
	m.RecordNATSStatus(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.NATSConnected))

	// Each reconnect handler invocation counts once and restores the gauge
	m.RecordNATSStatus(true)
	m.RecordNATSReconnect()
	m.RecordNATSReconnect()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSConnected))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NATSReconnects))

	m.RecordNATSRTT(3 * time.Millisecond)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.NATSRTT))
}

func TestMetrics_SurfacesActiveGauge(t *testing.T) {
	m := NewMetrics()

	m.RecordSurfacesActive(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.SurfacesActive))
	m.RecordSurfacesActive(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SurfacesActive))
}

func TestMetricsRegistry_CoreMetricsRegistered(t *testing.T) {
	r := NewMetricsRegistry()

	// Core collectors are registered at construction; a second registration
	// of the same key must be rejected
	err := r.RegisterGauge("core", "nats_connected", r.CoreMetrics().NATSConnected)
	assert.Error(t, err)
}
