package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics for the surface pipeline
type Metrics struct {
	// Envelope pipeline metrics
	EnvelopesReceived  *prometheus.CounterVec
	EnvelopesApplied   *prometheus.CounterVec
	DecodeFailures     *prometheus.CounterVec
	SurfacesActive     prometheus.Gauge
	RendersTotal       *prometheus.CounterVec
	RenderDuration     *prometheus.HistogramVec
	BindingMisses      *prometheus.CounterVec
	MissingComponents  *prometheus.CounterVec
	UnsupportedKinds   *prometheus.CounterVec
	ErrorsTotal        *prometheus.CounterVec
	ProcessingDuration *prometheus.HistogramVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSRTT        prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		EnvelopesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "surfacestream",
				Subsystem: "envelopes",
				Name:      "received_total",
				Help:      "Total number of envelopes received off the wire",
			},
			[]string{"service"},
		),

		EnvelopesApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "surfacestream",
				Subsystem: "envelopes",
				Name:      "applied_total",
				Help:      "Total number of envelopes folded into surface state, by variant",
			},
			[]string{"service", "variant"},
		),

		DecodeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "surfacestream",
				Subsystem: "envelopes",
				Name:      "decode_failures_total",
				Help:      "Total number of records rejected by the decoder",
			},
			[]string{"service"},
		),

		SurfacesActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "surfacestream",
				Subsystem: "surfaces",
				Name:      "active",
				Help:      "Number of live surfaces in the state store",
			},
		),

		RendersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "surfacestream",
				Subsystem: "render",
				Name:      "total",
				Help:      "Total number of render passes, by status",
			},
			[]string{"service", "status"},
		),

		RenderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "surfacestream",
				Subsystem: "render",
				Name:      "duration_seconds",
				Help:      "Render pass duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service"},
		),

		BindingMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "surfacestream",
				Subsystem: "render",
				Name:      "binding_misses_total",
				Help:      "Total number of data binding paths that resolved to nothing",
			},
			[]string{"service"},
		),

		MissingComponents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "surfacestream",
				Subsystem: "render",
				Name:      "missing_components_total",
				Help:      "Total number of child references to unregistered component ids",
			},
			[]string{"service"},
		),

		UnsupportedKinds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "surfacestream",
				Subsystem: "render",
				Name:      "unsupported_kinds_total",
				Help:      "Total number of components rendered as unsupported placeholders",
			},
			[]string{"service", "kind"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "surfacestream",
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"service", "type"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "surfacestream",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Envelope processing duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "operation"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "surfacestream",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSRTT: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "surfacestream",
				Subsystem: "nats",
				Name:      "rtt_milliseconds",
				Help:      "NATS round-trip time in milliseconds",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "surfacestream",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordEnvelopeReceived increments the received envelope counter
func (c *Metrics) RecordEnvelopeReceived(service string) {
	c.EnvelopesReceived.WithLabelValues(service).Inc()
}

// RecordEnvelopeApplied increments the applied envelope counter for a variant
func (c *Metrics) RecordEnvelopeApplied(service, variant string) {
	c.EnvelopesApplied.WithLabelValues(service, variant).Inc()
}

// RecordDecodeFailure increments the decode failure counter
func (c *Metrics) RecordDecodeFailure(service string) {
	c.DecodeFailures.WithLabelValues(service).Inc()
}

// RecordSurfacesActive updates the live surface gauge
func (c *Metrics) RecordSurfacesActive(count int) {
	c.SurfacesActive.Set(float64(count))
}

// RecordRender increments the render counter and observes its duration
func (c *Metrics) RecordRender(service, status string, duration time.Duration) {
	c.RendersTotal.WithLabelValues(service, status).Inc()
	c.RenderDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordBindingMiss increments the binding miss counter
func (c *Metrics) RecordBindingMiss(service string) {
	c.BindingMisses.WithLabelValues(service).Inc()
}

// RecordMissingComponent increments the missing component counter
func (c *Metrics) RecordMissingComponent(service string) {
	c.MissingComponents.WithLabelValues(service).Inc()
}

// RecordUnsupportedKind increments the unsupported kind counter
func (c *Metrics) RecordUnsupportedKind(service, kind string) {
	c.UnsupportedKinds.WithLabelValues(service, kind).Inc()
}

// RecordError increments the error counter
func (c *Metrics) RecordError(service, errorType string) {
	c.ErrorsTotal.WithLabelValues(service, errorType).Inc()
}

// RecordProcessingDuration records envelope processing time
func (c *Metrics) RecordProcessingDuration(service, operation string, duration time.Duration) {
	c.ProcessingDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSRTT updates NATS round-trip time
func (c *Metrics) RecordNATSRTT(rtt time.Duration) {
	c.NATSRTT.Set(float64(rtt.Milliseconds()))
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}
