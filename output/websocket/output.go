// Package websocket provides the WebSocket output component that broadcasts
// rendered surface trees to connected UI clients.
package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/surfacestream/component"
	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/natsclient"
)

const componentName = "websocket-output"

// Config holds WebSocket output configuration
type Config struct {
	HTTPPort        int    `json:"http_port"`
	Path            string `json:"path"`
	WriteBufferSize int    `json:"write_buffer_size"`
	RenderSubject   string `json:"render_subject"` // rendered trees in, wildcard suffix added
}

// applyDefaults fills unset fields
func (c *Config) applyDefaults() {
	if c.Path == "" {
		c.Path = "/ws/surfaces"
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = 4096
	}
	if c.RenderSubject == "" {
		c.RenderSubject = "surface.rendered"
	}
}

// validate checks the configuration
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return errors.WrapInvalid(
			fmt.Errorf("http_port %d outside valid range 1-65535", c.HTTPPort),
			componentName, "validate", "port range validation")
	}
	return nil
}

// client is one connected UI consumer. An empty surfaceID subscribes to all
// surfaces; otherwise only matching trees are delivered.
type client struct {
	conn      *websocket.Conn
	surfaceID string
	writeMu   sync.Mutex
}

// Output broadcasts rendered surface trees to WebSocket clients
type Output struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader
	clients    map[string]*client
	clientsMu  sync.RWMutex

	shutdown     chan struct{}
	shutdownOnce sync.Once
	started      atomic.Bool
	startTime    time.Time
	lifecycleMu  sync.Mutex
	wg           sync.WaitGroup

	treesDelivered   atomic.Int64
	errorCount       atomic.Int64
	connectionsTotal atomic.Int64
	lastActivity     atomic.Value // stores time.Time

	metrics *Metrics
}

// Ensure Output implements all required interfaces
var (
	_ component.LifecycleComponent = (*Output)(nil)
	_ component.Discoverable       = (*Output)(nil)
)

// Metrics holds Prometheus metrics for the output
type Metrics struct {
	treesDelivered    *prometheus.CounterVec
	deliveryFailures  *prometheus.CounterVec
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter
}

// newMetrics creates and registers output metrics. Registration failures
// (duplicate collectors) are logged and the component keeps running; metrics
// are never load-bearing.
func newMetrics(registry *metric.MetricsRegistry, name string, logger *slog.Logger) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		treesDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surfacestream",
			Subsystem: "websocket_output",
			Name:      "trees_delivered_total",
			Help:      "Total rendered trees delivered to clients",
		}, []string{"component"}),
		deliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surfacestream",
			Subsystem: "websocket_output",
			Name:      "delivery_failures_total",
			Help:      "Total failed deliveries to clients",
		}, []string{"component"}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "surfacestream",
			Subsystem: "websocket_output",
			Name:      "connections_active",
			Help:      "Number of active client connections",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surfacestream",
			Subsystem: "websocket_output",
			Name:      "connections_total",
			Help:      "Total number of client connections",
		}),
	}

	for metricName, err := range map[string]error{
		"trees_delivered":    registry.RegisterCounterVec(name, "trees_delivered", m.treesDelivered),
		"delivery_failures":  registry.RegisterCounterVec(name, "delivery_failures", m.deliveryFailures),
		"connections_active": registry.RegisterGauge(name, "connections_active", m.connectionsActive),
		"connections_total":  registry.RegisterCounter(name, "connections_total", m.connectionsTotal),
	} {
		if err != nil {
			logger.Warn("Metric registration failed", "metric", metricName, "error", err)
		}
	}

	return m
}

// NewOutput creates a new WebSocket output component
func NewOutput(
	name string,
	cfg Config,
	natsClient *natsclient.Client,
	metricsRegistry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*Output, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	out := &Output{
		name:       name,
		config:     cfg,
		natsClient: natsClient,
		logger:     logger.With("component", name),
		clients:    make(map[string]*client),
		shutdown:   make(chan struct{}),
		metrics:    newMetrics(metricsRegistry, name, logger),
		upgrader: websocket.Upgrader{
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
	}
	return out, nil
}

// Meta returns component metadata
func (o *Output) Meta() component.Metadata {
	return component.Metadata{
		Name:        o.name,
		Type:        "output",
		Description: "WebSocket broadcast of rendered surface trees to UI clients",
		Version:     "1.0.0",
	}
}

// InputPorts returns the input ports
func (o *Output) InputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "rendered",
			Direction:   component.DirectionInput,
			Subject:     o.config.RenderSubject + ".>",
			Required:    true,
			Description: "Rendered surface trees to broadcast",
		},
	}
}

// OutputPorts returns the output ports (none; data leaves over WebSocket)
func (o *Output) OutputPorts() []component.Port {
	return []component.Port{}
}

// ConfigSchema returns the configuration schema
func (o *Output) ConfigSchema() component.ConfigSchema {
	return configSchema
}

// Health returns current health status
func (o *Output) Health() component.HealthStatus {
	started := o.started.Load()
	uptime := time.Duration(0)
	if started && !o.startTime.IsZero() {
		uptime = time.Since(o.startTime)
	}
	return component.HealthStatus{
		Healthy:    started,
		LastCheck:  time.Now(),
		ErrorCount: int(o.errorCount.Load()),
		Uptime:     uptime,
	}
}

// DataFlow returns current data flow metrics
func (o *Output) DataFlow() component.FlowMetrics {
	delivered := o.treesDelivered.Load()

	var perSecond float64
	if !o.startTime.IsZero() {
		uptime := time.Since(o.startTime).Seconds()
		if uptime > 0 {
			perSecond = float64(delivered) / uptime
		}
	}

	lastAct := time.Time{}
	if val := o.lastActivity.Load(); val != nil {
		lastAct = val.(time.Time)
	}

	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		LastActivity:      lastAct,
	}
}

// Initialize prepares the output (no-op; setup happens in NewOutput)
func (o *Output) Initialize() error {
	return nil
}

// Start begins serving the client endpoint and relaying rendered trees
func (o *Output) Start(ctx context.Context) error {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()

	if o.started.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, componentName, "Start", "check started state")
	}
	if o.natsClient == nil {
		return errors.WrapFatal(errors.ErrNoConnection, componentName, "Start", "NATS client required")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(o.config.Path, func(w http.ResponseWriter, r *http.Request) {
		o.handleUpgrade(ctx, w, r)
	})

	o.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", o.config.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			o.errorCount.Add(1)
			o.logger.Error("WebSocket server failed", "error", err)
		}
	}()

	if _, err := o.natsClient.Subscribe(o.config.RenderSubject+".>", o.relayRendered); err != nil {
		return errors.Wrap(err, componentName, "Start", "subscribe to rendered subject")
	}

	o.startTime = time.Now()
	o.started.Store(true)
	o.logger.Info("WebSocket output started",
		"port", o.config.HTTPPort,
		"path", o.config.Path,
		"render_subject", o.config.RenderSubject)
	return nil
}

// Stop shuts down the endpoint and closes client connections
func (o *Output) Stop(timeout time.Duration) error {
	o.lifecycleMu.Lock()
	defer o.lifecycleMu.Unlock()

	if !o.started.Load() {
		return nil
	}

	o.shutdownOnce.Do(func() {
		close(o.shutdown)
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if o.httpServer != nil {
		_ = o.httpServer.Shutdown(ctx)
	}

	o.clientsMu.Lock()
	for _, c := range o.clients {
		_ = c.conn.Close()
	}
	o.clients = make(map[string]*client)
	o.clientsMu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(
			fmt.Errorf("shutdown timeout after %v", timeout),
			componentName, "Stop", "wait for goroutines")
	}

	o.started.Store(false)
	return nil
}

// handleUpgrade upgrades a client request. A surfaceId query parameter
// restricts delivery to that surface.
func (o *Output) handleUpgrade(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := o.upgrader.Upgrade(w, r, nil)
	if err != nil {
		o.errorCount.Add(1)
		return
	}

	clientID := uuid.NewString()
	o.connectionsTotal.Add(1)
	c := &client{
		conn:      conn,
		surfaceID: r.URL.Query().Get("surfaceId"),
	}

	o.clientsMu.Lock()
	o.clients[clientID] = c
	o.clientsMu.Unlock()

	if o.metrics != nil {
		o.metrics.connectionsActive.Inc()
		o.metrics.connectionsTotal.Inc()
	}
	o.logger.Info("Viewer connected",
		"client_id", clientID,
		"surface_id", c.surfaceID,
		"remote", r.RemoteAddr)

	o.wg.Add(1)
	go o.readLoop(ctx, clientID, conn)
}

// readLoop drains client frames (viewers only read) and detects disconnects
func (o *Output) readLoop(ctx context.Context, clientID string, conn *websocket.Conn) {
	defer o.wg.Done()
	defer func() {
		_ = conn.Close()
		o.clientsMu.Lock()
		delete(o.clients, clientID)
		o.clientsMu.Unlock()
		if o.metrics != nil {
			o.metrics.connectionsActive.Dec()
		}
		o.logger.Info("Viewer disconnected", "client_id", clientID)
	}()

	for {
		select {
		case <-o.shutdown:
			return
		case <-ctx.Done():
			return
		default:
			_ = conn.SetReadDeadline(time.Now().Add(time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				return
			}
		}
	}
}

// relayRendered forwards one rendered tree to every matching client
func (o *Output) relayRendered(msg *nats.Msg) {
	surfaceID := SurfaceIDFromSubject(o.config.RenderSubject, msg.Subject)
	o.lastActivity.Store(time.Now())

	o.clientsMu.RLock()
	targets := make([]*client, 0, len(o.clients))
	for _, c := range o.clients {
		if c.surfaceID == "" || c.surfaceID == surfaceID {
			targets = append(targets, c)
		}
	}
	o.clientsMu.RUnlock()

	for _, c := range targets {
		c.writeMu.Lock()
		err := c.conn.WriteMessage(websocket.TextMessage, msg.Data)
		c.writeMu.Unlock()
		if err != nil {
			o.errorCount.Add(1)
			if o.metrics != nil {
				o.metrics.deliveryFailures.WithLabelValues(o.name).Inc()
			}
			continue
		}
		o.treesDelivered.Add(1)
		if o.metrics != nil {
			o.metrics.treesDelivered.WithLabelValues(o.name).Inc()
		}
	}
}

// SurfaceIDFromSubject extracts the surface id suffix from a rendered-tree
// subject. Surface ids may themselves contain dots, so only the prefix is
// stripped.
func SurfaceIDFromSubject(prefix, subject string) string {
	return strings.TrimPrefix(subject, prefix+".")
}

// configSchema describes the output configuration surface
var configSchema = component.ConfigSchema{
	Properties: map[string]component.PropertySchema{
		"http_port": {
			Type:        "int",
			Description: "HTTP port the WebSocket endpoint listens on",
		},
		"path": {
			Type:        "string",
			Description: "URL path for the WebSocket endpoint",
			Default:     "/ws/surfaces",
		},
		"write_buffer_size": {
			Type:        "int",
			Description: "WebSocket write buffer size in bytes",
			Default:     4096,
		},
		"render_subject": {
			Type:        "string",
			Description: "NATS subject prefix carrying rendered trees",
			Default:     "surface.rendered",
		},
	},
	Required: []string{"http_port"},
}
