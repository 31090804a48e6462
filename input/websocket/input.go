// Package websocket provides the WebSocket ingress component that accepts
// agent connections streaming newline-delimited envelope records.
package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/surfacestream/component"
	"github.com/c360/surfacestream/envelope"
	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/natsclient"
)

const componentName = "websocket-input"

// Frame is the typed message the ingress sends back to agents: acks for
// accepted records, errors for rejected ones, and forwarded processing
// status from downstream.
type Frame struct {
	Type      string          `json:"type"` // "ack", "error", "status"
	SurfaceID string          `json:"surfaceId,omitempty"`
	Error     string          `json:"error,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// publisher abstracts message publication for testability
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Input accepts agent WebSocket connections and publishes their validated
// envelope records to NATS.
type Input struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	pub        publisher
	logger     *slog.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader
	clients    map[string]*websocket.Conn
	clientsMu  sync.RWMutex
	writeMu    sync.Mutex // gorilla conns allow one concurrent writer

	shutdown     chan struct{}
	shutdownOnce sync.Once
	started      atomic.Bool
	startTime    time.Time
	lifecycleMu  sync.Mutex
	wg           sync.WaitGroup

	recordsReceived  atomic.Int64
	recordsPublished atomic.Int64
	errorCount       atomic.Int64
	connectionsTotal atomic.Int64
	lastActivity     atomic.Value // stores time.Time

	metrics *Metrics
}

// Ensure Input implements all required interfaces
var (
	_ component.LifecycleComponent = (*Input)(nil)
	_ component.Discoverable       = (*Input)(nil)
)

// Metrics holds Prometheus metrics for the ingress
type Metrics struct {
	recordsReceived   prometheus.Counter
	recordsPublished  *prometheus.CounterVec
	recordsRejected   *prometheus.CounterVec
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter
	errorsTotal       *prometheus.CounterVec
}

// newMetrics creates and registers ingress metrics. Registration failures
// (duplicate collectors) are logged and the component keeps running; metrics
// are never load-bearing.
func newMetrics(registry *metric.MetricsRegistry, name string, logger *slog.Logger) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		recordsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surfacestream",
			Subsystem: "websocket_input",
			Name:      "records_received_total",
			Help:      "Total envelope records received from agents",
		}),
		recordsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surfacestream",
			Subsystem: "websocket_input",
			Name:      "records_published_total",
			Help:      "Total records published to NATS",
		}, []string{"component", "subject"}),
		recordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surfacestream",
			Subsystem: "websocket_input",
			Name:      "records_rejected_total",
			Help:      "Total records rejected at the ingress",
		}, []string{"component", "reason"}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "surfacestream",
			Subsystem: "websocket_input",
			Name:      "connections_active",
			Help:      "Number of active agent connections",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surfacestream",
			Subsystem: "websocket_input",
			Name:      "connections_total",
			Help:      "Total number of agent connections",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surfacestream",
			Subsystem: "websocket_input",
			Name:      "errors_total",
			Help:      "Total errors by type",
		}, []string{"component", "type"}),
	}

	for metricName, err := range map[string]error{
		"records_received":   registry.RegisterCounter(name, "records_received", m.recordsReceived),
		"records_published":  registry.RegisterCounterVec(name, "records_published", m.recordsPublished),
		"records_rejected":   registry.RegisterCounterVec(name, "records_rejected", m.recordsRejected),
		"connections_active": registry.RegisterGauge(name, "connections_active", m.connectionsActive),
		"connections_total":  registry.RegisterCounter(name, "connections_total", m.connectionsTotal),
		"errors_total":       registry.RegisterCounterVec(name, "errors_total", m.errorsTotal),
	} {
		if err != nil {
			logger.Warn("Metric registration failed", "metric", metricName, "error", err)
		}
	}

	return m
}

// NewInput creates a new WebSocket ingress component
func NewInput(
	name string,
	cfg Config,
	natsClient *natsclient.Client,
	metricsRegistry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*Input, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	in := &Input{
		name:       name,
		config:     cfg,
		natsClient: natsClient,
		pub:        natsClient,
		logger:     logger.With("component", name),
		clients:    make(map[string]*websocket.Conn),
		shutdown:   make(chan struct{}),
		metrics:    newMetrics(metricsRegistry, name, logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
	}
	return in, nil
}

// Meta returns component metadata
func (i *Input) Meta() component.Metadata {
	return component.Metadata{
		Name:        i.name,
		Type:        "input",
		Description: "WebSocket ingress for agent envelope streams",
		Version:     "1.0.0",
	}
}

// InputPorts returns the input ports (none; data arrives over WebSocket)
func (i *Input) InputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "status",
			Direction:   component.DirectionInput,
			Subject:     i.config.StatusSubject,
			Required:    false,
			Description: "Processing status frames forwarded back to agents",
		},
	}
}

// OutputPorts returns the output ports
func (i *Input) OutputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "records",
			Direction:   component.DirectionOutput,
			Subject:     i.config.DataSubject,
			Required:    true,
			Description: "Validated envelope records from agents",
		},
	}
}

// ConfigSchema returns the configuration schema
func (i *Input) ConfigSchema() component.ConfigSchema {
	return configSchema
}

// Health returns current health status
func (i *Input) Health() component.HealthStatus {
	started := i.started.Load()
	uptime := time.Duration(0)
	if started && !i.startTime.IsZero() {
		uptime = time.Since(i.startTime)
	}
	return component.HealthStatus{
		Healthy:    started,
		LastCheck:  time.Now(),
		ErrorCount: int(i.errorCount.Load()),
		Uptime:     uptime,
	}
}

// DataFlow returns current data flow metrics
func (i *Input) DataFlow() component.FlowMetrics {
	records := i.recordsReceived.Load()

	var perSecond float64
	if !i.startTime.IsZero() {
		uptime := time.Since(i.startTime).Seconds()
		if uptime > 0 {
			perSecond = float64(records) / uptime
		}
	}

	lastAct := time.Time{}
	if val := i.lastActivity.Load(); val != nil {
		lastAct = val.(time.Time)
	}

	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		LastActivity:      lastAct,
	}
}

// Initialize prepares the ingress (no-op; setup happens in NewInput)
func (i *Input) Initialize() error {
	return nil
}

// Start begins serving the WebSocket endpoint and forwarding status frames
func (i *Input) Start(ctx context.Context) error {
	i.lifecycleMu.Lock()
	defer i.lifecycleMu.Unlock()

	if i.started.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, componentName, "Start", "check started state")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(i.config.Path, func(w http.ResponseWriter, r *http.Request) {
		i.handleUpgrade(ctx, w, r)
	})

	i.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", i.config.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		if err := i.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			i.trackError("server_error")
			i.logger.Error("WebSocket server failed", "error", err)
		}
	}()

	// Forward downstream processing status to every connected agent
	if i.natsClient != nil && i.config.StatusSubject != "" {
		if _, err := i.natsClient.Subscribe(i.config.StatusSubject, i.forwardStatus); err != nil {
			return errors.Wrap(err, componentName, "Start", "subscribe to status subject")
		}
	}

	i.startTime = time.Now()
	i.started.Store(true)
	i.logger.Info("WebSocket ingress started",
		"port", i.config.HTTPPort,
		"path", i.config.Path,
		"data_subject", i.config.DataSubject)
	return nil
}

// Stop shuts down the endpoint and closes agent connections
func (i *Input) Stop(timeout time.Duration) error {
	i.lifecycleMu.Lock()
	defer i.lifecycleMu.Unlock()

	if !i.started.Load() {
		return nil
	}

	i.shutdownOnce.Do(func() {
		close(i.shutdown)
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if i.httpServer != nil {
		_ = i.httpServer.Shutdown(ctx)
	}

	i.clientsMu.Lock()
	for _, conn := range i.clients {
		_ = conn.Close()
	}
	i.clients = make(map[string]*websocket.Conn)
	i.clientsMu.Unlock()

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(
			fmt.Errorf("shutdown timeout after %v", timeout),
			componentName, "Stop", "wait for goroutines")
	}

	i.started.Store(false)
	return nil
}

// handleUpgrade upgrades an HTTP request to a WebSocket connection
func (i *Input) handleUpgrade(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := i.upgrader.Upgrade(w, r, nil)
	if err != nil {
		i.trackError("upgrade_error")
		return
	}

	clientID := uuid.NewString()
	i.connectionsTotal.Add(1)
	conn.SetReadLimit(i.config.MaxMessageSize)

	i.clientsMu.Lock()
	i.clients[clientID] = conn
	i.clientsMu.Unlock()

	if i.metrics != nil {
		i.metrics.connectionsActive.Inc()
		i.metrics.connectionsTotal.Inc()
	}
	i.logger.Info("Agent connected", "client_id", clientID, "remote", r.RemoteAddr)

	i.wg.Add(1)
	go i.readLoop(ctx, clientID, conn)
}

// readLoop consumes frames from one agent connection until it closes
func (i *Input) readLoop(ctx context.Context, clientID string, conn *websocket.Conn) {
	defer i.wg.Done()
	defer func() {
		_ = conn.Close()
		i.clientsMu.Lock()
		delete(i.clients, clientID)
		i.clientsMu.Unlock()
		if i.metrics != nil {
			i.metrics.connectionsActive.Dec()
		}
		i.logger.Info("Agent disconnected", "client_id", clientID)
	}()

	for {
		select {
		case <-i.shutdown:
			return
		case <-ctx.Done():
			return
		default:
			_ = conn.SetReadDeadline(time.Now().Add(time.Second))
			_, frame, err := conn.ReadMessage()
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue // re-check shutdown
				}
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					i.trackError("read_error")
				}
				return
			}

			i.lastActivity.Store(time.Now())
			i.handleFrame(ctx, conn, frame)
		}
	}
}

// handleFrame splits one WebSocket frame into newline-delimited records,
// validates each, and publishes the accepted ones. The agent gets an ack or
// error frame per record.
func (i *Input) handleFrame(ctx context.Context, conn *websocket.Conn, frame []byte) {
	for _, line := range bytes.Split(frame, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		i.recordsReceived.Add(1)
		if i.metrics != nil {
			i.metrics.recordsReceived.Inc()
		}

		surfaceID, err := i.ingestRecord(ctx, line)
		if err != nil {
			i.sendFrame(conn, Frame{Type: "error", SurfaceID: surfaceID, Error: err.Error()})
			continue
		}
		i.sendFrame(conn, Frame{Type: "ack", SurfaceID: surfaceID})
	}
}

// ingestRecord validates one record and publishes it. Validation happens at
// the edge so producers learn about malformed records immediately instead of
// from the processor's status stream.
func (i *Input) ingestRecord(ctx context.Context, record []byte) (string, error) {
	env, err := envelope.ParseRecord(record)
	if err != nil {
		i.trackError("validation")
		if i.metrics != nil {
			i.metrics.recordsRejected.WithLabelValues(i.name, "malformed").Inc()
		}
		return "", err
	}

	if err := i.pub.Publish(ctx, i.config.DataSubject, record); err != nil {
		i.trackError("publish")
		if i.metrics != nil {
			i.metrics.recordsRejected.WithLabelValues(i.name, "publish_failed").Inc()
		}
		return env.SurfaceID(), err
	}

	i.recordsPublished.Add(1)
	if i.metrics != nil {
		i.metrics.recordsPublished.WithLabelValues(i.name, i.config.DataSubject).Inc()
	}
	return env.SurfaceID(), nil
}

// forwardStatus relays a processing status frame to every connected agent
func (i *Input) forwardStatus(msg *nats.Msg) {
	frame := Frame{
		Type:      "status",
		Payload:   json.RawMessage(msg.Data),
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}

	i.clientsMu.RLock()
	conns := make([]*websocket.Conn, 0, len(i.clients))
	for _, conn := range i.clients {
		conns = append(conns, conn)
	}
	i.clientsMu.RUnlock()

	for _, conn := range conns {
		i.writeMu.Lock()
		_ = conn.WriteMessage(websocket.TextMessage, data)
		i.writeMu.Unlock()
	}
}

// sendFrame writes one frame back to an agent; best effort
func (i *Input) sendFrame(conn *websocket.Conn, frame Frame) {
	if conn == nil {
		return
	}
	frame.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	i.writeMu.Lock()
	_ = conn.WriteMessage(websocket.TextMessage, data)
	i.writeMu.Unlock()
}

// trackError increments error counters
func (i *Input) trackError(errorType string) {
	i.errorCount.Add(1)
	if i.metrics != nil {
		i.metrics.errorsTotal.WithLabelValues(i.name, errorType).Inc()
	}
}
