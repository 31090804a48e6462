// Package surfaceproc implements the surface processor component: it consumes
// envelope records from NATS, folds them into surface state, and publishes
// rendered visual trees once a surface is ready.
package surfaceproc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/surfacestream/component"
	"github.com/c360/surfacestream/envelope"
	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/natsclient"
	"github.com/c360/surfacestream/render"
	"github.com/c360/surfacestream/surface"
	"github.com/c360/surfacestream/surfacestore"
)

const componentName = "surface-processor"

// Config holds surface processor configuration
type Config struct {
	InputSubject  string `json:"input_subject"`  // envelope records in
	RenderSubject string `json:"render_subject"` // rendered trees out, suffixed ".<surfaceId>"
	StatusSubject string `json:"status_subject"` // processing status frames out
	QueueGroup    string `json:"queue_group"`    // optional queue group for scale-out
}

// applyDefaults fills unset fields with wire defaults
func (c *Config) applyDefaults() {
	if c.InputSubject == "" {
		c.InputSubject = "surface.events"
	}
	if c.RenderSubject == "" {
		c.RenderSubject = "surface.rendered"
	}
	if c.StatusSubject == "" {
		c.StatusSubject = "surface.status"
	}
}

// RenderedSurface is the published result of one render pass
type RenderedSurface struct {
	SurfaceID  string         `json:"surfaceId"`
	Roots      []*render.Node `json:"roots"`
	RenderedAt time.Time      `json:"renderedAt"`
}

// StatusFrame reports per-record processing outcomes on the status subject.
// Agents connected through the WebSocket ingress receive these as feedback.
type StatusFrame struct {
	SurfaceID string `json:"surfaceId,omitempty"`
	Status    string `json:"status"` // "applied", "rendered", "deleted", "error"
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// publisher abstracts message publication for testability
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Processor folds envelope records into surface state and renders
type Processor struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	pub        publisher
	store      *surface.Store
	dispatcher *render.Dispatcher
	snapshots  *surfacestore.SnapshotStore
	logger     *slog.Logger
	metrics    *metric.Metrics

	sub *nats.Subscription

	started     atomic.Bool
	startTime   time.Time
	lifecycleMu sync.Mutex

	received     atomic.Int64
	errorCount   atomic.Int64
	lastActivity atomic.Value // stores time.Time
}

// Ensure Processor implements the required interfaces
var (
	_ component.LifecycleComponent = (*Processor)(nil)
	_ render.Observer              = (*Processor)(nil)
)

// NewProcessor creates a surface processor
func NewProcessor(
	name string,
	cfg Config,
	natsClient *natsclient.Client,
	store *surface.Store,
	metricsRegistry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*Processor, error) {
	if store == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("surface store required"),
			componentName, "NewProcessor", "validate dependencies")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()

	p := &Processor{
		name:       name,
		config:     cfg,
		natsClient: natsClient,
		pub:        natsClient,
		store:      store,
		logger:     logger.With("component", name),
	}
	if metricsRegistry != nil {
		p.metrics = metricsRegistry.CoreMetrics()
	}
	p.dispatcher = render.NewDispatcher(p.logger, p)
	return p, nil
}

// SetSnapshotStore enables snapshot persistence. Must be called before Start.
func (p *Processor) SetSnapshotStore(snapshots *surfacestore.SnapshotStore) {
	p.snapshots = snapshots
}

// Meta returns component metadata
func (p *Processor) Meta() component.Metadata {
	return component.Metadata{
		Name:        p.name,
		Type:        "processor",
		Description: "Folds UI envelope streams into surface state and renders visual trees",
		Version:     "1.0.0",
	}
}

// InputPorts returns the input ports
func (p *Processor) InputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "envelopes",
			Direction:   component.DirectionInput,
			Subject:     p.config.InputSubject,
			Required:    true,
			Description: "Envelope records to fold into surface state",
		},
	}
}

// OutputPorts returns the output ports
func (p *Processor) OutputPorts() []component.Port {
	return []component.Port{
		{
			Name:        "rendered",
			Direction:   component.DirectionOutput,
			Subject:     p.config.RenderSubject,
			Required:    true,
			Description: "Rendered visual trees, one message per render pass",
		},
		{
			Name:        "status",
			Direction:   component.DirectionOutput,
			Subject:     p.config.StatusSubject,
			Required:    false,
			Description: "Per-record processing status frames",
		},
	}
}

// ConfigSchema returns the configuration schema
func (p *Processor) ConfigSchema() component.ConfigSchema {
	return component.ConfigSchema{
		Properties: map[string]component.PropertySchema{
			"input_subject": {
				Type:        "string",
				Description: "NATS subject carrying envelope records",
				Default:     "surface.events",
			},
			"render_subject": {
				Type:        "string",
				Description: "NATS subject prefix for rendered trees",
				Default:     "surface.rendered",
			},
			"status_subject": {
				Type:        "string",
				Description: "NATS subject for processing status frames",
				Default:     "surface.status",
			},
			"queue_group": {
				Type:        "string",
				Description: "Queue group for load-balanced consumption",
			},
		},
	}
}

// Health returns current health status
func (p *Processor) Health() component.HealthStatus {
	started := p.started.Load()
	uptime := time.Duration(0)
	if started && !p.startTime.IsZero() {
		uptime = time.Since(p.startTime)
	}
	return component.HealthStatus{
		Healthy:    started,
		LastCheck:  time.Now(),
		ErrorCount: int(p.errorCount.Load()),
		Uptime:     uptime,
	}
}

// DataFlow returns current data flow metrics
func (p *Processor) DataFlow() component.FlowMetrics {
	messages := p.received.Load()

	var messagesPerSecond float64
	if !p.startTime.IsZero() {
		uptime := time.Since(p.startTime).Seconds()
		if uptime > 0 {
			messagesPerSecond = float64(messages) / uptime
		}
	}

	lastAct := time.Time{}
	if val := p.lastActivity.Load(); val != nil {
		lastAct = val.(time.Time)
	}

	return component.FlowMetrics{
		MessagesPerSecond: messagesPerSecond,
		LastActivity:      lastAct,
	}
}

// Initialize prepares the processor (no-op; setup happens in NewProcessor)
func (p *Processor) Initialize() error {
	return nil
}

// Start subscribes to the input subject and begins folding
func (p *Processor) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.started.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, componentName, "Start", "check started state")
	}
	if p.natsClient == nil {
		return errors.WrapFatal(errors.ErrNoConnection, componentName, "Start", "NATS client required")
	}

	handler := func(msg *nats.Msg) {
		p.HandleRecord(ctx, msg.Data)
	}

	var sub *nats.Subscription
	var err error
	if p.config.QueueGroup != "" {
		sub, err = p.natsClient.QueueSubscribe(p.config.InputSubject, p.config.QueueGroup, handler)
	} else {
		sub, err = p.natsClient.Subscribe(p.config.InputSubject, handler)
	}
	if err != nil {
		return errors.Wrap(err, componentName, "Start", "subscribe to input subject")
	}

	p.sub = sub
	p.startTime = time.Now()
	p.started.Store(true)
	p.logger.Info("Surface processor started",
		"input_subject", p.config.InputSubject,
		"render_subject", p.config.RenderSubject)
	return nil
}

// Stop unsubscribes and stops processing
func (p *Processor) Stop(_ time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if !p.started.Load() {
		return nil
	}

	if p.sub != nil {
		_ = p.sub.Drain()
		p.sub = nil
	}

	p.started.Store(false)
	p.logger.Info("Surface processor stopped")
	return nil
}

// HandleRecord processes one wire record end to end: decode, fold, persist,
// and render when the surface is ready. Malformed records and rejected
// updates produce status frames instead of stopping the stream.
func (p *Processor) HandleRecord(ctx context.Context, record []byte) {
	p.received.Add(1)
	p.lastActivity.Store(time.Now())
	if p.metrics != nil {
		p.metrics.RecordEnvelopeReceived(p.name)
	}

	env, err := envelope.ParseRecord(record)
	if err != nil {
		p.errorCount.Add(1)
		if p.metrics != nil {
			p.metrics.RecordDecodeFailure(p.name)
		}
		p.logger.Warn("Rejected malformed record", "error", err)
		p.publishStatus(ctx, StatusFrame{Status: "error", Error: err.Error()})
		return
	}

	start := time.Now()
	s, deleted, err := p.store.Apply(env)
	if err != nil {
		p.errorCount.Add(1)
		if p.metrics != nil {
			p.metrics.RecordError(p.name, "apply")
		}
		p.logger.Warn("Rejected surface update",
			"surface_id", env.SurfaceID(),
			"variant", env.Variant().String(),
			"error", err)
		p.publishStatus(ctx, StatusFrame{
			SurfaceID: env.SurfaceID(),
			Status:    "error",
			Error:     err.Error(),
		})
		return
	}

	if p.metrics != nil {
		p.metrics.RecordEnvelopeApplied(p.name, env.Variant().String())
		p.metrics.RecordProcessingDuration(p.name, "apply", time.Since(start))
		p.metrics.RecordSurfacesActive(p.store.Len())
	}

	if deleted {
		p.evictSnapshot(ctx, env.SurfaceID())
		p.publishStatus(ctx, StatusFrame{SurfaceID: env.SurfaceID(), Status: "deleted"})
		return
	}

	p.persistSnapshot(ctx, env.SurfaceID())

	// Render on BeginRendering and on every update to an already-ready
	// surface, so late data and structural changes reach clients.
	if s.Ready() {
		p.renderAndPublish(ctx, env.SurfaceID())
	} else {
		p.publishStatus(ctx, StatusFrame{SurfaceID: env.SurfaceID(), Status: "applied"})
	}
}

// renderAndPublish renders a snapshot of the surface and publishes the trees
func (p *Processor) renderAndPublish(ctx context.Context, surfaceID string) {
	snap, ok := p.store.Snapshot(surfaceID)
	if !ok {
		return
	}

	start := time.Now()
	trees, err := p.dispatcher.RenderSurface(snap)
	if err != nil {
		p.errorCount.Add(1)
		if p.metrics != nil {
			p.metrics.RecordRender(p.name, "failed", time.Since(start))
		}
		p.publishStatus(ctx, StatusFrame{SurfaceID: surfaceID, Status: "error", Error: err.Error()})
		return
	}

	rendered := RenderedSurface{
		SurfaceID:  surfaceID,
		Roots:      trees,
		RenderedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(rendered)
	if err != nil {
		p.errorCount.Add(1)
		if p.metrics != nil {
			p.metrics.RecordError(p.name, "marshal")
		}
		p.logger.Error("Failed to marshal rendered surface", "surface_id", surfaceID, "error", err)
		return
	}

	subject := p.config.RenderSubject + "." + surfaceID
	if err := p.pub.Publish(ctx, subject, data); err != nil {
		p.errorCount.Add(1)
		if p.metrics != nil {
			p.metrics.RecordError(p.name, "publish")
		}
		p.logger.Error("Failed to publish rendered surface", "subject", subject, "error", err)
		return
	}

	if p.metrics != nil {
		p.metrics.RecordRender(p.name, "ok", time.Since(start))
	}
	p.publishStatus(ctx, StatusFrame{SurfaceID: surfaceID, Status: "rendered"})
}

// persistSnapshot saves the surface to the snapshot store when configured
func (p *Processor) persistSnapshot(ctx context.Context, surfaceID string) {
	if p.snapshots == nil {
		return
	}
	snap, ok := p.store.Snapshot(surfaceID)
	if !ok {
		return
	}
	if err := p.snapshots.Save(ctx, snap); err != nil {
		// Persistence failures are transient; the live fold stays authoritative
		p.logger.Warn("Snapshot persistence failed", "surface_id", surfaceID, "error", err)
		if p.metrics != nil {
			p.metrics.RecordError(p.name, "snapshot")
		}
	}
}

// evictSnapshot removes the persisted snapshot after DeleteSurface
func (p *Processor) evictSnapshot(ctx context.Context, surfaceID string) {
	if p.snapshots == nil {
		return
	}
	if err := p.snapshots.Remove(ctx, surfaceID); err != nil {
		p.logger.Warn("Snapshot removal failed", "surface_id", surfaceID, "error", err)
	}
}

// publishStatus emits a status frame; failures are logged, never propagated
func (p *Processor) publishStatus(ctx context.Context, frame StatusFrame) {
	frame.Timestamp = time.Now().UnixMilli()
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if err := p.pub.Publish(ctx, p.config.StatusSubject, data); err != nil {
		p.logger.Debug("Status frame publish failed", "error", err)
	}
}

// render.Observer implementation: degradations surface as metrics

// MissingComponent records a dangling child reference
func (p *Processor) MissingComponent(_, _ string) {
	if p.metrics != nil {
		p.metrics.RecordMissingComponent(p.name)
	}
}

// BindingMiss records a data binding that resolved to nothing
func (p *Processor) BindingMiss(_, _ string) {
	if p.metrics != nil {
		p.metrics.RecordBindingMiss(p.name)
	}
}

// UnsupportedKind records a component rendered as a placeholder
func (p *Processor) UnsupportedKind(_, kind string) {
	if p.metrics != nil {
		p.metrics.RecordUnsupportedKind(p.name, kind)
	}
}
