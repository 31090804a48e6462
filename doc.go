// Package surfacestream turns agent-emitted UI envelope streams into
// rendered surface trees delivered to connected clients.
//
// # Architecture
//
// SurfaceStream is a fold over an envelope stream. Agents push
// newline-delimited JSON envelopes (surface updates, data model updates,
// begin-rendering markers, deletions) over WebSocket; each envelope is
// validated at the edge, published to NATS, folded into per-surface state,
// and the resulting component tree is rendered and broadcast to viewers.
//
//	┌──────────────┐   surface.events   ┌──────────────┐
//	│  WebSocket   ├───────────────────→│   Surface    │
//	│   Ingress    │                    │  Processor   │
//	└──────────────┘                    └──────┬───────┘
//	                                           │ surface.rendered.<id>
//	                                           ↓
//	                                    ┌──────────────┐
//	                                    │  WebSocket   │
//	                                    │   Output     │──→ viewers
//	                                    └──────────────┘
//
// Surface state is the authoritative fold result: an ordered component
// registry, a data model, and a readiness flag that latches on the first
// begin-rendering envelope. Snapshots persist in a JetStream KV bucket so
// surfaces survive process restarts.
//
// # Packages
//
// Protocol:
//   - envelope: wire format, strict decoding, component catalog
//   - surface: fold semantics, data model, path resolution, state store
//   - render: component tree materialization with data binding
//
// Components:
//   - input/websocket: agent-facing WebSocket ingress
//   - processor/surfaceproc: envelope fold and render pipeline
//   - output/websocket: viewer-facing broadcast of rendered trees
//
// Infrastructure:
//   - component: component lifecycle, registry, discovery
//   - natsclient: NATS connection and JetStream KV management
//   - surfacestore: surface snapshot persistence
//   - config: configuration loading and validation
//   - metric: Prometheus metrics
//   - errors: structured error handling
//
// # Binary
//
// Build and run SurfaceStream:
//
//	go build -o bin/surfacestream ./cmd/surfacestream
//	./bin/surfacestream --config configs/example.yaml
package surfacestream
