package component

import (
	"log/slog"

	"github.com/c360/surfacestream/metric"
	"github.com/c360/surfacestream/natsclient"
	"github.com/c360/surfacestream/surface"
)

// Dependencies provides all external dependencies needed by components.
// Factories receive this structure rather than individual fields so that new
// dependencies can be added without breaking every factory signature.
type Dependencies struct {
	NATSClient      *natsclient.Client      // NATS client for messaging
	Surfaces        *surface.Store          // Shared surface state store
	MetricsRegistry *metric.MetricsRegistry // Metrics registry for Prometheus (can be nil)
	Logger          *slog.Logger            // Structured logger (can be nil, defaults to slog.Default())
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}
