package websocket

import (
	"encoding/json"

	"github.com/c360/surfacestream/component"
	"github.com/c360/surfacestream/errors"
)

// CreateOutput is the component factory for the WebSocket output
func CreateOutput(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var cfg Config
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, errors.WrapInvalid(err, componentName, "CreateOutput", "parse config")
		}
	}

	return NewOutput(
		componentName,
		cfg,
		deps.NATSClient,
		deps.MetricsRegistry,
		deps.GetLoggerWithComponent(componentName),
	)
}

// Register registers the WebSocket output factory with the registry
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        componentName,
		Factory:     CreateOutput,
		Schema:      configSchema,
		Type:        "output",
		Description: "WebSocket broadcast of rendered surface trees to UI clients",
		Version:     "1.0.0",
	})
}
