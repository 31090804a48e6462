package websocket

import (
	"encoding/json"

	"github.com/c360/surfacestream/component"
	"github.com/c360/surfacestream/errors"
)

// CreateInput is the component factory for the WebSocket ingress
func CreateInput(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var cfg Config
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, errors.WrapInvalid(err, componentName, "CreateInput", "parse config")
		}
	}

	return NewInput(
		componentName,
		cfg,
		deps.NATSClient,
		deps.MetricsRegistry,
		deps.GetLoggerWithComponent(componentName),
	)
}

// Register registers the WebSocket ingress factory with the registry
func Register(registry *component.Registry) error {
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        componentName,
		Factory:     CreateInput,
		Schema:      configSchema,
		Type:        "input",
		Description: "WebSocket ingress for agent envelope streams",
		Version:     "1.0.0",
	})
}
