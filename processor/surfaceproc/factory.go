package surfaceproc

import (
	"encoding/json"

	"github.com/c360/surfacestream/component"
	"github.com/c360/surfacestream/errors"
)

// CreateProcessor is the component factory for the surface processor
func CreateProcessor(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var cfg Config
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, errors.WrapInvalid(err, componentName, "CreateProcessor", "parse config")
		}
	}

	return NewProcessor(
		componentName,
		cfg,
		deps.NATSClient,
		deps.Surfaces,
		deps.MetricsRegistry,
		deps.GetLoggerWithComponent(componentName),
	)
}

// Register registers the surface processor factory with the registry
func Register(registry *component.Registry) error {
	proc := &Processor{config: Config{}}
	proc.config.applyDefaults()

	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        componentName,
		Factory:     CreateProcessor,
		Schema:      proc.ConfigSchema(),
		Type:        "processor",
		Description: "Folds UI envelope streams into surface state and renders visual trees",
		Version:     "1.0.0",
	})
}
