package component

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes an instance declaration from YAML configuration.
// The component-specific config block is re-encoded as JSON so factories see
// the same raw bytes regardless of the configuration file format.
func (ic *InstanceConfig) UnmarshalYAML(value *yaml.Node) error {
	var wire struct {
		Name   string         `yaml:"name"`
		Type   string         `yaml:"type"`
		Config map[string]any `yaml:"config"`
	}
	if err := value.Decode(&wire); err != nil {
		return err
	}

	ic.Name = wire.Name
	ic.Type = wire.Type
	if wire.Config != nil {
		data, err := json.Marshal(wire.Config)
		if err != nil {
			return err
		}
		ic.Config = data
	}
	return nil
}
