package websocket

import (
	"fmt"

	"github.com/c360/surfacestream/component"
	"github.com/c360/surfacestream/errors"
)

// Config holds WebSocket ingress configuration
type Config struct {
	HTTPPort        int    `json:"http_port"`
	Path            string `json:"path"`
	ReadBufferSize  int    `json:"read_buffer_size"`
	WriteBufferSize int    `json:"write_buffer_size"`
	MaxMessageSize  int64  `json:"max_message_size"`
	DataSubject     string `json:"data_subject"`   // validated records out
	StatusSubject   string `json:"status_subject"` // processing status frames forwarded to agents
}

// applyDefaults fills unset fields
func (c *Config) applyDefaults() {
	if c.Path == "" {
		c.Path = "/ws/agent"
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = 4096
	}
	if c.WriteBufferSize == 0 {
		c.WriteBufferSize = 4096
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 1024 * 1024
	}
	if c.DataSubject == "" {
		c.DataSubject = "surface.events"
	}
	if c.StatusSubject == "" {
		c.StatusSubject = "surface.status"
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

// configSchema describes the ingress configuration surface
var configSchema = component.ConfigSchema{
	Properties: map[string]component.PropertySchema{
		"http_port": {
			Type:        "int",
			Description: "HTTP port the WebSocket endpoint listens on",
		},
		"path": {
			Type:        "string",
			Description: "URL path for the WebSocket endpoint",
			Default:     "/ws/agent",
		},
		"read_buffer_size": {
			Type:        "int",
			Description: "WebSocket read buffer size in bytes",
			Default:     4096,
		},
		"write_buffer_size": {
			Type:        "int",
			Description: "WebSocket write buffer size in bytes",
			Default:     4096,
		},
		"max_message_size": {
			Type:        "int",
			Description: "Maximum inbound frame size in bytes",
			Default:     1024 * 1024,
		},
		"data_subject": {
			Type:        "string",
			Description: "NATS subject validated records are published to",
			Default:     "surface.events",
		},
		"status_subject": {
			Type:        "string",
			Description: "NATS subject of status frames forwarded back to agents",
			Default:     "surface.status",
		},
	},
	Required: []string{"http_port"},
}
