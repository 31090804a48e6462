// Package componentregistry registers the built-in SurfaceStream components.
package componentregistry

import (
	"errors"

	"github.com/c360/surfacestream/component"
	pkgerrors "github.com/c360/surfacestream/errors"
	wsinput "github.com/c360/surfacestream/input/websocket"
	wsoutput "github.com/c360/surfacestream/output/websocket"
	"github.com/c360/surfacestream/processor/surfaceproc"
)

// Register registers all built-in component factories with the provided
// registry:
//
//   - WebSocket input (agent envelope ingress)
//   - Surface processor (envelope fold and render pipeline)
//   - WebSocket output (rendered tree broadcast)
func Register(registry *component.Registry) error {
	// Nil registry is a programming error (fatal), not invalid input
	if registry == nil {
		return pkgerrors.WrapFatal(
			errors.New("registry cannot be nil"),
			"ComponentRegistry", "Register", "registry validation")
	}

	if err := wsinput.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "WebSocket input registration")
	}

	if err := surfaceproc.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "surface processor registration")
	}

	if err := wsoutput.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "ComponentRegistry", "Register", "WebSocket output registration")
	}

	return nil
}
