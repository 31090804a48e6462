package component

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/surfacestream/natsclient"
)

// stubComponent is a minimal Discoverable for registry tests
type stubComponent struct {
	name string
}

func (s *stubComponent) Meta() Metadata {
	return Metadata{Name: s.name, Type: "processor", Version: "1.0.0"}
}
func (s *stubComponent) InputPorts() []Port  { return nil }
func (s *stubComponent) OutputPorts() []Port { return nil }

func (s *stubComponent) ConfigSchema() ConfigSchema {
	return ConfigSchema{Properties: map[string]PropertySchema{
		"subject": {Type: "string", Description: "subject to consume"},
	}}
}

func (s *stubComponent) Health() HealthStatus  { return HealthStatus{Healthy: true} }
func (s *stubComponent) DataFlow() FlowMetrics { return FlowMetrics{} }

func stubFactory(_ json.RawMessage, _ Dependencies) (Discoverable, error) {
	return &stubComponent{name: "stub"}, nil
}

func testDeps(t *testing.T) Dependencies {
	t.Helper()
	// Client creation does not connect; only the factory plumbing is under test
	client, err := natsclient.NewClient("nats://localhost:4222")
	require.NoError(t, err)
	return Dependencies{NATSClient: client}
}

func registerStub(t *testing.T, r *Registry) {
	t.Helper()
	require.NoError(t, r.RegisterWithConfig(RegistrationConfig{
		Name:    "stub",
		Factory: stubFactory,
		Type:    "processor",
	}))
}

func TestRegisterWithConfig_Validation(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.RegisterWithConfig(RegistrationConfig{Factory: stubFactory, Type: "processor"}),
		"missing name")
	assert.Error(t, r.RegisterWithConfig(RegistrationConfig{Name: "stub", Type: "processor"}),
		"missing factory")
	assert.Error(t, r.RegisterWithConfig(RegistrationConfig{Name: "stub", Factory: stubFactory}),
		"missing type")

	registerStub(t, r)
	assert.Error(t, r.RegisterWithConfig(RegistrationConfig{
		Name: "stub", Factory: stubFactory, Type: "processor",
	}), "duplicate factory")
}

func TestCreateComponent(t *testing.T) {
	r := NewRegistry()
	registerStub(t, r)
	deps := testDeps(t)

	comp, err := r.CreateComponent("stub-main", InstanceConfig{Name: "stub", Type: "processor"}, deps)
	require.NoError(t, err)
	assert.Equal(t, "stub", comp.Meta().Name)

	assert.Same(t, comp, r.Component("stub-main"))
	assert.Len(t, r.ListComponents(), 1)
}

func TestCreateComponent_Failures(t *testing.T) {
	r := NewRegistry()
	registerStub(t, r)
	deps := testDeps(t)

	_, err := r.CreateComponent("x", InstanceConfig{Name: "unknown", Type: "processor"}, deps)
	assert.Error(t, err, "unknown factory")

	_, err = r.CreateComponent("x", InstanceConfig{Name: "stub", Type: "input"}, deps)
	assert.Error(t, err, "type mismatch")

	_, err = r.CreateComponent("x", InstanceConfig{Name: "stub", Type: "processor"}, Dependencies{})
	assert.Error(t, err, "missing NATS client")

	_, err = r.CreateComponent("stub-main", InstanceConfig{Name: "stub", Type: "processor"}, deps)
	require.NoError(t, err)
	_, err = r.CreateComponent("stub-main", InstanceConfig{Name: "stub", Type: "processor"}, deps)
	assert.Error(t, err, "duplicate instance name")
}

func TestUnregisterInstance(t *testing.T) {
	r := NewRegistry()
	registerStub(t, r)

	_, err := r.CreateComponent("stub-main", InstanceConfig{Name: "stub", Type: "processor"}, testDeps(t))
	require.NoError(t, err)

	r.UnregisterInstance("stub-main")
	assert.Nil(t, r.Component("stub-main"))
}

func TestGetComponentSchema(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterWithConfig(RegistrationConfig{
		Name:    "stub",
		Factory: stubFactory,
		Type:    "processor",
		Schema: ConfigSchema{
			Properties: map[string]PropertySchema{"subject": {Type: "string"}},
			Required:   []string{"subject"},
		},
	}))

	schema, err := r.GetComponentSchema("stub")
	require.NoError(t, err)
	assert.Equal(t, []string{"subject"}, schema.Required)

	_, err = r.GetComponentSchema("absent")
	assert.Error(t, err)
}

func TestValidateComponentName(t *testing.T) {
	assert.NoError(t, ValidateComponentName("surface-processor"))
	assert.NoError(t, ValidateComponentName("ingress_01.main"))

	assert.Error(t, ValidateComponentName(""))
	assert.Error(t, ValidateComponentName("bad name"))
	assert.Error(t, ValidateComponentName("bad/name"))
	assert.Error(t, ValidateComponentName(strings.Repeat("a", MaxNameLength+1)))
}
