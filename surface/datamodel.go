package surface

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Container is one node of the hierarchical data model. Values are strings,
// float64 numbers, booleans, []any arrays, or nested *Container nodes.
// Key order is insertion order; rewriting an existing key keeps its position.
type Container struct {
	keys []string
	vals map[string]any
}

// NewContainer creates an empty data model node.
func NewContainer() *Container {
	return &Container{vals: make(map[string]any)}
}

// Set writes a value under key, preserving the key's original position when
// it already exists.
func (c *Container) Set(key string, value any) {
	if _, exists := c.vals[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.vals[key] = value
}

// Get returns the value under key.
func (c *Container) Get(key string) (any, bool) {
	v, ok := c.vals[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (c *Container) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of entries.
func (c *Container) Len() int {
	return len(c.keys)
}

// EnsureChild returns the container under key, creating an empty one when the
// key is absent or currently holds a non-container value. Intermediate path
// segments are created on demand this way.
func (c *Container) EnsureChild(key string) *Container {
	if v, ok := c.vals[key]; ok {
		if child, ok := v.(*Container); ok {
			return child
		}
	}
	child := NewContainer()
	c.Set(key, child)
	return child
}

// Clone deep-copies the node and everything below it.
func (c *Container) Clone() *Container {
	if c == nil {
		return nil
	}
	out := &Container{
		keys: make([]string, len(c.keys)),
		vals: make(map[string]any, len(c.vals)),
	}
	copy(out.keys, c.keys)
	for k, v := range c.vals {
		out.vals[k] = cloneValue(v)
	}
	return out
}

// cloneValue deep-copies a data model value. Array elements may be arbitrary
// decoded JSON (maps, slices), so those are copied recursively too.
func cloneValue(v any) any {
	switch val := v.(type) {
	case *Container:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = cloneValue(e)
		}
		return out
	default:
		return val
	}
}

// MarshalJSON emits the node as a JSON object in insertion order.
func (c *Container) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(c.vals[key])
		if err != nil {
			return nil, fmt.Errorf("data model key %q: %w", key, err)
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON restores a node from a JSON object, preserving key order and
// rebuilding nested objects as Containers.
func (c *Container) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("data model node must be a JSON object")
	}

	c.keys = nil
	c.vals = make(map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("data model key %q: %w", key, err)
		}
		val, err := decodeValue(raw)
		if err != nil {
			return fmt.Errorf("data model key %q: %w", key, err)
		}
		c.Set(key, val)
	}
	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// decodeValue maps raw JSON onto the data model value set. Objects become
// Containers; everything else keeps its natural decoded shape.
func decodeValue(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		child := NewContainer()
		if err := child.UnmarshalJSON(trimmed); err != nil {
			return nil, err
		}
		return child, nil
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, err
	}
	return v, nil
}
