package surface

import "strings"

// Resolve walks a slash-delimited binding path from the data model root and
// returns the addressed value, or nil when any segment is missing or an
// intermediate node is not a container. Empty segments are dropped, so "/",
// "" and "/x/" normalize the same way; resolving "" returns the root itself.
//
// Legacy singleton-wrapping convention: when the current node is a
// single-element array whose element is itself a container, the walk descends
// into that element instead of indexing the array.
func Resolve(path string, root *Container) any {
	if root == nil {
		return nil
	}

	var current any = root
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}

		current = unwrapSingleton(current)
		next, ok := lookup(current, segment)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

// lookup reads one key from a container node. Containers appear either as
// *Container (built by data model updates) or map[string]any (elements of
// valueArray payloads).
func lookup(node any, key string) (any, bool) {
	switch n := node.(type) {
	case *Container:
		return n.Get(key)
	case map[string]any:
		v, ok := n[key]
		return v, ok
	default:
		return nil, false
	}
}

// unwrapSingleton descends into a one-element array wrapping a container.
func unwrapSingleton(node any) any {
	arr, ok := node.([]any)
	if !ok || len(arr) != 1 {
		return node
	}
	switch arr[0].(type) {
	case *Container, map[string]any:
		return arr[0]
	default:
		return node
	}
}
