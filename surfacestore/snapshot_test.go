package surfacestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, "surface.dashboard-1", SnapshotKey("dashboard-1"))
	assert.Equal(t, "surface.session_42", SnapshotKey("session_42"))

	// KV keys cannot carry spaces, slashes, or dots from surface ids
	assert.Equal(t, "surface.a_b", SnapshotKey("a b"))
	assert.Equal(t, "surface.a_b", SnapshotKey("a/b"))
	assert.Equal(t, "surface.session_42", SnapshotKey("session.42"))

	// Distinct ids may collide after sanitization; last writer wins is
	// acceptable because ids are caller-chosen opaque tokens
	assert.Equal(t, SnapshotKey("a.b"), SnapshotKey("a_b"))
}
