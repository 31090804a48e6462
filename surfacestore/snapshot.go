// Package surfacestore persists surface snapshots in a JetStream KV bucket
// so rendered state survives process restarts.
package surfacestore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/c360/surfacestream/errors"
	"github.com/c360/surfacestream/natsclient"
	"github.com/c360/surfacestream/surface"
)

// SnapshotStore saves and restores surface snapshots keyed by surface id.
// Persistence is last-writer-wins: the fold is single-writer per surface, so
// CAS is unnecessary.
type SnapshotStore struct {
	kv     *natsclient.KVStore
	logger *slog.Logger
}

// NewSnapshotStore creates a snapshot store over the given KV store
func NewSnapshotStore(kv *natsclient.KVStore, logger *slog.Logger) *SnapshotStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStore{kv: kv, logger: logger}
}

// Save persists one surface snapshot
func (s *SnapshotStore) Save(ctx context.Context, snap *surface.Surface) error {
	if snap == nil {
		return errors.WrapInvalid(errors.ErrSurfaceNotFound, "SnapshotStore", "Save", "nil snapshot")
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return errors.WrapInvalid(err, "SnapshotStore", "Save", "marshal snapshot")
	}

	key := SnapshotKey(snap.ID())
	if _, err := s.kv.Put(ctx, key, data); err != nil {
		return errors.WrapTransient(err, "SnapshotStore", "Save", "persist snapshot "+key)
	}

	s.logger.Debug("Surface snapshot saved", "surface_id", snap.ID(), "bytes", len(data))
	return nil
}

// Load restores one surface snapshot by id. Returns ErrSurfaceNotFound when
// no snapshot exists.
func (s *SnapshotStore) Load(ctx context.Context, surfaceID string) (*surface.Surface, error) {
	entry, err := s.kv.Get(ctx, SnapshotKey(surfaceID))
	if err != nil {
		if stderrors.Is(err, natsclient.ErrKVKeyNotFound) {
			return nil, errors.WrapInvalid(errors.ErrSurfaceNotFound, "SnapshotStore", "Load", "lookup "+surfaceID)
		}
		return nil, errors.WrapTransient(err, "SnapshotStore", "Load", "read snapshot "+surfaceID)
	}

	var snap surface.Surface
	if err := json.Unmarshal(entry.Value, &snap); err != nil {
		return nil, errors.WrapInvalid(err, "SnapshotStore", "Load", "unmarshal snapshot "+surfaceID)
	}
	return &snap, nil
}

// Remove deletes a persisted snapshot. Removing an absent snapshot is not an
// error: DeleteSurface for an unknown id is a no-op end to end.
func (s *SnapshotStore) Remove(ctx context.Context, surfaceID string) error {
	err := s.kv.Delete(ctx, SnapshotKey(surfaceID))
	if err != nil && !stderrors.Is(err, natsclient.ErrKVKeyNotFound) {
		return errors.WrapTransient(err, "SnapshotStore", "Remove", "delete snapshot "+surfaceID)
	}
	return nil
}

// RestoreAll loads every persisted snapshot into the given state store.
// Called once at startup before any envelope is processed.
func (s *SnapshotStore) RestoreAll(ctx context.Context, store *surface.Store) (int, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		return 0, errors.WrapTransient(err, "SnapshotStore", "RestoreAll", "list snapshots")
	}

	restored := 0
	for _, key := range keys {
		entry, err := s.kv.Get(ctx, key)
		if err != nil {
			s.logger.Warn("Skipping unreadable snapshot", "key", key, "error", err)
			continue
		}

		var snap surface.Surface
		if err := json.Unmarshal(entry.Value, &snap); err != nil {
			s.logger.Warn("Skipping corrupt snapshot", "key", key, "error", err)
			continue
		}

		store.Restore(&snap)
		restored++
	}

	s.logger.Info("Surface snapshots restored", "count", restored)
	return restored, nil
}

// SnapshotKey maps a surface id onto a KV key. NATS KV keys cannot contain
// spaces or path separators, so offending bytes are replaced.
func SnapshotKey(surfaceID string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, surfaceID)
	return "surface." + sanitized
}
