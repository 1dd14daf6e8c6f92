package spec

import (
	"log/slog"
	"sync/atomic"

	"github.com/Shlokpalrecha/Finguru/internal/common"
)

// Store holds the active specification snapshot. Readers take Current once
// per request; Reload replaces the snapshot only after the new document
// validates.
type Store struct {
	logger  *slog.Logger
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store serving snap.
func NewStore(snap *Snapshot, logger *slog.Logger) *Store {
	s := &Store{logger: common.OrDefault(logger)}
	s.current.Store(snap)
	return s
}

// Open loads path, or the embedded specification when path is empty, into a new store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	var (
		snap *Snapshot
		err  error
	)
	if path == "" {
		snap, err = Default()
	} else {
		snap, err = Load(path)
	}
	if err != nil {
		return nil, err
	}
	return NewStore(snap, logger), nil
}

// Current returns the active snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Swap installs snap and returns the previous snapshot.
func (s *Store) Swap(snap *Snapshot) *Snapshot {
	return s.current.Swap(snap)
}

// Reload validates the file at path and, on success, makes it the active
// specification. On failure the previous snapshot stays in place.
func (s *Store) Reload(path string) error {
	snap, err := Load(path)
	if err != nil {
		s.logger.Warn("Specification reload rejected", "path", path, "error", err)
		return err
	}

	s.current.Store(snap)
	s.logger.Info("Specification reloaded",
		"path", path,
		"categories", len(snap.categories),
		"fallback", snap.fallback)
	return nil
}
