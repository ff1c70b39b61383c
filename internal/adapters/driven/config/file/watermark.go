package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/planwatch/internal/core/ports/driven"
)

// Ensure WatermarkStore implements the interface.
var _ driven.WatermarkStore = (*WatermarkStore)(nil)

const stateFile = "state.toml"

type syncState struct {
	Snapshot snapshotState `toml:"snapshot"`
}

type snapshotState struct {
	ETag      string    `toml:"etag"`
	UpdatedAt time.Time `toml:"updated_at"`
}

// WatermarkStore keeps the identity of the last fully processed snapshot in
// state.toml, next to config.toml. It is separate from the config so that
// editing settings never resets the watermark.
type WatermarkStore struct {
	mu       sync.RWMutex
	filePath string
	state    syncState
}

// NewWatermarkStore opens state.toml in dir. An empty dir means DefaultDir.
func NewWatermarkStore(dir string) (*WatermarkStore, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	w := &WatermarkStore{filePath: filepath.Join(dir, stateFile)}
	data, err := os.ReadFile(w.filePath)
	switch {
	case os.IsNotExist(err):
		return w, nil
	case err != nil:
		return nil, err
	}
	if err := toml.Unmarshal(data, &w.state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", w.filePath, err)
	}
	return w, nil
}

// SnapshotIdentity returns the stored snapshot ETag, or "".
func (w *WatermarkStore) SnapshotIdentity() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state.Snapshot.ETag
}

// UpdatedAt returns when the identity was last written.
func (w *WatermarkStore) UpdatedAt() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state.Snapshot.UpdatedAt
}

// SetSnapshotIdentity persists identity. An empty identity clears the
// watermark so the next sync processes the snapshot in full.
func (w *WatermarkStore) SetSnapshotIdentity(identity string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := w.state
	next.Snapshot.ETag = identity
	next.Snapshot.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	data, err := toml.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode %s: %w", w.filePath, err)
	}
	if err := writeFileAtomic(w.filePath, data); err != nil {
		return err
	}
	w.state = next
	return nil
}

// Path returns the state file path.
func (w *WatermarkStore) Path() string {
	return w.filePath
}
