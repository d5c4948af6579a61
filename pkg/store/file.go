package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/fsmkit"
)

// FileStore implements Store using one file per snapshot in a directory.
// Snapshots are encoded as JSON by default; YAML is available via
// WithYAMLEncoding.
type FileStore struct {
	dir       string
	ext       string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithYAMLEncoding switches the store to YAML files.
func WithYAMLEncoding() FileOption {
	return func(f *FileStore) {
		f.ext = ".yaml"
		f.marshal = yaml.Marshal
		f.unmarshal = yaml.Unmarshal
	}
}

// NewFileStore creates a file-based snapshot store, ensuring the directory
// exists.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}

	f := &FileStore{
		dir: dir,
		ext: ".json",
		marshal: func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		},
		unmarshal: json.Unmarshal,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Save persists a snapshot, overwriting any existing file with the same ID.
func (f *FileStore) Save(ctx context.Context, snap fsmkit.Snapshot) error {
	if snap.ID == "" {
		return ErrInvalidSnapshot
	}
	fn, err := f.path(snap.ID)
	if err != nil {
		return err
	}

	data, err := f.marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", snap.ID, err)
	}
	if err := os.WriteFile(fn, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", fn, err)
	}
	return nil
}

// Load retrieves a snapshot by machine ID.
func (f *FileStore) Load(ctx context.Context, id string) (fsmkit.Snapshot, error) {
	fn, err := f.path(id)
	if err != nil {
		return fsmkit.Snapshot{}, err
	}

	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fsmkit.Snapshot{}, ErrSnapshotNotFound
		}
		return fsmkit.Snapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}

	var snap fsmkit.Snapshot
	if err := f.unmarshal(data, &snap); err != nil {
		return fsmkit.Snapshot{}, fmt.Errorf("unmarshal snapshot %s: %w", id, err)
	}
	snap.ID = id
	return snap, nil
}

// Delete removes a snapshot by machine ID.
func (f *FileStore) Delete(ctx context.Context, id string) error {
	fn, err := f.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(fn); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", fn, err)
	}
	return nil
}

// path maps an ID to a file name, rejecting IDs that would escape the
// store directory.
func (f *FileStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSnapshotID, id)
	}
	return filepath.Join(f.dir, id+f.ext), nil
}
