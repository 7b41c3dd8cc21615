// Package file keeps the cooldown record as a JSON document on local disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"signalbot/internal/model"
)

// DefaultPath is used when no path is configured.
const DefaultPath = ".state/state.json"

// Store reads and writes the state file. Writes go to a temp file in the
// same directory which is then renamed over the target.
type Store struct {
	path string
}

// New returns a file store at path.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// Load reads the record. A missing file is an empty record.
func (s *Store) Load(ctx context.Context) (*model.CooldownRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.NewCooldownRecord(), nil
		}
		return nil, fmt.Errorf("read state %s: %w", s.path, err)
	}

	rec := model.NewCooldownRecord()
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", s.path, err)
	}
	if rec.Cooldowns == nil {
		rec.Cooldowns = model.NewCooldownRecord().Cooldowns
	}
	return rec, nil
}

// Save writes the record atomically.
func (s *Store) Save(ctx context.Context, rec *model.CooldownRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
