package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pevans/listwatch/record"
)

// JSONFileBackend keeps the record set in one flat JSON object mapping ID to
// record.
type JSONFileBackend struct {
	path string
}

// NewJSONFileBackend creates a backend writing to path. The parent directory
// is created if needed.
func NewJSONFileBackend(path string) (*JSONFileBackend, error) {
	// 0700: owner-only access
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &JSONFileBackend{path: path}, nil
}

// Path returns the file the backend writes to.
func (b *JSONFileBackend) Path() string {
	return b.path
}

// Load reads the record file. A missing or empty file is ErrNoState.
func (b *JSONFileBackend) Load(_ context.Context) (map[string]record.Record, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoState
		}
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoState
	}

	var records map[string]record.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record file: %w", err)
	}
	if records == nil {
		records = make(map[string]record.Record)
	}
	return records, nil
}

// Save writes records to a temporary file next to the target and renames it
// into place, so readers see either the old or the new set.
func (b *JSONFileBackend) Save(_ context.Context, records map[string]record.Record) error {
	if records == nil {
		records = map[string]record.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write records: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("failed to replace record file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (b *JSONFileBackend) Close() error {
	return nil
}
