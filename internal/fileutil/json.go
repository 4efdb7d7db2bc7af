package fileutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Permissions for private state files and their directories.
const (
	PrivateFilePerm = 0o600
	PrivateDirPerm  = 0o700
)

// WriteJSON marshals v with indentation and writes it atomically to path,
// creating the parent directory if needed.
func WriteJSON(path string, v any) error {
	if path == "" {
		return ErrEmptyPath
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), PrivateDirPerm); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return WriteAtomic(path, data, PrivateFilePerm)
}

// ReadJSON decodes the file at path into v. A missing file returns an
// error matching os.ErrNotExist.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return nil
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
