package nonce

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/mrz1836/sigilid/internal/fileutil"
)

// FileName is the record file inside the home directory.
const FileName = "nonces.json"

// FileStore keeps records in a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store at <home>/nonces.json.
func NewFileStore(home string) *FileStore {
	return &FileStore{path: filepath.Join(home, FileName)}
}

// Load reads the stored records. A missing file yields none.
func (s *FileStore) Load() ([]Entry, error) {
	var entries []Entry
	if err := fileutil.ReadJSON(s.path, &entries); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return entries, nil
}

// Save replaces the stored records.
func (s *FileStore) Save(entries []Entry) error {
	return fileutil.WriteJSON(s.path, entries)
}
