package session

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/mrz1836/sigilid/internal/fileutil"
)

// StateFileName is the session state file inside the home directory.
const StateFileName = "session.json"

// FileStore keeps the session state in a JSON file written atomically.
type FileStore struct {
	path string
}

// NewFileStore creates a store at <home>/session.json.
func NewFileStore(home string) *FileStore {
	return &FileStore{path: filepath.Join(home, StateFileName)}
}

// Path returns the state file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the state file. A missing file yields (nil, nil).
func (s *FileStore) Load() (*PersistedState, error) {
	var st PersistedState
	if err := fileutil.ReadJSON(s.path, &st); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil //nolint:nilnil // nothing stored
		}
		return nil, err
	}
	return &st, nil
}

// Save writes the state file.
func (s *FileStore) Save(state *PersistedState) error {
	return fileutil.WriteJSON(s.path, state)
}

// Clear removes the state file.
func (s *FileStore) Clear() error {
	return fileutil.RemoveIfExists(s.path)
}
