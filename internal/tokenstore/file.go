package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// fileRecord is the on-disk format of the token file.
type fileRecord struct {
	Key   string    `json:"key"`
	Token *TokenSet `json:"token"`
}

// FileStore keeps the token set in <dir>/<key>.json and the pending
// authorization request in <dir>/<key>.pending.json. Writes are atomic.
type FileStore struct {
	key         string
	path        string
	pendingPath string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created
// lazily on the first write.
func NewFileStore(dir, key string) *FileStore {
	return &FileStore{
		key:         key,
		path:        filepath.Join(dir, key+".json"),
		pendingPath: filepath.Join(dir, key+".pending.json"),
	}
}

// Path returns the token file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the token file. Returns (nil, nil) if it does not exist.
func (s *FileStore) Load() (*TokenSet, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not signed in"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenstore: reading %s: %w", s.path, err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("tokenstore: decoding %s: %w", s.path, err)
	}

	if rec.Token == nil {
		return nil, fmt.Errorf("tokenstore: %s missing token field (sign in again)", s.path)
	}

	return rec.Token, nil
}

// Save overwrites the token file. Never logs token values.
func (s *FileStore) Save(ts *TokenSet) error {
	data, err := json.MarshalIndent(fileRecord{Key: s.key, Token: ts}, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenstore: encoding: %w", err)
	}

	return writeFileAtomic(s.path, data)
}

// Clear removes the token file.
func (s *FileStore) Clear() error {
	return removeIfExists(s.path)
}

// PutPending overwrites the pending authorization request.
func (s *FileStore) PutPending(p *PendingAuth) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("tokenstore: encoding pending request: %w", err)
	}

	return writeFileAtomic(s.pendingPath, data)
}

// TakePending reads and deletes the pending authorization request.
// A corrupt pending file is deleted and reported as an error.
func (s *FileStore) TakePending() (*PendingAuth, error) {
	data, err := os.ReadFile(s.pendingPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // nothing pending
	}

	if err != nil {
		return nil, fmt.Errorf("tokenstore: reading %s: %w", s.pendingPath, err)
	}

	if rmErr := removeIfExists(s.pendingPath); rmErr != nil {
		return nil, rmErr
	}

	var p PendingAuth
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("tokenstore: decoding %s: %w", s.pendingPath, err)
	}

	return &p, nil
}
