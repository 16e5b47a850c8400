package index

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrIndexCorrupt marks a persisted index that cannot be loaded: a
// payload is missing, unreadable, or disagrees with its state entry.
// The search engine refuses to start on it rather than serve an
// incomplete index.
var ErrIndexCorrupt = errors.New("index corrupt")

// Store reads and writes per-document text payloads under
// <indexFolder>/texts. Each document is its own JSON file, so a partial
// extraction run always leaves a loadable index covering the documents
// written so far.
type Store struct {
	indexFolder string
}

// NewStore creates a store rooted at the index folder.
func NewStore(indexFolder string) *Store {
	return &Store{indexFolder: indexFolder}
}

// StatePath returns the extraction state database location.
func (s *Store) StatePath() string {
	return filepath.Join(s.indexFolder, "state.db")
}

// LockPath returns the extraction run lock file location.
func (s *Store) LockPath() string {
	return filepath.Join(s.indexFolder, ".extract.lock")
}

// TextsDir returns the payload folder.
func (s *Store) TextsDir() string {
	return filepath.Join(s.indexFolder, "texts")
}

// payloadKey derives a collision-free payload filename from the relative
// path. The original path is kept inside the payload itself.
func payloadKey(relpath string) string {
	sum := sha256.Sum256([]byte(relpath))
	return hex.EncodeToString(sum[:8]) + ".json"
}

func (s *Store) payloadPath(relpath string) string {
	return filepath.Join(s.TextsDir(), payloadKey(relpath))
}

// HasDocument reports whether a payload exists for the relative path.
func (s *Store) HasDocument(relpath string) bool {
	_, err := os.Stat(s.payloadPath(relpath))
	return err == nil
}

// WriteDocument persists a document payload atomically: the JSON is
// written to a temp file in the same directory and renamed into place,
// so a crash never leaves a truncated payload.
func (s *Store) WriteDocument(doc *Document) error {
	if err := os.MkdirAll(s.TextsDir(), 0755); err != nil {
		return fmt.Errorf("create texts directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.Filepath, err)
	}

	target := s.payloadPath(doc.Filepath)
	tmp, err := os.CreateTemp(s.TextsDir(), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp payload: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write payload %s: %w", doc.Filepath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close payload %s: %w", doc.Filepath, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename payload %s: %w", doc.Filepath, err)
	}
	return nil
}

// ReadDocument loads the payload for a relative path.
func (s *Store) ReadDocument(relpath string) (*Document, error) {
	data, err := os.ReadFile(s.payloadPath(relpath))
	if err != nil {
		return nil, fmt.Errorf("read payload for %s: %w", relpath, err)
	}
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode payload for %s: %w", relpath, err)
	}
	return doc, nil
}

// RemoveDocument deletes the payload for a relative path. Removing a
// missing payload is not an error.
func (s *Store) RemoveDocument(relpath string) error {
	err := os.Remove(s.payloadPath(relpath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove payload for %s: %w", relpath, err)
	}
	return nil
}
