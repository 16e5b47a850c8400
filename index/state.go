package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Status of an extraction state entry.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StateEntry records the extraction outcome for one source file.
// A success entry whose fingerprint still matches the file is the skip
// signal for the next run; failed entries are always retried.
type StateEntry struct {
	Filepath    string    `json:"filepath"`
	Fingerprint string    `json:"fingerprint"`
	ExtractedAt time.Time `json:"extracted_at"`
	Status      Status    `json:"status"`
	PageCount   int       `json:"page_count"`
	ErrorDetail string    `json:"error_detail,omitempty"`
}

var (
	stateBucket = []byte("state")
	metaBucket  = []byte("meta")

	lastExtractedKey = []byte("last_extracted_at")
)

// StateStore is a persistent filepath -> StateEntry map backed by bbolt.
// Every Put is flushed before it returns, so a crash loses at most the
// in-flight document.
type StateStore struct {
	db *bolt.DB
}

// OpenStateStore opens (or creates) the state database at path.
func OpenStateStore(path string) (*StateStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(stateBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(metaBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create state buckets: %w", err)
	}

	return &StateStore{db: db}, nil
}

// Get returns the entry for a relative filepath, if present.
func (s *StateStore) Get(relpath string) (*StateEntry, bool, error) {
	var entry *StateEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(stateBucket).Get([]byte(relpath))
		if v == nil {
			return nil
		}
		e := &StateEntry{}
		if err := json.Unmarshal(v, e); err != nil {
			return fmt.Errorf("decode state entry %s: %w", relpath, err)
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return entry, entry != nil, nil
}

// Put writes an entry, replacing any previous entry for the same path.
func (s *StateStore) Put(entry *StateEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode state entry %s: %w", entry.Filepath, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Put([]byte(entry.Filepath), data)
	})
}

// Delete removes the entry for a relative filepath. Deleting a missing
// entry is not an error.
func (s *StateStore) Delete(relpath string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Delete([]byte(relpath))
	})
}

// All returns every entry sorted by filepath.
func (s *StateStore) All() ([]StateEntry, error) {
	var entries []StateEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).ForEach(func(k, v []byte) error {
			e := StateEntry{}
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode state entry %s: %w", k, err)
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Filepath < entries[j].Filepath })
	return entries, nil
}

// SetLastExtractedAt records the completion time of an extraction run.
func (s *StateStore) SetLastExtractedAt(t time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(lastExtractedKey, []byte(t.UTC().Format(time.RFC3339Nano)))
	})
}

// LastExtractedAt returns the completion time of the most recent run,
// or the zero time if no run has completed.
func (s *StateStore) LastExtractedAt() (time.Time, error) {
	var t time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metaBucket).Get(lastExtractedKey)
		if v == nil {
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, string(v))
		if err != nil {
			return fmt.Errorf("decode last_extracted_at: %w", err)
		}
		t = parsed
		return nil
	})
	return t, err
}

// Close closes the underlying database.
func (s *StateStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
