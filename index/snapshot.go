package index

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// Snapshot is the immutable in-memory copy of the index served at query
// time. It is loaded once at startup and never mutated, so concurrent
// readers need no synchronization. A new extraction run is picked up by
// restarting the process.
type Snapshot struct {
	Documents       []Document
	PageTotal       int
	LastExtractedAt time.Time
}

// LoadSnapshot loads every successfully extracted document into memory
// and validates that the state database and the payloads agree. Any
// success entry without a readable payload, or a payload whose page
// count disagrees with its entry, makes the whole index unusable and
// returns ErrIndexCorrupt.
func LoadSnapshot(indexFolder string, logger *zap.Logger) (*Snapshot, error) {
	store := NewStore(indexFolder)

	state, err := OpenStateStore(store.StatePath())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}
	defer state.Close()

	entries, err := state.All()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}

	lastExtracted, err := state.LastExtractedAt()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexCorrupt, err)
	}

	snap := &Snapshot{LastExtractedAt: lastExtracted}
	for _, entry := range entries {
		if entry.Status != StatusSuccess {
			continue
		}
		doc, err := store.ReadDocument(entry.Filepath)
		if err != nil {
			return nil, fmt.Errorf("%w: success entry %s has no readable payload: %v",
				ErrIndexCorrupt, entry.Filepath, err)
		}
		if doc.PageCount() != entry.PageCount {
			return nil, fmt.Errorf("%w: payload for %s has %d pages, state records %d",
				ErrIndexCorrupt, entry.Filepath, doc.PageCount(), entry.PageCount)
		}
		snap.Documents = append(snap.Documents, *doc)
		snap.PageTotal += doc.PageCount()
	}

	sort.Slice(snap.Documents, func(i, j int) bool {
		return snap.Documents[i].Filepath < snap.Documents[j].Filepath
	})

	logger.Info("index loaded",
		zap.Int("documents", len(snap.Documents)),
		zap.Int("pages", snap.PageTotal))
	return snap, nil
}
