package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"docindex/index"
)

// ProgressFunc is an optional callback to report progress like: processed, total, path
type ProgressFunc func(stage string, processed, total int, path string)

// Failure is one failed document in a run report.
type Failure struct {
	Filepath string
	Reason   string
}

// Report summarizes one extraction run.
type Report struct {
	Processed int
	Skipped   int
	Failed    int
	Pruned    int
	Pages     int
	Elapsed   time.Duration
	Failures  []Failure
}

// Options configure one extraction run.
type Options struct {
	// SourceRoot is the folder scanned for documents.
	SourceRoot string

	// Extensions is the allow-list (lowercase, dot-prefixed).
	Extensions []string

	// Force reprocesses every document regardless of prior state.
	Force bool

	// OnProgress is an optional per-file progress callback.
	OnProgress ProgressFunc
}

// Pipeline is the extraction orchestrator: it walks the source tree,
// skips documents whose state entry still matches, extracts the rest,
// and flushes payload plus state after every document so an interrupted
// run loses at most the in-flight file.
type Pipeline struct {
	store    *index.Store
	state    *index.StateStore
	registry *Registry
	logger   *zap.Logger
}

// NewPipeline creates a pipeline writing to the given stores.
func NewPipeline(store *index.Store, state *index.StateStore, registry *Registry, logger *zap.Logger) *Pipeline {
	return &Pipeline{store: store, state: state, registry: registry, logger: logger}
}

// Run executes one extraction pass and returns its report. Only one run
// may write to an index folder at a time; the run lock enforces that
// across processes.
func (p *Pipeline) Run(opts Options) (*Report, error) {
	lock := index.NewRunLock(p.store.LockPath())
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer lock.Release()

	start := time.Now()

	walker := NewWalker(opts.SourceRoot, opts.Extensions)
	files, err := walker.Walk()
	if err != nil {
		return nil, err
	}
	p.logger.Info("scan complete",
		zap.String("source", opts.SourceRoot),
		zap.Int("files", len(files)))

	report := &Report{}
	seen := make(map[string]bool, len(files))

	for i, rel := range files {
		seen[rel] = true
		if opts.OnProgress != nil {
			opts.OnProgress("extracting", i+1, len(files), rel)
		}
		p.processFile(opts, rel, report)
	}

	if err := p.prune(opts.SourceRoot, seen, report); err != nil {
		return nil, err
	}

	if err := p.state.SetLastExtractedAt(time.Now()); err != nil {
		return nil, fmt.Errorf("record run completion: %w", err)
	}

	report.Elapsed = time.Since(start)
	p.logger.Info("extraction complete",
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("pruned", report.Pruned),
		zap.Int("pages", report.Pages),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

// processFile handles a single document with per-file fault isolation:
// any failure is recorded and the run moves on.
func (p *Pipeline) processFile(opts Options, rel string, report *Report) {
	abs := filepath.Join(opts.SourceRoot, filepath.FromSlash(rel))

	fingerprint, err := Fingerprint(abs)
	if err != nil {
		p.recordFailure(rel, fmt.Sprintf("stat: %v", err), report)
		return
	}

	if !opts.Force && p.canSkip(rel, fingerprint) {
		report.Skipped++
		return
	}

	extractor, ok := p.registry.Get(filepath.Ext(rel))
	if !ok {
		p.recordFailure(rel, fmt.Sprintf("no extractor for %s", filepath.Ext(rel)), report)
		return
	}

	var pages []index.Page
	err = withRecover(func() error {
		var err error
		pages, err = extractor.Extract(abs)
		return err
	})
	if err != nil {
		p.recordFailure(rel, err.Error(), report)
		return
	}

	doc := &index.Document{
		Filename:    filepath.Base(rel),
		Filepath:    rel,
		Fingerprint: fingerprint,
		Pages:       pages,
	}
	if err := p.store.WriteDocument(doc); err != nil {
		p.recordFailure(rel, err.Error(), report)
		return
	}

	// State is flushed only after the payload rename landed; a crash in
	// between leaves a retryable file, never a dangling success entry.
	entry := &index.StateEntry{
		Filepath:    rel,
		Fingerprint: fingerprint,
		ExtractedAt: time.Now().UTC(),
		Status:      index.StatusSuccess,
		PageCount:   len(pages),
	}
	if err := p.state.Put(entry); err != nil {
		p.recordFailure(rel, err.Error(), report)
		return
	}

	report.Processed++
	report.Pages += len(pages)
	p.logger.Debug("document indexed", zap.String("path", rel), zap.Int("pages", len(pages)))
}

// canSkip reports whether a document is already indexed: a success
// entry with the same fingerprint and a payload on disk. Failed entries
// never qualify, so they are retried every run.
func (p *Pipeline) canSkip(rel, fingerprint string) bool {
	entry, ok, err := p.state.Get(rel)
	if err != nil || !ok {
		return false
	}
	return entry.Status == index.StatusSuccess &&
		entry.Fingerprint == fingerprint &&
		p.store.HasDocument(rel)
}

func (p *Pipeline) recordFailure(rel, reason string, report *Report) {
	report.Failed++
	report.Failures = append(report.Failures, Failure{Filepath: rel, Reason: reason})
	p.logger.Warn("document failed", zap.String("path", rel), zap.String("reason", reason))

	entry := &index.StateEntry{
		Filepath:    rel,
		ExtractedAt: time.Now().UTC(),
		Status:      index.StatusFailed,
		ErrorDetail: reason,
	}
	if err := p.state.Put(entry); err != nil {
		p.logger.Error("state write failed", zap.String("path", rel), zap.Error(err))
	}
}

// prune drops state entries and payloads for documents whose source
// file no longer exists, keeping the index a mirror of the corpus.
func (p *Pipeline) prune(sourceRoot string, seen map[string]bool, report *Report) error {
	entries, err := p.state.All()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if seen[entry.Filepath] {
			continue
		}
		abs := filepath.Join(sourceRoot, filepath.FromSlash(entry.Filepath))
		if _, err := os.Stat(abs); err == nil {
			// Source still exists (extension no longer allowed, or
			// filtered); leave the entry alone.
			continue
		}
		if err := p.store.RemoveDocument(entry.Filepath); err != nil {
			return err
		}
		if err := p.state.Delete(entry.Filepath); err != nil {
			return err
		}
		report.Pruned++
		p.logger.Info("pruned deleted source", zap.String("path", entry.Filepath))
	}
	return nil
}

// Fingerprint derives a change-detection value from file metadata.
// Size plus mtime is enough to catch edits without reading content.
func Fingerprint(path string) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%d", st.Size(), st.ModTime().UnixNano()), nil
}
