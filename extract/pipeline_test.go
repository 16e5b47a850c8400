package extract

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docindex/index"
)

type pipelineFixture struct {
	source   string
	indexDir string
	store    *index.Store
	state    *index.StateStore
	registry *Registry
	pipeline *Pipeline
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		source:   t.TempDir(),
		indexDir: t.TempDir(),
	}
	f.store = index.NewStore(f.indexDir)

	state, err := index.OpenStateStore(f.store.StatePath())
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })
	f.state = state

	f.registry = NewRegistry()
	f.pipeline = NewPipeline(f.store, f.state, f.registry, zap.NewNop())
	return f
}

func (f *pipelineFixture) run(t *testing.T, opts Options) *Report {
	t.Helper()
	opts.SourceRoot = f.source
	if opts.Extensions == nil {
		opts.Extensions = []string{".txt"}
	}
	report, err := f.pipeline.Run(opts)
	require.NoError(t, err)
	return report
}

func (f *pipelineFixture) writeSource(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(f.source, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestPipelineFirstRun(t *testing.T) {
	f := newPipelineFixture(t)
	f.writeSource(t, "a.txt", "alpha body")
	f.writeSource(t, "sub/b.txt", "beta body")

	report := f.run(t, Options{})
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 2, report.Pages)

	doc, err := f.store.ReadDocument("sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", doc.Filename)
	assert.Equal(t, "beta body", doc.Pages[0].Text)

	entry, ok, err := f.state.Get("a.txt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, index.StatusSuccess, entry.Status)
	assert.Equal(t, 1, entry.PageCount)
	assert.NotEmpty(t, entry.Fingerprint)

	last, err := f.state.LastExtractedAt()
	require.NoError(t, err)
	assert.False(t, last.IsZero())
}

func TestPipelineSecondRunSkips(t *testing.T) {
	f := newPipelineFixture(t)
	f.writeSource(t, "a.txt", "alpha body")
	f.writeSource(t, "b.txt", "beta body")

	f.run(t, Options{})
	report := f.run(t, Options{})
	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 2, report.Skipped)
}

func TestPipelineReprocessesChangedFile(t *testing.T) {
	f := newPipelineFixture(t)
	f.writeSource(t, "a.txt", "original text")
	f.run(t, Options{})

	f.writeSource(t, "a.txt", "revised text")
	// Push mtime forward so the fingerprint is guaranteed to differ even
	// on coarse filesystem clocks.
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(filepath.Join(f.source, "a.txt"), future, future))

	report := f.run(t, Options{})
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Skipped)

	doc, err := f.store.ReadDocument("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "revised text", doc.Pages[0].Text)
}

func TestPipelineForce(t *testing.T) {
	f := newPipelineFixture(t)
	f.writeSource(t, "a.txt", "alpha body")
	f.run(t, Options{})

	report := f.run(t, Options{Force: true})
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Skipped)
}

func TestPipelineMissingPayloadReextracted(t *testing.T) {
	f := newPipelineFixture(t)
	f.writeSource(t, "a.txt", "alpha body")
	f.run(t, Options{})

	// A state entry without its payload must not be skipped.
	require.NoError(t, f.store.RemoveDocument("a.txt"))

	report := f.run(t, Options{})
	assert.Equal(t, 1, report.Processed)
	assert.True(t, f.store.HasDocument("a.txt"))
}

type failingExtractor struct{}

func (failingExtractor) Extract(path string) ([]index.Page, error) {
	return nil, extractionErr(path, "pdf is encrypted")
}

func TestPipelineFaultIsolation(t *testing.T) {
	f := newPipelineFixture(t)
	f.registry.Register(".bad", failingExtractor{})
	f.writeSource(t, "good.txt", "fine content")
	f.writeSource(t, "broken.bad", "whatever")

	report := f.run(t, Options{Extensions: []string{".txt", ".bad"}})
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "broken.bad", report.Failures[0].Filepath)
	assert.Contains(t, report.Failures[0].Reason, "encrypted")

	entry, ok, err := f.state.Get("broken.bad")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, index.StatusFailed, entry.Status)
	assert.Contains(t, entry.ErrorDetail, "encrypted")

	// Failed entries are retried on every run, never skipped.
	report = f.run(t, Options{Extensions: []string{".txt", ".bad"}})
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Failed)
}

type panickyExtractor struct{}

func (panickyExtractor) Extract(path string) ([]index.Page, error) {
	panic("slice bounds out of range")
}

func TestPipelineRecoversExtractorPanic(t *testing.T) {
	f := newPipelineFixture(t)
	f.registry.Register(".bad", panickyExtractor{})
	f.writeSource(t, "evil.bad", "whatever")
	f.writeSource(t, "good.txt", "fine content")

	report := f.run(t, Options{Extensions: []string{".txt", ".bad"}})
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Failures[0].Reason, "library panic")
}

func TestPipelineNoExtractor(t *testing.T) {
	f := newPipelineFixture(t)
	f.writeSource(t, "sheet.xlsx", "binary")

	report := f.run(t, Options{Extensions: []string{".xlsx"}})
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Failures[0].Reason, "no extractor")
}

func TestPipelinePrune(t *testing.T) {
	f := newPipelineFixture(t)
	f.writeSource(t, "keep.txt", "kept")
	f.writeSource(t, "gone.txt", "deleted later")
	f.run(t, Options{})

	require.NoError(t, os.Remove(filepath.Join(f.source, "gone.txt")))

	report := f.run(t, Options{})
	assert.Equal(t, 1, report.Pruned)
	assert.False(t, f.store.HasDocument("gone.txt"))

	_, ok, err := f.state.Get("gone.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = f.state.Get("keep.txt")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPipelineResumesAfterNewFiles(t *testing.T) {
	f := newPipelineFixture(t)
	f.writeSource(t, "a.txt", "alpha")
	f.writeSource(t, "b.txt", "beta")
	f.run(t, Options{})

	f.writeSource(t, "c.txt", "gamma")

	report := f.run(t, Options{})
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 2, report.Skipped)
}

func TestPipelineProgressCallback(t *testing.T) {
	f := newPipelineFixture(t)
	f.writeSource(t, "a.txt", "alpha")
	f.writeSource(t, "b.txt", "beta")

	var counts []int
	var total int
	f.run(t, Options{OnProgress: func(stage string, processed, n int, path string) {
		counts = append(counts, processed)
		total = n
	}})

	assert.Equal(t, []int{1, 2}, counts)
	assert.Equal(t, 2, total)
}

func TestFingerprintChangesWithContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0644))
	fp1, err := Fingerprint(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("longer content"), 0644))
	fp2, err := Fingerprint(path)
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp2)
}
