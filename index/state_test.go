package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestState(t *testing.T) (*StateStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	state, err := OpenStateStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })
	return state, path
}

func TestStatePutGet(t *testing.T) {
	state, _ := openTestState(t)

	entry := &StateEntry{
		Filepath:    "reports/q1.pdf",
		Fingerprint: "1024:42",
		ExtractedAt: time.Now().UTC().Truncate(time.Second),
		Status:      StatusSuccess,
		PageCount:   7,
	}
	require.NoError(t, state.Put(entry))

	got, ok, err := state.Get("reports/q1.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.Fingerprint, got.Fingerprint)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Equal(t, 7, got.PageCount)
	assert.True(t, entry.ExtractedAt.Equal(got.ExtractedAt))
}

func TestStateGetMissing(t *testing.T) {
	state, _ := openTestState(t)

	got, ok, err := state.Get("nope.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestStatePutReplaces(t *testing.T) {
	state, _ := openTestState(t)

	require.NoError(t, state.Put(&StateEntry{
		Filepath: "a.pdf", Status: StatusFailed, ErrorDetail: "pdf is encrypted",
	}))
	require.NoError(t, state.Put(&StateEntry{
		Filepath: "a.pdf", Status: StatusSuccess, PageCount: 3,
	}))

	got, ok, err := state.Get("a.pdf")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.Empty(t, got.ErrorDetail)
}

func TestStateAllSorted(t *testing.T) {
	state, _ := openTestState(t)

	for _, p := range []string{"z.pdf", "a.pdf", "m/x.pdf"} {
		require.NoError(t, state.Put(&StateEntry{Filepath: p, Status: StatusSuccess}))
	}

	entries, err := state.All()
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.pdf", entries[0].Filepath)
	assert.Equal(t, "m/x.pdf", entries[1].Filepath)
	assert.Equal(t, "z.pdf", entries[2].Filepath)
}

func TestStateDelete(t *testing.T) {
	state, _ := openTestState(t)

	require.NoError(t, state.Put(&StateEntry{Filepath: "a.pdf", Status: StatusSuccess}))
	require.NoError(t, state.Delete("a.pdf"))
	require.NoError(t, state.Delete("a.pdf"))

	_, ok, err := state.Get("a.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLastExtractedAtSurvivesReopen(t *testing.T) {
	state, path := openTestState(t)

	initial, err := state.LastExtractedAt()
	require.NoError(t, err)
	assert.True(t, initial.IsZero())

	stamp := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	require.NoError(t, state.SetLastExtractedAt(stamp))
	require.NoError(t, state.Close())

	reopened, err := OpenStateStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.LastExtractedAt()
	require.NoError(t, err)
	assert.True(t, stamp.Equal(got))
}
