package offsets

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackerCommitAndFetch(t *testing.T) {
	tr := New(filepath.Join(t.TempDir(), "offsets.json"))

	_, ok := tr.Fetch("group-a", 0)
	require.False(t, ok)

	tr.Commit("group-a", 0, 42)
	offset, ok := tr.Fetch("group-a", 0)
	require.True(t, ok)
	require.Equal(t, uint64(42), offset)
}

func TestTrackerFlushDirtyAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offsets.json")
	tr := New(path)
	tr.Commit("group-a", 1, 7)

	require.NoError(t, tr.FlushDirty())

	reloaded := New(path)
	require.NoError(t, reloaded.LoadFromFile())
	offset, ok := reloaded.Fetch("group-a", 1)
	require.True(t, ok)
	require.Equal(t, uint64(7), offset)
}

func TestTrackerFlushDirtyNoopWhenClean(t *testing.T) {
	tr := New(filepath.Join(t.TempDir(), "offsets.json"))
	require.NoError(t, tr.FlushDirty()) // nothing committed, nothing to do
}
