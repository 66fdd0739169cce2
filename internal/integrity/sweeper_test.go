package integrity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nixnav/indexd/internal/trigramindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepRemovesEntriesForDeletedPaths(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.txt")
	gone := filepath.Join(dir, "gone.txt")
	require.NoError(t, os.WriteFile(present, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(gone, []byte("x"), 0o644))

	idx := trigramindex.New()
	idx.Add(present, false, 1, 1)
	idx.Add(gone, false, 1, 1)

	require.NoError(t, os.Remove(gone))

	s := New(idx, nil)
	s.sweepOnce()

	assert.Equal(t, 1, idx.FileCount())
}

func TestTakeBatchWrapsAroundOffset(t *testing.T) {
	paths := []string{"a", "b", "c", "d", "e"}
	batch := takeBatch(paths, 3, 4)
	assert.Equal(t, []string{"d", "e", "a", "b"}, batch)
}

func TestTakeBatchLargerThanSetReturnsAll(t *testing.T) {
	paths := []string{"a", "b"}
	batch := takeBatch(paths, 0, 10)
	assert.Equal(t, paths, batch)
}
