package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeFileParsesBookmarksIntervalsAndExclusions(t *testing.T) {
	dir := t.TempDir()
	kdl := `
socket "/tmp/indexd-test.sock"
rescan_interval_secs 120
integrity_interval_secs 30
integrity_batch_size 100
exclude "vendor" ".Trash*"
bookmark "home" {
    path "/home/user"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".indexd.kdl"), []byte(kdl), 0o644))

	cfg := Default()
	require.NoError(t, mergeFile(cfg, filepath.Join(dir, ".indexd.kdl")))

	require.Equal(t, "/tmp/indexd-test.sock", cfg.SocketPath)
	require.EqualValues(t, 120_000_000_000, cfg.RescanInterval)
	require.EqualValues(t, 30_000_000_000, cfg.IntegrityInterval)
	require.Equal(t, 100, cfg.IntegrityBatch)
	require.ElementsMatch(t, []string{"vendor", ".Trash*"}, cfg.ExcludeGlobs)
	require.Len(t, cfg.Bookmarks, 1)
	require.Equal(t, "home", cfg.Bookmarks[0].Name)
	require.Equal(t, "/home/user", cfg.Bookmarks[0].Path)
}

func TestMergeFileMissingFileIsNotAnError(t *testing.T) {
	cfg := Default()
	err := mergeFile(cfg, filepath.Join(t.TempDir(), "nonexistent.kdl"))
	require.NoError(t, err)
}

func TestLoadMergesInstanceOverGlobal(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".indexd.kdl"), []byte(`rescan_interval_secs 999`), 0o644))

	instance := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(instance, ".indexd.kdl"), []byte(`rescan_interval_secs 42`), 0o644))

	cfg, err := Load(instance)
	require.NoError(t, err)
	require.EqualValues(t, 42_000_000_000, cfg.RescanInterval)
}
