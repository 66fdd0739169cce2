package persist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nixnav/indexd/internal/types"
	"github.com/stretchr/testify/require"
)

func TestSaveEntryThenLoadRoundTrips(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "indexd.db"))
	require.NoError(t, err)
	defer w.Close()

	ctx := context.Background()
	err = w.apply(ctx, Op{Kind: SaveEntry, Entry: types.Entry{ID: 1, Path: "/h/a.txt", IsDir: false, Mtime: 10, Size: 4}})
	require.NoError(t, err)
	err = w.apply(ctx, Op{Kind: SaveBookmark, Bookmark: types.Bookmark{Name: "home", Path: "/h", IsNetwork: false}})
	require.NoError(t, err)

	entries, bookmarks, err := w.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "/h/a.txt", entries[0].Path)
	require.Len(t, bookmarks, 1)
	require.Equal(t, "home", bookmarks[0].Name)
}

func TestClearEntriesUnderPrefixRemovesSubtreeOnly(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "indexd.db"))
	require.NoError(t, err)
	defer w.Close()

	ctx := context.Background()
	require.NoError(t, w.apply(ctx, Op{Kind: SaveEntry, Entry: types.Entry{ID: 1, Path: "/h/a.txt"}}))
	require.NoError(t, w.apply(ctx, Op{Kind: SaveEntry, Entry: types.Entry{ID: 2, Path: "/w/b.txt"}}))
	require.NoError(t, w.apply(ctx, Op{Kind: ClearEntriesUnderPrefix, Prefix: "/h"}))

	entries, _, err := w.Load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "/w/b.txt", entries[0].Path)
}

func TestRemoveBookmarkByName(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "indexd.db"))
	require.NoError(t, err)
	defer w.Close()

	ctx := context.Background()
	require.NoError(t, w.apply(ctx, Op{Kind: SaveBookmark, Bookmark: types.Bookmark{Name: "home", Path: "/h"}}))
	require.NoError(t, w.apply(ctx, Op{Kind: RemoveBookmarkByName, Name: "home"}))

	_, bookmarks, err := w.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, bookmarks)
}

func TestRemoveEntryByPath(t *testing.T) {
	w, err := Open(filepath.Join(t.TempDir(), "indexd.db"))
	require.NoError(t, err)
	defer w.Close()

	ctx := context.Background()
	require.NoError(t, w.apply(ctx, Op{Kind: SaveEntry, Entry: types.Entry{ID: 1, Path: "/h/a.txt"}}))
	require.NoError(t, w.apply(ctx, Op{Kind: RemoveEntryByPath, Path: "/h/a.txt"}))

	entries, _, err := w.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, entries)
}
