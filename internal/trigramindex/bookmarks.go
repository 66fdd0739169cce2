package trigramindex

import "github.com/nixnav/indexd/internal/types"

// AddBookmark registers a scanned/watched root. Bookmarks are never
// removed by the core design; RemoveBookmark exists as the extension
// the prior implementation of this daemon carried.
func (ix *Index) AddBookmark(b types.Bookmark) {
	ix.bookmarksMu.Lock()
	defer ix.bookmarksMu.Unlock()
	for i, existing := range ix.bookmarks {
		if existing.Name == b.Name {
			ix.bookmarks[i] = b
			return
		}
	}
	ix.bookmarks = append(ix.bookmarks, b)
}

// RemoveBookmark drops a bookmark by name. The caller is responsible
// for clearing its subtree from the index via RemoveSubtree.
func (ix *Index) RemoveBookmark(name string) (types.Bookmark, bool) {
	ix.bookmarksMu.Lock()
	defer ix.bookmarksMu.Unlock()
	for i, b := range ix.bookmarks {
		if b.Name == name {
			ix.bookmarks = append(ix.bookmarks[:i], ix.bookmarks[i+1:]...)
			return b, true
		}
	}
	return types.Bookmark{}, false
}

// Bookmarks returns a copy of every registered bookmark.
func (ix *Index) Bookmarks() []types.Bookmark {
	ix.bookmarksMu.RLock()
	defer ix.bookmarksMu.RUnlock()
	out := make([]types.Bookmark, len(ix.bookmarks))
	copy(out, ix.bookmarks)
	return out
}

// BookmarkCount returns the number of registered bookmarks.
func (ix *Index) BookmarkCount() int {
	ix.bookmarksMu.RLock()
	defer ix.bookmarksMu.RUnlock()
	return len(ix.bookmarks)
}

// Lookup returns the registered bookmark whose name matches exactly.
func (ix *Index) Lookup(name string) (types.Bookmark, bool) {
	ix.bookmarksMu.RLock()
	defer ix.bookmarksMu.RUnlock()
	for _, b := range ix.bookmarks {
		if b.Name == name {
			return b, true
		}
	}
	return types.Bookmark{}, false
}
