package trigramindex

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/nixnav/indexd/internal/types"
)

// binaryExtensions is the edit-mode exclusion set: lowercase extensions
// (without the leading dot) never surfaced as editable files.
var binaryExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "bmp": {}, "ico": {}, "webp": {}, "svg": {}, "tiff": {}, "raw": {},
	"mp3": {}, "mp4": {}, "wav": {}, "avi": {}, "mkv": {}, "mov": {}, "flac": {}, "ogg": {}, "m4a": {}, "aac": {},
	"pdf": {}, "doc": {}, "docx": {}, "xls": {}, "xlsx": {}, "ppt": {}, "pptx": {},
	"zip": {}, "tar": {}, "gz": {}, "bz2": {}, "xz": {}, "7z": {}, "rar": {}, "zst": {},
	"exe": {}, "dll": {}, "so": {}, "dylib": {}, "a": {}, "o": {}, "obj": {},
	"bin": {}, "dat": {}, "db": {}, "sqlite": {}, "sqlite3": {},
	"ttf": {}, "otf": {}, "woff": {}, "woff2": {}, "eot": {},
	"class": {}, "jar": {}, "war": {}, "pyc": {}, "pyo": {}, "whl": {},
}

func isBinaryExtension(ext string) bool {
	ext = strings.ToLower(ext)
	if ext == "min.js" || ext == "min.css" {
		return true
	}
	_, ok := binaryExtensions[ext]
	return ok
}

// extensionOf returns path's extension without the leading dot, or ""
// if it has none.
func extensionOf(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimPrefix(ext, ".")
}

// Search answers a single-root query per the algorithm in the trigram
// index's single-root search specification: candidate generation,
// ordered filtering, mtime-descending ranking, MAX_RESULTS truncation.
func (ix *Index) Search(req types.SearchRequest) []types.SearchResult {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids, hasTrigrams := ix.candidates(req.Query)

	var entries []types.Entry
	if !hasTrigrams {
		entries = make([]types.Entry, 0, len(ix.files))
		for _, e := range ix.files {
			entries = append(entries, e)
		}
	} else {
		entries = make([]types.Entry, 0, len(ids))
		for id := range ids {
			entries = append(entries, ix.files[id])
		}
	}

	lowerQuery := strings.ToLower(req.Query)
	lowerExt := strings.ToLower(req.Extension)

	filtered := entries[:0:0]
	for _, e := range entries {
		if !strings.HasPrefix(e.Path, req.BookmarkPath) {
			continue
		}
		switch req.Mode {
		case types.ModeGotoDir:
			if !e.IsDir {
				continue
			}
		case types.ModeEdit, types.ModeGotoFile:
			if e.IsDir {
				continue
			}
		}
		if req.Mode == types.ModeEdit {
			if isBinaryExtension(extensionOf(e.Path)) {
				continue
			}
		}
		if req.Extension != "" {
			ext := extensionOf(e.Path)
			if ext == "" || strings.ToLower(ext) != lowerExt {
				continue
			}
		}
		if lowerQuery != "" && !strings.Contains(strings.ToLower(e.Path), lowerQuery) {
			continue
		}
		filtered = append(filtered, e)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Mtime != filtered[j].Mtime {
			return filtered[i].Mtime > filtered[j].Mtime
		}
		return filtered[i].ID < filtered[j].ID
	})

	if len(filtered) > types.MaxResults {
		filtered = filtered[:types.MaxResults]
	}

	results := make([]types.SearchResult, len(filtered))
	for i, e := range filtered {
		results[i] = types.SearchResult{Path: e.Path, IsDir: e.IsDir, Mtime: e.Mtime}
	}
	return results
}

// SearchAll answers a cross-root query: scope is the union of the
// requested bookmarks (or every bookmark if none are named), mode
// filtering is absent, and each surviving result is labeled with its
// owning bookmark's name.
func (ix *Index) SearchAll(req types.SearchAllRequest) []types.SearchAllResult {
	scope := ix.bookmarksInScope(req.BookmarkPaths)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids, hasTrigrams := ix.candidates(req.Query)

	var entries []types.Entry
	if !hasTrigrams {
		entries = make([]types.Entry, 0, len(ix.files))
		for _, e := range ix.files {
			entries = append(entries, e)
		}
	} else {
		entries = make([]types.Entry, 0, len(ids))
		for id := range ids {
			entries = append(entries, ix.files[id])
		}
	}

	lowerQuery := strings.ToLower(req.Query)
	lowerExt := strings.ToLower(req.Extension)

	type labeled struct {
		e    types.Entry
		name string
	}
	var filtered []labeled
	for _, e := range entries {
		name, ok := owningBookmark(scope, e.Path)
		if !ok {
			continue
		}
		if req.Extension != "" {
			ext := extensionOf(e.Path)
			if ext == "" || strings.ToLower(ext) != lowerExt {
				continue
			}
		}
		if lowerQuery != "" && !strings.Contains(strings.ToLower(e.Path), lowerQuery) {
			continue
		}
		filtered = append(filtered, labeled{e, name})
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].e.Mtime != filtered[j].e.Mtime {
			return filtered[i].e.Mtime > filtered[j].e.Mtime
		}
		return filtered[i].e.ID < filtered[j].e.ID
	})

	if len(filtered) > types.MaxResults {
		filtered = filtered[:types.MaxResults]
	}

	results := make([]types.SearchAllResult, len(filtered))
	for i, f := range filtered {
		results[i] = types.SearchAllResult{Path: f.e.Path, IsDir: f.e.IsDir, Mtime: f.e.Mtime, Bookmark: f.name}
	}
	return results
}

// bookmarksInScope returns the bookmarks named by paths, or every
// bookmark if paths is empty.
func (ix *Index) bookmarksInScope(paths []string) []types.Bookmark {
	ix.bookmarksMu.RLock()
	defer ix.bookmarksMu.RUnlock()

	if len(paths) == 0 {
		out := make([]types.Bookmark, len(ix.bookmarks))
		copy(out, ix.bookmarks)
		return out
	}

	want := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		want[p] = struct{}{}
	}
	var out []types.Bookmark
	for _, b := range ix.bookmarks {
		if _, ok := want[b.Path]; ok {
			out = append(out, b)
		}
	}
	return out
}

// owningBookmark finds the first scoped bookmark whose path prefixes
// entryPath, returning its name and true, or ("", false) if none do.
func owningBookmark(scope []types.Bookmark, entryPath string) (string, bool) {
	for _, b := range scope {
		if strings.HasPrefix(entryPath, b.Path) {
			return b.Name, true
		}
	}
	return "", false
}
