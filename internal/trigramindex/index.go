// Package trigramindex implements the in-memory posting-list index over
// filesystem path names: entries, per-trigram posting lists, and the
// path-to-id map, guarded by a single reader-writer lock.
package trigramindex

import (
	"sort"
	"strings"
	"sync"

	"github.com/nixnav/indexd/internal/types"
)

// Index holds every indexed entry and the trigram posting lists derived
// from their basenames and path components. Readers (Search, SearchAll,
// Snapshot, Stats) take a shared hold; writers (Add, Remove, AddBookmark)
// take an exclusive hold. Holds never span filesystem or channel I/O.
type Index struct {
	mu sync.RWMutex

	files    map[types.EntryID]types.Entry
	pathToID map[string]types.EntryID
	postings map[Trigram]map[types.EntryID]struct{}
	nextID   types.EntryID

	bookmarksMu sync.RWMutex
	bookmarks   []types.Bookmark
}

// New returns an empty index ready to accept entries.
func New() *Index {
	return &Index{
		files:    make(map[types.EntryID]types.Entry),
		pathToID: make(map[string]types.EntryID),
		postings: make(map[Trigram]map[types.EntryID]struct{}),
		nextID:   1,
	}
}

// Add inserts path, or updates mtime/size in place if path is already
// indexed. Posting lists are left untouched on an update since a path's
// trigram set never changes underneath it. Returns the entry's id.
func (ix *Index) Add(path string, isDir bool, mtime int64, size uint64) types.EntryID {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if id, ok := ix.pathToID[path]; ok {
		e := ix.files[id]
		e.Mtime = mtime
		e.Size = size
		ix.files[id] = e
		return id
	}

	id := ix.nextID
	ix.nextID++

	ix.files[id] = types.Entry{ID: id, Path: path, IsDir: isDir, Mtime: mtime, Size: size}
	ix.pathToID[path] = id

	for _, tok := range indexTokens(path) {
		for _, tg := range Extract(tok) {
			set, ok := ix.postings[tg]
			if !ok {
				set = make(map[types.EntryID]struct{})
				ix.postings[tg] = set
			}
			set[id] = struct{}{}
		}
	}

	return id
}

// LoadEntries restores entries exactly as persisted, preserving their
// ids and recomputing posting-list membership for each. Used only
// during startup reload; callers must not call it after the index has
// started serving Add/Remove.
func (ix *Index) LoadEntries(entries []types.Entry) {
	for _, e := range entries {
		ix.loadEntry(e)
	}
}

func (ix *Index) loadEntry(e types.Entry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.files[e.ID] = e
	ix.pathToID[e.Path] = e.ID
	if e.ID >= ix.nextID {
		ix.nextID = e.ID + 1
	}

	for _, tok := range indexTokens(e.Path) {
		for _, tg := range Extract(tok) {
			set, ok := ix.postings[tg]
			if !ok {
				set = make(map[types.EntryID]struct{})
				ix.postings[tg] = set
			}
			set[e.ID] = struct{}{}
		}
	}
}

// Remove deletes path's entry, if present, dropping its id from every
// posting list it contributed to. A missing path is a silent no-op.
func (ix *Index) Remove(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(path)
}

func (ix *Index) removeLocked(path string) {
	id, ok := ix.pathToID[path]
	if !ok {
		return
	}

	delete(ix.files, id)
	delete(ix.pathToID, path)

	for _, tok := range indexTokens(path) {
		for _, tg := range Extract(tok) {
			if set, ok := ix.postings[tg]; ok {
				delete(set, id)
				// Empty sets are retained rather than pruned: posting
				// lists for common trigrams churn on rapid add/remove
				// of the same basename otherwise.
			}
		}
	}
}

// RemoveSubtree removes every entry whose path begins with prefix,
// supporting RESCAN's clear-then-scan semantics and ClearEntriesUnderPrefix.
func (ix *Index) RemoveSubtree(prefix string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	var victims []string
	for p := range ix.pathToID {
		if p == prefix || strings.HasPrefix(p, prefix) {
			victims = append(victims, p)
		}
	}
	for _, p := range victims {
		ix.removeLocked(p)
	}
}

// indexTokens returns the basename and every non-empty path component,
// per the basename-plus-path-component indexing rule. If basename
// extraction yields nothing usable, the full path is used as fallback.
func indexTokens(path string) []string {
	parts := strings.Split(path, "/")
	tokens := make([]string, 0, len(parts)+1)

	base := ""
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			base = parts[i]
			break
		}
	}
	if base == "" {
		base = path
	}
	tokens = append(tokens, base)

	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}

	return tokens
}

// FileCount returns the number of indexed entries.
func (ix *Index) FileCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.files)
}

// TrigramCount returns the number of distinct trigrams with at least
// one entry. Empty-but-retained posting lists are not counted.
func (ix *Index) TrigramCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, set := range ix.postings {
		if len(set) > 0 {
			n++
		}
	}
	return n
}

// Snapshot returns every indexed path, for use by the integrity
// sweeper. The slice is a copy; it may be read and iterated after the
// lock is released.
func (ix *Index) Snapshot() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	paths := make([]string, 0, len(ix.pathToID))
	for p := range ix.pathToID {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// candidates returns the set of entry ids whose token set contains
// every trigram of query, or an empty set if the intersection is empty.
// A query shorter than three bytes yields no trigrams, signaled by
// ok=false so callers know to fall back to "every entry".
func (ix *Index) candidates(query string) (ids map[types.EntryID]struct{}, ok bool) {
	trigrams := Extract(query)
	if len(trigrams) == 0 {
		return nil, false
	}

	var result map[types.EntryID]struct{}
	for i, tg := range trigrams {
		set, present := ix.postings[tg]
		if !present || len(set) == 0 {
			return map[types.EntryID]struct{}{}, true
		}
		if i == 0 {
			result = make(map[types.EntryID]struct{}, len(set))
			for id := range set {
				result[id] = struct{}{}
			}
			continue
		}
		for id := range result {
			if _, inSet := set[id]; !inSet {
				delete(result, id)
			}
		}
		if len(result) == 0 {
			return result, true
		}
	}
	return result, true
}
