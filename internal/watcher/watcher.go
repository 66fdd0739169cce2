// Package watcher subscribes to filesystem notifications for non-network
// roots and translates them into index mutations and persistence
// operations.
package watcher

import (
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nixnav/indexd/internal/debug"
	indexerrors "github.com/nixnav/indexd/internal/errors"
	"github.com/nixnav/indexd/internal/exclude"
	"github.com/nixnav/indexd/internal/persist"
	"github.com/nixnav/indexd/internal/trigramindex"
	"github.com/nixnav/indexd/internal/types"
)

// eventType classifies a raw fsnotify event for debouncing purposes.
type eventType int

const (
	eventCreate eventType = iota
	eventWrite
	eventRemove
	eventRename
)

// Watcher recursively watches a set of non-network roots and applies
// create/modify/remove notifications to the index.
type Watcher struct {
	Index  *trigramindex.Index
	Writer *persist.Writer
	// ExtraGlobs are user-supplied exclusion globs, matched with
	// doublestar, applied in addition to the fixed exclusion set.
	ExtraGlobs []string

	fsw       *fsnotify.Watcher
	debouncer *eventDebouncer

	mu    sync.Mutex
	roots []string

	errFn func(error)
}

// New creates a watcher over idx, enqueueing persistence ops via w. If
// onError is non-nil it is invoked whenever the underlying subscription
// reports an error; the watcher keeps running regardless.
func New(idx *trigramindex.Index, w *persist.Writer, onError func(error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, indexerrors.NewSubscriptionError("", err)
	}
	watcher := &Watcher{Index: idx, Writer: w, fsw: fsw, errFn: onError}
	watcher.debouncer = newEventDebouncer(150*time.Millisecond, watcher)
	return watcher, nil
}

// AddRoot recursively subscribes to root and every existing
// subdirectory beneath it.
func (w *Watcher) AddRoot(root string) error {
	w.mu.Lock()
	w.roots = append(w.roots, root)
	w.mu.Unlock()

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			debug.LogWatch("metadata error walking %s for watch setup: %v", path, err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && exclude.IsDir(info.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			debug.LogWatch("failed to watch %s: %v", path, err)
		}
		return nil
	})
}

// excluded reports whether path should be dropped per the fixed
// exclusion set or the configured exclusion globs, matching the rules
// Scanner applies so a path pruned from the initial walk never
// re-enters the index through a filesystem event.
func (w *Watcher) excluded(path string) bool {
	if exclude.IsDir(filepath.Base(path)) {
		return true
	}
	return exclude.MatchesGlob(path, w.ExtraGlobs)
}

// Run processes fsnotify events until the watcher is closed. It should
// run in its own goroutine for the life of the daemon.
func (w *Watcher) Run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watch subscription error: %v", err)
			if w.errFn != nil {
				w.errFn(err)
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if w.excluded(ev.Name) {
		return
	}
	switch {
	case ev.Op&fsnotify.Create != 0:
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(ev.Name); err != nil {
				debug.LogWatch("failed to watch new directory %s: %v", ev.Name, err)
			}
		}
		w.debouncer.add(ev.Name, eventCreate)
	case ev.Op&fsnotify.Write != 0:
		w.debouncer.add(ev.Name, eventWrite)
	case ev.Op&fsnotify.Rename != 0:
		// The subscription delivers renames as remove-then-create for
		// the new path; no special handling is required beyond
		// eventual consistency.
		w.debouncer.add(ev.Name, eventRename)
	case ev.Op&fsnotify.Remove != 0:
		w.debouncer.add(ev.Name, eventRemove)
	}
}

// Close stops the underlying subscription and cancels any pending
// debounced flush.
func (w *Watcher) Close() error {
	w.debouncer.stop()
	return w.fsw.Close()
}

func (w *Watcher) applyCreateOrWrite(path string) {
	info, err := os.Stat(path)
	if err != nil {
		// Race with deletion: drop the event silently at the protocol
		// level, but still surface it through the opt-in debug log.
		ioErr := indexerrors.NewIOError("stat", path, err)
		debug.LogWatch("[%s] %v", ioErr.Type(), ioErr)
		return
	}
	isDir := info.IsDir()
	size := uint64(0)
	if !isDir {
		size = uint64(info.Size())
	}
	mtime := info.ModTime().Unix()
	id := w.Index.Add(path, isDir, mtime, size)
	if w.Writer != nil {
		w.Writer.Enqueue(persist.Op{
			Kind: persist.SaveEntry,
			Entry: types.Entry{
				ID: id, Path: path, IsDir: isDir,
				Mtime: mtime, Size: size,
			},
		})
	}
}

func (w *Watcher) applyRemove(path string) {
	w.Index.Remove(path)
	if w.Writer != nil {
		w.Writer.Enqueue(persist.Op{Kind: persist.RemoveEntryByPath, Path: path})
	}
}
