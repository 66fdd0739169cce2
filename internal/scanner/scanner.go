// Package scanner implements the recursive directory walk that seeds
// the index from a bookmark root and re-populates it on rescan.
package scanner

import (
	"os"
	"path/filepath"

	"github.com/nixnav/indexd/internal/debug"
	indexerrors "github.com/nixnav/indexd/internal/errors"
	"github.com/nixnav/indexd/internal/exclude"
	"github.com/nixnav/indexd/internal/persist"
	"github.com/nixnav/indexd/internal/trigramindex"
	"github.com/nixnav/indexd/internal/types"
)

// Scanner walks a root, indexing every visited file and directory and
// enqueueing a SaveEntry for each.
type Scanner struct {
	Index      *trigramindex.Index
	Writer     *persist.Writer
	ExtraGlobs []string // user-supplied exclusion globs, matched with doublestar
}

// Walk recursively visits root, pruning excluded directories and
// symbolic links, and returns the number of entries indexed. It
// tolerates individual metadata errors rather than aborting: an entry
// whose metadata cannot be read is logged and skipped, not indexed
// with zeroed fields.
func (s *Scanner) Walk(root string) (int, error) {
	count := 0

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			ioErr := indexerrors.NewIOError("walk", path, err)
			debug.LogScan("[%s] %v", ioErr.Type(), ioErr)
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		base := info.Name()
		if info.IsDir() {
			if path != root && exclude.IsDir(base) {
				return filepath.SkipDir
			}
			if s.matchesExtraGlob(path) {
				return filepath.SkipDir
			}
		} else if s.matchesExtraGlob(path) {
			return nil
		}

		mtime := info.ModTime().Unix()
		size := uint64(0)
		if !info.IsDir() {
			size = uint64(info.Size())
		}

		id := s.Index.Add(path, info.IsDir(), mtime, size)
		if s.Writer != nil {
			s.Writer.Enqueue(persist.Op{
				Kind: persist.SaveEntry,
				Entry: types.Entry{
					ID: id, Path: path, IsDir: info.IsDir(), Mtime: mtime, Size: size,
				},
			})
		}
		count++
		return nil
	})

	return count, err
}

func (s *Scanner) matchesExtraGlob(path string) bool {
	return exclude.MatchesGlob(path, s.ExtraGlobs)
}
