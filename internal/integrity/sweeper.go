// Package integrity implements the Integrity Sweeper: a periodic
// bounded-batch existence check over indexed paths that removes
// entries whose paths no longer resolve.
package integrity

import (
	"context"
	"os"
	"time"

	"github.com/nixnav/indexd/internal/debug"
	"github.com/nixnav/indexd/internal/persist"
	"github.com/nixnav/indexd/internal/trigramindex"
)

const (
	defaultInterval  = 60 * time.Second
	defaultBatchSize = 5000
)

// Sweeper walks the index in bounded batches using a rolling offset,
// so every entry is eventually revisited. The snapshot is taken under
// a read hold; existence checks run outside any index lock; removals
// re-acquire the write hold via Index.Remove.
type Sweeper struct {
	Index     *trigramindex.Index
	Writer    *persist.Writer
	Interval  time.Duration
	BatchSize int

	offset int
}

// New returns a Sweeper using the fixed 60s interval and 5000-entry
// batch size unless overridden.
func New(idx *trigramindex.Index, w *persist.Writer) *Sweeper {
	return &Sweeper{Index: idx, Writer: w, Interval: defaultInterval, BatchSize: defaultBatchSize}
}

// Run sweeps a batch on each tick until ctx is cancelled. It should
// run in its own goroutine for the life of the daemon.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sweeper) sweepOnce() {
	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	paths := s.Index.Snapshot()
	if len(paths) == 0 {
		return
	}

	batch := takeBatch(paths, s.offset, batchSize)
	advance := batchSize
	if advance > len(paths) {
		advance = len(paths)
	}
	s.offset = (s.offset + advance) % len(paths)

	removed := 0
	for _, path := range batch {
		if _, err := os.Lstat(path); err != nil {
			if os.IsNotExist(err) {
				s.Index.Remove(path)
				if s.Writer != nil {
					s.Writer.Enqueue(persist.Op{Kind: persist.RemoveEntryByPath, Path: path})
				}
				removed++
			}
			// Any other Lstat error is transient; leave the entry in
			// place and let a later sweep re-check it.
		}
	}
	if removed > 0 {
		debug.LogIndex("integrity sweep removed %d stale entries", removed)
	}
}

// takeBatch returns up to batchSize paths starting at offset, wrapping
// around to the start of paths when the batch would run past the end.
func takeBatch(paths []string, offset, batchSize int) []string {
	n := len(paths)
	if batchSize >= n {
		return paths
	}
	out := make([]string, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		out = append(out, paths[(offset+i)%n])
	}
	return out
}
