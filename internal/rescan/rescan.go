// Package rescan implements the Network Rescanner: a periodic re-walk
// of every bookmark classified as a network mount, where filesystem
// event notifications are unreliable.
package rescan

import (
	"context"
	"time"

	"github.com/nixnav/indexd/internal/debug"
	"github.com/nixnav/indexd/internal/trigramindex"
)

const defaultInterval = 300 * time.Second

// Rescanner periodically rescans every network-mount bookmark. It
// does not remove stale entries; that is the Integrity Sweeper's job.
type Rescanner struct {
	Index    *trigramindex.Index
	Scan     func(root string) (int, error)
	Interval time.Duration
}

// New returns a Rescanner using the fixed 300s interval unless
// overridden.
func New(idx *trigramindex.Index, scan func(string) (int, error)) *Rescanner {
	return &Rescanner{Index: idx, Scan: scan, Interval: defaultInterval}
}

// Run rescans every network bookmark on each tick until ctx is
// cancelled. It should run in its own goroutine for the life of the
// daemon.
func (r *Rescanner) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.rescanNetworkBookmarks()
		case <-ctx.Done():
			return
		}
	}
}

func (r *Rescanner) rescanNetworkBookmarks() {
	for _, b := range r.Index.Bookmarks() {
		if !b.IsNetwork {
			continue
		}
		n, err := r.Scan(b.Path)
		if err != nil {
			debug.LogScan("network rescan of %s failed: %v", b.Path, err)
			continue
		}
		debug.LogScan("network rescan of %s indexed %d entries", b.Path, n)
	}
}
