// Package daemon wires the Scanner, Watcher, Rescanner, Sweeper,
// Persistence Writer and Control Server into one long-lived process
// and owns their coordinated startup and shutdown.
package daemon

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/nixnav/indexd/internal/config"
	"github.com/nixnav/indexd/internal/integrity"
	"github.com/nixnav/indexd/internal/mount"
	"github.com/nixnav/indexd/internal/persist"
	"github.com/nixnav/indexd/internal/rescan"
	"github.com/nixnav/indexd/internal/scanner"
	"github.com/nixnav/indexd/internal/server"
	"github.com/nixnav/indexd/internal/trigramindex"
	"github.com/nixnav/indexd/internal/types"
	"github.com/nixnav/indexd/internal/watcher"
)

// Daemon owns every long-running component's lifecycle.
type Daemon struct {
	cfg    *config.Config
	index  *trigramindex.Index
	writer *persist.Writer

	scan      *scanner.Scanner
	fsWatcher *watcher.Watcher
	rescanner *rescan.Rescanner
	sweeper   *integrity.Sweeper
	ctlServer *server.Server
}

// New builds a Daemon from cfg. It opens the persistence store and
// reloads the index from it, but does not yet start any background
// loop; call Run for that.
func New(cfg *config.Config) (*Daemon, error) {
	writer, err := persist.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	index := trigramindex.New()
	entries, bookmarks, err := writer.Load(context.Background())
	if err != nil {
		return nil, err
	}
	index.LoadEntries(entries)
	for _, b := range bookmarks {
		index.AddBookmark(b)
	}

	sc := &scanner.Scanner{Index: index, Writer: writer, ExtraGlobs: cfg.ExcludeGlobs}

	fsWatcher, err := watcher.New(index, writer, func(err error) {
		log.Printf("watcher subscription failure, continuing with stale-but-eventually-consistent data: %v", err)
	})
	if err != nil {
		return nil, err
	}
	fsWatcher.ExtraGlobs = cfg.ExcludeGlobs

	rescanner := rescan.New(index, sc.Walk)
	rescanner.Interval = cfg.RescanInterval

	sweeper := integrity.New(index, writer)
	sweeper.Interval = cfg.IntegrityInterval
	sweeper.BatchSize = cfg.IntegrityBatch

	ctlServer := &server.Server{SocketPath: cfg.SocketPath}
	handler := &server.Handler{
		Index:  index,
		Scan:   sc.Walk,
		Writer: writer,
		SaveBookmark: func(b types.Bookmark) error {
			writer.Enqueue(persist.Op{Kind: persist.SaveBookmark, Bookmark: b})
			return nil
		},
	}
	ctlServer.Dispatch = handler.Dispatch

	return &Daemon{
		cfg: cfg, index: index, writer: writer,
		scan: sc, fsWatcher: fsWatcher, rescanner: rescanner,
		sweeper: sweeper, ctlServer: ctlServer,
	}, nil
}

// Run starts every background component, registers watches on every
// non-network bookmark, and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.writer.Run(ctx)
		return nil
	})

	for _, b := range d.index.Bookmarks() {
		if b.IsNetwork || mount.IsNetworkMount(b.Path) {
			continue
		}
		if err := d.fsWatcher.AddRoot(b.Path); err != nil {
			log.Printf("failed to watch bookmark %s: %v", b.Name, err)
		}
	}
	g.Go(func() error {
		d.fsWatcher.Run()
		return nil
	})

	g.Go(func() error {
		d.rescanner.Run(ctx)
		return nil
	})

	g.Go(func() error {
		d.sweeper.Run(ctx)
		return nil
	})

	if err := d.ctlServer.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	return d.shutdown(g)
}

func (d *Daemon) shutdown(g *errgroup.Group) error {
	_ = d.ctlServer.Shutdown()
	_ = d.fsWatcher.Close()
	err := g.Wait()
	if closeErr := d.writer.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Index exposes the underlying index, for callers (CLI one-shot
// commands) that want to query it in-process rather than over the
// socket.
func (d *Daemon) Index() *trigramindex.Index { return d.index }

// Scanner exposes the scanner, for ADD_BOOKMARK/RESCAN one-shot CLI use.
func (d *Daemon) Scanner() *scanner.Scanner { return d.scan }
