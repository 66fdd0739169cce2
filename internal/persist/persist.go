// Package persist is the daemon's Persistence Writer: a single
// consumer draining a channel of mutation operations and applying them
// to a SQLite-backed durable store. It is never read by the query
// path; the in-memory index stays authoritative at runtime.
package persist

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nixnav/indexd/internal/debug"
	indexerrors "github.com/nixnav/indexd/internal/errors"
	"github.com/nixnav/indexd/internal/types"

	_ "modernc.org/sqlite"
)

// OpKind distinguishes the mutation kinds the writer accepts: the four
// the spec's Persistence Writer mandates, plus RemoveBookmarkByName
// for the supplemented REMOVE_BOOKMARK command.
type OpKind int

const (
	SaveEntry OpKind = iota
	RemoveEntryByPath
	SaveBookmark
	ClearEntriesUnderPrefix
	RemoveBookmarkByName
)

// Op is one queued mutation. Only the fields relevant to Kind are set.
type Op struct {
	Kind     OpKind
	Entry    types.Entry
	Path     string
	Prefix   string
	Bookmark types.Bookmark
	Name     string // bookmark name, for RemoveBookmarkByName
}

// Writer owns the SQLite connection and the channel producers enqueue
// operations onto. One goroutine (Run) is the sole consumer; producers
// from a single source are applied in FIFO order.
type Writer struct {
	db  *sql.DB
	ops chan Op
}

// Open opens (or creates) the SQLite store at path, ensures its
// schema, and applies the durability pragmas: write-ahead logging,
// relaxed synchronous mode, in-memory temp storage. A crash may lose
// the most recent mutations but must never corrupt the store.
func Open(path string) (*Writer, error) {
	if path == "" {
		return nil, indexerrors.NewFatalError("persist.Open", fmt.Errorf("path is required"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, indexerrors.NewFatalError("persist.Open", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, indexerrors.NewFatalError("persist.Open", err)
	}

	w := &Writer{db: db, ops: make(chan Op, 4096)}
	if err := w.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, indexerrors.NewFatalError("persist.ensureSchema", err)
	}
	return w, nil
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA synchronous = NORMAL;`,
		`PRAGMA temp_store = MEMORY;`,
		`CREATE TABLE IF NOT EXISTS files (
			id      INTEGER PRIMARY KEY,
			path    TEXT NOT NULL UNIQUE,
			is_dir  INTEGER NOT NULL,
			mtime   INTEGER NOT NULL,
			size    INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);`,
		`CREATE INDEX IF NOT EXISTS idx_files_mtime ON files(mtime);`,
		`CREATE TABLE IF NOT EXISTS bookmarks (
			name       TEXT PRIMARY KEY,
			path       TEXT NOT NULL UNIQUE,
			is_network INTEGER NOT NULL,
			last_scan  INTEGER
		);`,
	}
	for _, stmt := range stmts {
		if _, err := w.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

// Enqueue submits op for application. Enqueue never blocks the caller
// on I/O; the channel send may block only if the queue is saturated,
// which is an acceptable suspension point everywhere except the
// watcher's notification callback (see internal/watcher).
func (w *Writer) Enqueue(op Op) {
	w.ops <- op
}

// Run drains the operation channel until ctx is cancelled or the
// channel is closed, applying each operation in arrival order. It is
// meant to run in its own goroutine for the life of the daemon.
func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case op, ok := <-w.ops:
			if !ok {
				return
			}
			if err := w.apply(ctx, op); err != nil {
				// Persistence failures are logged and the mutation is
				// not unwound: the in-memory index remains
				// authoritative and divergence self-heals on the next
				// load cycle.
				perr := indexerrors.NewPersistError(opName(op.Kind), err)
				debug.LogPersist("[%s] %v", perr.Type(), perr)
			}
		case <-ctx.Done():
			w.drain(ctx)
			return
		}
	}
}

// drain applies whatever remains buffered in the channel before Run
// returns, so a graceful shutdown never silently drops a queued
// mutation.
func (w *Writer) drain(ctx context.Context) {
	for {
		select {
		case op, ok := <-w.ops:
			if !ok {
				return
			}
			if err := w.apply(ctx, op); err != nil {
				perr := indexerrors.NewPersistError(opName(op.Kind), err)
				debug.LogPersist("drain: [%s] %v", perr.Type(), perr)
			}
		default:
			return
		}
	}
}

// opName renders an OpKind for error messages and log lines.
func opName(kind OpKind) string {
	switch kind {
	case SaveEntry:
		return "SaveEntry"
	case RemoveEntryByPath:
		return "RemoveEntryByPath"
	case SaveBookmark:
		return "SaveBookmark"
	case ClearEntriesUnderPrefix:
		return "ClearEntriesUnderPrefix"
	case RemoveBookmarkByName:
		return "RemoveBookmarkByName"
	default:
		return fmt.Sprintf("OpKind(%d)", kind)
	}
}

func (w *Writer) apply(ctx context.Context, op Op) error {
	switch op.Kind {
	case SaveEntry:
		e := op.Entry
		_, err := w.db.ExecContext(ctx,
			`INSERT INTO files (id, path, is_dir, mtime, size) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET path = excluded.path, is_dir = excluded.is_dir, mtime = excluded.mtime, size = excluded.size`,
			e.ID, e.Path, boolToInt(e.IsDir), e.Mtime, e.Size)
		return err
	case RemoveEntryByPath:
		_, err := w.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, op.Path)
		return err
	case SaveBookmark:
		b := op.Bookmark
		_, err := w.db.ExecContext(ctx,
			`INSERT INTO bookmarks (name, path, is_network) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET path = excluded.path, is_network = excluded.is_network`,
			b.Name, b.Path, boolToInt(b.IsNetwork))
		return err
	case ClearEntriesUnderPrefix:
		// substr comparison rather than LIKE: a path containing a
		// literal % or _ must not be treated as a wildcard.
		_, err := w.db.ExecContext(ctx,
			`DELETE FROM files WHERE substr(path, 1, length(?)) = ?`,
			op.Prefix, op.Prefix)
		return err
	case RemoveBookmarkByName:
		_, err := w.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE name = ?`, op.Name)
		return err
	default:
		return fmt.Errorf("unknown op kind %d", op.Kind)
	}
}

// Load reconstructs every persisted entry and bookmark. Posting lists
// are never persisted; the caller re-extracts trigrams for each
// returned entry via Index.LoadEntries.
func (w *Writer) Load(ctx context.Context) ([]types.Entry, []types.Bookmark, error) {
	entries, err := w.loadEntries(ctx)
	if err != nil {
		return nil, nil, err
	}
	bookmarks, err := w.loadBookmarks(ctx)
	if err != nil {
		return nil, nil, err
	}
	return entries, bookmarks, nil
}

func (w *Writer) loadEntries(ctx context.Context) ([]types.Entry, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT id, path, is_dir, mtime, size FROM files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Entry
	for rows.Next() {
		var e types.Entry
		var isDir int
		if err := rows.Scan(&e.ID, &e.Path, &isDir, &e.Mtime, &e.Size); err != nil {
			return nil, err
		}
		e.IsDir = isDir != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func (w *Writer) loadBookmarks(ctx context.Context) ([]types.Bookmark, error) {
	rows, err := w.db.QueryContext(ctx, `SELECT name, path, is_network FROM bookmarks`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Bookmark
	for rows.Next() {
		var b types.Bookmark
		var isNetwork int
		if err := rows.Scan(&b.Name, &b.Path, &isNetwork); err != nil {
			return nil, err
		}
		b.IsNetwork = isNetwork != 0
		out = append(out, b)
	}
	return out, rows.Err()
}

// Close applies any operations still buffered in the channel, then
// closes the channel and the underlying database connection. Callers
// should stop the Run goroutine (cancel its context) before calling
// Close.
func (w *Writer) Close() error {
	w.drain(context.Background())
	close(w.ops)
	return w.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
