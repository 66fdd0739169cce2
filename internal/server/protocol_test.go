package server

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/nixnav/indexd/internal/persist"
	"github.com/nixnav/indexd/internal/trigramindex"
	"github.com/nixnav/indexd/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() (*Handler, *trigramindex.Index) {
	idx := trigramindex.New()
	h := &Handler{
		Index: idx,
		Scan:  func(root string) (int, error) { return 0, nil },
	}
	return h, idx
}

func TestDispatchPing(t *testing.T) {
	h, _ := newTestHandler()
	assert.JSONEq(t, `{"status":"pong"}`, h.Dispatch("PING"))
}

func TestDispatchUnknownVerb(t *testing.T) {
	h, _ := newTestHandler()
	assert.JSONEq(t, `{"error":"unknown command"}`, h.Dispatch("FROBNICATE"))
}

func TestDispatchMalformedSearchPayload(t *testing.T) {
	h, _ := newTestHandler()
	resp := h.Dispatch("SEARCH not-json")

	var parsed map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp), &parsed))
	assert.Contains(t, parsed, "error")
}

func TestDispatchSearchReturnsIndexedEntries(t *testing.T) {
	h, idx := newTestHandler()
	idx.Add("/h/readme.md", false, 10, 1)

	payload, err := json.Marshal(types.SearchRequest{BookmarkPath: "/h", Mode: types.ModeAll, Query: "read"})
	require.NoError(t, err)

	resp := h.Dispatch("SEARCH " + string(payload))

	var decoded struct {
		Results []types.SearchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp), &decoded))
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, "/h/readme.md", decoded.Results[0].Path)
}

func TestDispatchRemoveBookmarkUnknownName(t *testing.T) {
	h, _ := newTestHandler()
	resp := h.Dispatch("REMOVE_BOOKMARK ghost")
	assert.JSONEq(t, `{"error":"no such bookmark"}`, resp)
}

func TestDispatchRescanEnqueuesClearEntriesUnderPrefix(t *testing.T) {
	w, err := persist.Open(filepath.Join(t.TempDir(), "indexd.db"))
	require.NoError(t, err)
	defer w.Close()

	w.Enqueue(persist.Op{Kind: persist.SaveEntry, Entry: types.Entry{ID: 1, Path: "/h/stale.txt", Mtime: 1}})
	runToCompletion(w)

	idx := trigramindex.New()
	idx.Add("/h/stale.txt", false, 1, 1)

	h := &Handler{
		Index:  idx,
		Scan:   func(root string) (int, error) { return 0, nil },
		Writer: w,
	}
	resp := h.Dispatch("RESCAN /h")
	assert.JSONEq(t, `{"status":"ok","indexed":0}`, resp)

	runToCompletion(w)
	entries, _, err := w.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDispatchRemoveBookmarkEnqueuesDurableCleanup(t *testing.T) {
	w, err := persist.Open(filepath.Join(t.TempDir(), "indexd.db"))
	require.NoError(t, err)
	defer w.Close()

	w.Enqueue(persist.Op{Kind: persist.SaveBookmark, Bookmark: types.Bookmark{Name: "home", Path: "/h"}})
	w.Enqueue(persist.Op{Kind: persist.SaveEntry, Entry: types.Entry{ID: 1, Path: "/h/a.txt", Mtime: 1}})
	runToCompletion(w)

	idx := trigramindex.New()
	idx.AddBookmark(types.Bookmark{Name: "home", Path: "/h"})
	idx.Add("/h/a.txt", false, 1, 1)

	h := &Handler{
		Index:  idx,
		Scan:   func(root string) (int, error) { return 0, nil },
		Writer: w,
	}
	resp := h.Dispatch("REMOVE_BOOKMARK home")
	assert.JSONEq(t, `{"status":"ok"}`, resp)

	runToCompletion(w)
	entries, bookmarks, err := w.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, bookmarks)
}

// runToCompletion drives the writer's consumer loop until every
// currently-queued op has been applied, by cancelling its context
// immediately: Run's ctx.Done branch drains the buffered channel
// synchronously before returning.
func runToCompletion(w *persist.Writer) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)
}
