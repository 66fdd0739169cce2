package server

import (
	"encoding/json"
	"strings"
	"time"

	indexerrors "github.com/nixnav/indexd/internal/errors"
	"github.com/nixnav/indexd/internal/mount"
	"github.com/nixnav/indexd/internal/persist"
	"github.com/nixnav/indexd/internal/trigramindex"
	"github.com/nixnav/indexd/internal/types"
)

// Handler implements the command table in terms of an index and a
// scan function supplied by the daemon. RESCAN and ADD_BOOKMARK drive
// the scanner; REMOVE_BOOKMARK drops a bookmark and its subtree from
// the index; every other verb only reads the index.
type Handler struct {
	Index  *trigramindex.Index
	Scan   func(root string) (int, error)
	Writer *persist.Writer
	// SaveBookmark persists a newly registered bookmark; may be nil.
	SaveBookmark func(b types.Bookmark) error
}

// Dispatch parses one line of the control protocol and returns the
// single JSON response line to write back. It is safe to call
// concurrently from many connections.
func (h *Handler) Dispatch(line string) string {
	verb, rest := splitVerb(line)
	switch verb {
	case "PING":
		return encode(map[string]string{"status": "pong"})
	case "STATS":
		return encode(map[string]int{
			"files":     h.Index.FileCount(),
			"trigrams":  h.Index.TrigramCount(),
			"bookmarks": h.Index.BookmarkCount(),
		})
	case "SEARCH":
		return h.handleSearch(rest)
	case "SEARCH_ALL":
		return h.handleSearchAll(rest)
	case "ADD_BOOKMARK":
		return h.handleAddBookmark(rest)
	case "RESCAN":
		return h.handleRescan(rest)
	case "REMOVE_BOOKMARK":
		return h.handleRemoveBookmark(rest)
	default:
		return encode(map[string]string{"error": "unknown command"})
	}
}

func splitVerb(line string) (verb, rest string) {
	line = strings.TrimRight(line, "\r\n")
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return line, ""
	}
	return line[:idx], line[idx+1:]
}

func encode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"error":"internal encoding failure"}`
	}
	return string(b)
}

// typedError is implemented by every error in internal/errors, letting
// errorResponse surface the error's classification alongside its message.
type typedError interface {
	Type() indexerrors.ErrorType
}

func errorResponse(err error) string {
	resp := map[string]string{"error": err.Error()}
	if te, ok := err.(typedError); ok {
		resp["error_type"] = string(te.Type())
	}
	return encode(resp)
}

func (h *Handler) handleSearch(payload string) string {
	start := time.Now()
	var req types.SearchRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return errorResponse(indexerrors.NewClientError(payload, err))
	}
	results := h.Index.Search(req)
	return encode(map[string]interface{}{
		"results":        results,
		"total_indexed":  h.Index.FileCount(),
		"search_time_ms": time.Since(start).Milliseconds(),
	})
}

func (h *Handler) handleSearchAll(payload string) string {
	start := time.Now()
	var req types.SearchAllRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return errorResponse(indexerrors.NewClientError(payload, err))
	}
	results := h.Index.SearchAll(req)
	return encode(map[string]interface{}{
		"results":        results,
		"total_indexed":  h.Index.FileCount(),
		"search_time_ms": time.Since(start).Milliseconds(),
	})
}

func (h *Handler) handleAddBookmark(payload string) string {
	var b types.Bookmark
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		return errorResponse(indexerrors.NewClientError(payload, err))
	}
	b.IsNetwork = mount.IsNetworkMount(b.Path)
	h.Index.AddBookmark(b)
	if h.SaveBookmark != nil {
		if err := h.SaveBookmark(b); err != nil {
			return errorResponse(err)
		}
	}

	indexed, err := h.Scan(b.Path)
	if err != nil {
		return errorResponse(err)
	}
	return encode(map[string]interface{}{"status": "ok", "indexed": indexed})
}

func (h *Handler) handleRescan(payload string) string {
	root := strings.TrimSpace(payload)
	h.Index.RemoveSubtree(root)
	if h.Writer != nil {
		h.Writer.Enqueue(persist.Op{Kind: persist.ClearEntriesUnderPrefix, Prefix: root})
	}
	indexed, err := h.Scan(root)
	if err != nil {
		return errorResponse(err)
	}
	return encode(map[string]interface{}{"status": "ok", "indexed": indexed})
}

func (h *Handler) handleRemoveBookmark(payload string) string {
	name := strings.TrimSpace(payload)
	b, ok := h.Index.RemoveBookmark(name)
	if !ok {
		return encode(map[string]string{"error": "no such bookmark"})
	}
	h.Index.RemoveSubtree(b.Path)
	if h.Writer != nil {
		h.Writer.Enqueue(persist.Op{Kind: persist.ClearEntriesUnderPrefix, Prefix: b.Path})
		h.Writer.Enqueue(persist.Op{Kind: persist.RemoveBookmarkByName, Name: name})
	}
	return encode(map[string]string{"status": "ok"})
}
