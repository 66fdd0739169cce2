// Package config loads the daemon's KDL configuration: the control
// socket and database paths, the network-rescan and integrity-sweep
// intervals, the integrity batch size, user-supplied exclusion globs,
// and the bookmark list. A global file (~/.indexd.kdl) and an
// optional instance-level file are merged, with instance settings
// taking precedence, matching the merge-global-then-project pattern
// the rest of this codebase's configuration loading has always used.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	indexerrors "github.com/nixnav/indexd/internal/errors"
	"github.com/nixnav/indexd/internal/server"
	"github.com/nixnav/indexd/internal/types"
)

// Bookmark is a configured root, prior to network-mount classification.
type Bookmark struct {
	Name string
	Path string
}

// Config is the full set of daemon settings.
type Config struct {
	SocketPath        string
	DatabasePath      string
	RescanInterval    time.Duration
	IntegrityInterval time.Duration
	IntegrityBatch    int
	ExcludeGlobs      []string
	Bookmarks         []Bookmark
}

// Default returns the baseline configuration used when no KDL file is
// present.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		SocketPath:        filepath.Join(home, ".indexd", "indexd.sock"),
		DatabasePath:      filepath.Join(home, ".indexd", "indexd.db"),
		RescanInterval:    types.NetworkRescanIntervalSeconds * time.Second,
		IntegrityInterval: types.IntegrityCheckIntervalSeconds * time.Second,
		IntegrityBatch:    types.IntegrityBatchSize,
	}
}

// Load merges ~/.indexd.kdl with instanceDir/.indexd.kdl, if present,
// instance settings winning on conflict. A missing file on either path
// is not an error. The default socket path is derived from instanceDir
// so that daemons running over different roots don't collide; an
// explicit `socket` node in either KDL file still overrides it.
func Load(instanceDir string) (*Config, error) {
	cfg := Default()
	if instanceDir != "" {
		cfg.SocketPath = server.SocketPathForRoot(instanceDir)
	}

	if home, err := os.UserHomeDir(); err == nil {
		if err := mergeFile(cfg, filepath.Join(home, ".indexd.kdl")); err != nil {
			return nil, err
		}
	}
	if instanceDir != "" {
		if err := mergeFile(cfg, filepath.Join(instanceDir, ".indexd.kdl")); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return indexerrors.NewConfigError("file", path, err)
	}

	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return indexerrors.NewConfigError("parse", path, err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "socket":
			if s, ok := firstStringArg(n); ok {
				cfg.SocketPath = s
			}
		case "database":
			if s, ok := firstStringArg(n); ok {
				cfg.DatabasePath = s
			}
		case "rescan_interval_secs":
			if v, ok := firstIntArg(n); ok {
				cfg.RescanInterval = time.Duration(v) * time.Second
			}
		case "integrity_interval_secs":
			if v, ok := firstIntArg(n); ok {
				cfg.IntegrityInterval = time.Duration(v) * time.Second
			}
		case "integrity_batch_size":
			if v, ok := firstIntArg(n); ok {
				cfg.IntegrityBatch = v
			}
		case "exclude":
			cfg.ExcludeGlobs = append(cfg.ExcludeGlobs, collectStringArgs(n)...)
		case "bookmark":
			if b, ok := parseBookmarkNode(n); ok {
				cfg.Bookmarks = appendOrReplaceBookmark(cfg.Bookmarks, b)
			}
		}
	}
	return nil
}

func parseBookmarkNode(n *document.Node) (Bookmark, bool) {
	var name, path string
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "name":
			if s, ok := firstStringArg(cn); ok {
				name = s
			}
		case "path":
			if s, ok := firstStringArg(cn); ok {
				path = s
			}
		}
	}
	if name == "" {
		if s, ok := firstStringArg(n); ok {
			name = s
		}
	}
	if name == "" || path == "" {
		return Bookmark{}, false
	}
	return Bookmark{Name: name, Path: path}, true
}

func appendOrReplaceBookmark(bookmarks []Bookmark, b Bookmark) []Bookmark {
	for i, existing := range bookmarks {
		if existing.Name == b.Name {
			bookmarks[i] = b
			return bookmarks
		}
	}
	return append(bookmarks, b)
}

// Save appends a bookmark node to the instance-level config file,
// creating it if necessary. Existing nodes are left in place; on the
// next load, a later node with the same name replaces an earlier one.
func Save(instanceDir string, b Bookmark) error {
	path := filepath.Join(instanceDir, ".indexd.kdl")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return indexerrors.NewConfigError("file", path, err)
	}
	line := fmt.Sprintf("bookmark %q {\n    path %q\n}\n", b.Name, b.Path)
	out := append(existing, []byte(line)...)
	return os.WriteFile(path, out, 0o644)
}
