package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/nixnav/indexd/internal/config"
	"github.com/nixnav/indexd/internal/daemon"
	"github.com/nixnav/indexd/internal/version"
)

func main() {
	app := &cli.App{
		Name:    "indexd",
		Usage:   "trigram path-index daemon and control client",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Usage: "instance directory holding an optional .indexd.kdl"},
			&cli.StringFlag{Name: "socket", Usage: "override the control socket path"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			bookmarkCommand(),
			rescanCommand(),
			searchCommand(),
			searchAllCommand(),
			statsCommand(),
			pingCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("root"))
	if err != nil {
		return nil, err
	}
	if s := c.String("socket"); s != "" {
		cfg.SocketPath = s
	}
	return cfg, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the indexing daemon in the foreground",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			d, err := daemon.New(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return d.Run(ctx)
		},
	}
}

func bookmarkCommand() *cli.Command {
	return &cli.Command{
		Name:  "bookmark",
		Usage: "manage bookmarks",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "register and scan a new bookmark root",
				ArgsUsage: "<name> <path>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("expected <name> <path>")
					}
					payload, err := json.Marshal(map[string]string{
						"name": c.Args().Get(0),
						"path": c.Args().Get(1),
					})
					if err != nil {
						return err
					}
					return sendCommand(c, "ADD_BOOKMARK "+string(payload))
				},
			},
			{
				Name:      "remove",
				Usage:     "unregister a bookmark and drop its subtree",
				ArgsUsage: "<name>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return fmt.Errorf("expected <name>")
					}
					return sendCommand(c, "REMOVE_BOOKMARK "+c.Args().Get(0))
				},
			},
		},
	}
}

func rescanCommand() *cli.Command {
	return &cli.Command{
		Name:      "rescan",
		Usage:     "clear and rescan a root",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected <path>")
			}
			return sendCommand(c, "RESCAN "+c.Args().Get(0))
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "single-root substring search",
		ArgsUsage: "<bookmark-path> <query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Value: "all"},
			&cli.StringFlag{Name: "extension"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return fmt.Errorf("expected <bookmark-path> <query>")
			}
			payload, err := json.Marshal(map[string]string{
				"bookmark_path": c.Args().Get(0),
				"mode":          c.String("mode"),
				"query":         c.Args().Get(1),
				"extension":     c.String("extension"),
			})
			if err != nil {
				return err
			}
			return sendCommand(c, "SEARCH "+string(payload))
		},
	}
}

func searchAllCommand() *cli.Command {
	return &cli.Command{
		Name:      "search-all",
		Usage:     "cross-root substring search",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "bookmark"},
			&cli.StringFlag{Name: "extension"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected <query>")
			}
			payload, err := json.Marshal(map[string]interface{}{
				"bookmark_paths": c.StringSlice("bookmark"),
				"query":          c.Args().Get(0),
				"extension":      c.String("extension"),
			})
			if err != nil {
				return err
			}
			return sendCommand(c, "SEARCH_ALL "+string(payload))
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print index statistics",
		Action: func(c *cli.Context) error {
			return sendCommand(c, "STATS")
		},
	}
}

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:  "ping",
		Usage: "check daemon liveness",
		Action: func(c *cli.Context) error {
			return sendCommand(c, "PING")
		},
	}
}

func sendCommand(c *cli.Context, line string) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	conn, err := net.Dial("unix", cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.SocketPath, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintln(conn, line); err != nil {
		return err
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if scanner.Scan() {
		fmt.Println(scanner.Text())
	}
	return scanner.Err()
}
