package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/journal/internal"
	"github.com/starford/journal/internal/index"
	"github.com/starford/journal/internal/models"
	"github.com/starford/journal/internal/search"
	pkgconfig "github.com/starford/journal/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Debug("config file not found, using defaults", slog.String("path", configPath))
	}
	// The environment wins over the file.
	cfg.ApplyEnv()
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// open builds the application for one-shot commands, logging to stderr.
func open(cmd *cli.Command) (*internal.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return internal.Open(internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func options(cmd *cli.Command) search.Options {
	return search.Options{
		Type:     models.EntryType(cmd.String("type")),
		Sections: cmd.StringSlice("section"),
		Limit:    int(cmd.Int("limit")),
	}
}

func searchCmd(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if query == "" {
		return fmt.Errorf("search: query argument is required")
	}
	a, err := open(cmd)
	if err != nil {
		return err
	}
	results, err := a.Engine.Search(ctx, query, options(cmd))
	if err != nil {
		return err
	}
	return printJSON(cmd.Root().Writer, results)
}

func recentCmd(ctx context.Context, cmd *cli.Command) error {
	a, err := open(cmd)
	if err != nil {
		return err
	}
	results, err := a.Engine.ListRecent(ctx, options(cmd))
	if err != nil {
		return err
	}
	return printJSON(cmd.Root().Writer, results)
}

func readCmd(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("read: path argument is required")
	}
	a, err := open(cmd)
	if err != nil {
		return err
	}
	content, err := a.Engine.ReadEntry(ctx, path)
	if err != nil {
		return err
	}
	_, err = io.WriteString(cmd.Root().Writer, content)
	return err
}

func writeCmd(ctx context.Context, cmd *cli.Command) error {
	content := strings.Join(cmd.Args().Slice(), " ")
	if content == "" || content == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("write: read stdin: %w", err)
		}
		content = string(data)
	}
	a, err := open(cmd)
	if err != nil {
		return err
	}
	note, err := a.Journal.WriteEntry(ctx, content)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.Root().Writer, note.Path)
	return err
}

func syncCmd(ctx context.Context, cmd *cli.Command) error {
	a, err := open(cmd)
	if err != nil {
		return err
	}
	start := time.Now()
	stats, err := index.Sync(ctx, a.Store, a.Indexer, a.Logger)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.Root().Writer, "indexed %d, fresh %d, failed %d, removed %d in %s\n",
		stats.Indexed, stats.Fresh, stats.Failed, stats.Removed, time.Since(start).Round(time.Millisecond))
	return err
}

func filterFlags(withSections bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "type",
			Usage: "Restrict to one journal (project or user)",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of results (0 uses search.default_limit)",
		},
	}
	if withSections {
		flags = append(flags, &cli.StringSliceFlag{
			Name:  "section",
			Usage: "Keep entries with a matching section label (repeatable)",
		})
	}
	return flags
}

func main() {
	cmd := &cli.Command{
		Name:   "journal",
		Usage:  "Private journal with semantic search over Markdown entries",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API with live re-indexing",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the journal tools over MCP stdio",
				Action: serveMCP,
			},
			{
				Name:      "search",
				Usage:     "Semantic search across entries",
				ArgsUsage: "<query>",
				Flags:     filterFlags(true),
				Action:    searchCmd,
			},
			{
				Name:   "recent",
				Usage:  "List the most recent entries",
				Flags:  filterFlags(false),
				Action: recentCmd,
			},
			{
				Name:      "read",
				Usage:     "Print the raw content of an entry",
				ArgsUsage: "<path>",
				Action:    readCmd,
			},
			{
				Name:      "write",
				Usage:     "Write an entry to the project journal (reads stdin when no text is given)",
				ArgsUsage: "[text]",
				Action:    writeCmd,
			},
			{
				Name:   "sync",
				Usage:  "Create missing embeddings and remove orphaned ones",
				Action: syncCmd,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
