package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/herald/internal"
	pkgconfig "github.com/starford/herald/pkg/config"
)

// loadConfig builds the configuration from defaults, the config file and
// the command-line flags, in increasing priority. The default config file
// may be absent; one named explicitly must exist.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if cmd.IsSet("config") {
		if err := pkgconfig.Read(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if _, err := pkgconfig.ReadIfExists(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if v := cmd.String("source"); v != "" {
		cfg.Source.Path = v
	}
	if v := cmd.String("repo"); v != "" {
		cfg.Site.RepoPath = v
	}
	if v := cmd.String("repo-url"); v != "" {
		cfg.Site.RepoURL = v
	}
	if v := cmd.String("log-level"); v != "" {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}
	if cmd.Bool("no-git") {
		cfg.Git.Enabled = false
	}

	if err := pkgconfig.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func syncOnce(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	summary, err := internal.SyncOnce(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if summary != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(summary); encErr != nil {
			return encErr
		}
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

func preview(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("preview: expected exactly one note path")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Preview(ctx, cmd.Args().First(), os.Stdout,
		internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("APP_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "source",
			Aliases: []string{"s"},
			Usage:   "Notes directory to publish from",
			Sources: cli.EnvVars("SOURCE_DIR"),
		},
		&cli.StringFlag{
			Name:    "repo",
			Aliases: []string{"r"},
			Usage:   "Site repository working tree",
			Sources: cli.EnvVars("REPO_ROOT"),
		},
		&cli.StringFlag{
			Name:    "repo-url",
			Usage:   "Remote to clone the site repository from when it is missing",
			Sources: cli.EnvVars("SITE_REPO_URL"),
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
		},
		&cli.BoolFlag{
			Name:  "no-git",
			Usage: "Do not pull, commit or push the site repository",
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "herald",
		Usage:  "Publish tagged Obsidian notes to a Hugo site repository",
		Action: run,
		Flags:  flags(),
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Publish on a schedule and on source changes, serve the HTTP API",
				Flags:  flags(),
				Action: run,
			},
			{
				Name:   "sync",
				Usage:  "Run a single publishing pass and print its summary",
				Flags:  flags(),
				Action: syncOnce,
			},
			{
				Name:      "preview",
				Usage:     "Print the document a note would be published as",
				ArgsUsage: "<note path>",
				Flags:     flags(),
				Action:    preview,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Flags:  flags(),
				Action: serveMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
