package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ehwaz/internal"
	"github.com/starford/ehwaz/internal/backlinks"
	"github.com/starford/ehwaz/internal/mcpserver"
	"github.com/starford/ehwaz/internal/noteservice"
	"github.com/starford/ehwaz/internal/notestore"
	pkgconfig "github.com/starford/ehwaz/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(configPath, cfg, internal.NewDefaultConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// runMCP serves the link engine's tools over MCP stdio. Logs go to stderr
// so stdout stays clean for the protocol.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	store, err := notestore.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init fs store: %w", err)
	}

	idx := backlinks.New(cfg.Engine.ContextWindow)
	validator := backlinks.NewValidator(idx, cfg.Engine.SuggestionFloor, cfg.Engine.MaxSuggestions)
	svc := noteservice.NewService(store, idx, validator, cfg.Engine.SearchThreshold)

	count, err := svc.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	logger.Info("Index built", slog.Int("notes", count))

	return mcpserver.New(svc).ServeStdio()
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "ehwaz",
		Usage:  "Note-linking engine with wiki-link backlinks, link repair, and knowledge graph analytics",
		Action: run,
		Flags:  []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the link engine tools over MCP stdio",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag()},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
