package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/zentriq/crmagent/internal/app"
	"github.com/zentriq/crmagent/internal/observability"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "connect to the MCP server and run the agent",
		ArgsUsage: "[prompt]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mcp--endpoint",
				Usage: "MCP server URL",
			},
			&cli.StringFlag{
				Name:  "llm--provider",
				Usage: "LLM provider (google|anthropic)",
			},
			&cli.StringFlag{
				Name:  "llm--model",
				Usage: "LLM model name",
			},
			&cli.BoolFlag{
				Name:  "agent--verbose",
				Usage: "stream intermediate reasoning steps",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}
	defer func() {
		if err := observability.Shutdown(context.Background()); err != nil {
			slog.Error("log export shutdown failed", "error", err)
		}
	}()

	application, err := app.New(cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	if prompt := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " ")); prompt != "" {
		return application.Run(ctx, prompt, os.Stdout)
	}

	return application.RunInteractive(ctx, os.Stdin, os.Stdout)
}
