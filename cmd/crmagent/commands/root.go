package commands

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/zentriq/crmagent/internal/app"
)

const version = "0.1.0"

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:    "crmagent",
		Usage:   "Zoho CRM agent over MCP tools",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: string(app.DefaultConfigLogFormat),
			},
		},
		Commands: []*cli.Command{
			runCommand(),
			setupCommand(),
		},
	}

	return cmd.Run(ctx, args)
}
