package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/zentriq/crmagent/internal/authflow"
	"github.com/zentriq/crmagent/internal/observability"
	"github.com/zentriq/crmagent/internal/tokenstore"
)

func setupCommand() *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "one-time OAuth authorization to seed the token store",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "manual",
				Usage: "paste the redirect URL instead of running the local callback server",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "re-run authorization even if a token record exists",
			},
		},
		Action: setupAction,
	}
}

func setupAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}
	defer func() {
		if err := observability.Shutdown(context.Background()); err != nil {
			slog.Error("log export shutdown failed", "error", err)
		}
	}()

	if !cfg.OAuthConfigured() {
		return errors.New("Zoho OAuth client credentials are not configured, set CRMAGENT_ZOHO__CLIENT_ID and CRMAGENT_ZOHO__CLIENT_SECRET")
	}

	store, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return fmt.Errorf("failed to create token store: %w", err)
	}

	if !cmd.Bool("force") {
		if record, err := store.Read(ctx); err == nil && record.RefreshToken != "" {
			fmt.Println("Already authenticated. Tokens are stored and refresh automatically.")
			fmt.Println("Re-run with --force to authorize again.")
			return nil
		}
	}

	flow, err := authflow.New(cfg.NewOAuthConfig(), store)
	if err != nil {
		return err
	}

	fmt.Println("Visit this URL in your browser to authorize the application:")
	fmt.Println()
	fmt.Println("  " + flow.AuthorizationURL())
	fmt.Println()

	code, err := obtainCode(ctx, cmd, flow)
	if err != nil {
		return err
	}

	record, err := flow.Exchange(ctx, code)
	if err != nil {
		return err
	}

	reportSuccess(record)
	return nil
}

// obtainCode collects the authorization code, preferring the loopback
// callback server and falling back to an interactive paste when the server
// cannot run and a terminal is attached.
func obtainCode(ctx context.Context, cmd *cli.Command, flow *authflow.Flow) (string, error) {
	if cmd.Bool("manual") {
		return readPastedCode(flow)
	}

	fmt.Println("Waiting for the authorization redirect (Ctrl+C to abort)...")
	code, err := flow.WaitForCode(ctx)
	if err == nil {
		return code, nil
	}
	if ctx.Err() != nil {
		return "", err
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", err
	}
	fmt.Printf("Callback server unavailable (%v), falling back to manual entry.\n", err)
	return readPastedCode(flow)
}

func readPastedCode(flow *authflow.Flow) (string, error) {
	fmt.Print("Paste the full redirect URL here: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading redirect URL: %w", err)
	}

	redirectURL := strings.TrimSpace(line)
	if redirectURL == "" {
		return "", errors.New("no redirect URL provided")
	}

	return flow.ExtractCode(redirectURL)
}

func reportSuccess(record *tokenstore.Token) {
	fmt.Println()
	fmt.Println("Successfully obtained tokens.")
	fmt.Printf("  - Access token expires at: %s\n", record.Expiry.Format("2006-01-02 15:04:05 MST"))
	if record.APIDomain != "" {
		fmt.Printf("  - API domain: %s\n", record.APIDomain)
	}
	fmt.Println()
	fmt.Println("Tokens are saved and refresh automatically; setup does not need to run again.")
}
