// Package app wires configuration, the token manager, MCP tool discovery, and
// the agent runner into the steady-state control flow.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"golang.org/x/oauth2"

	"github.com/zentriq/crmagent/internal/agent"
	"github.com/zentriq/crmagent/internal/mcptools"
	"github.com/zentriq/crmagent/internal/tokensource"
)

// App orchestrates one agent process: configuration, credentials, tool
// discovery, and conversational turns. Execution is sequential; there is no
// shared mutable state across goroutines.
type App struct {
	cfg     *Config
	tokens  *tokensource.Manager
	version string
}

// New creates a new App instance.
func New(cfg *Config, version string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{
		cfg:     cfg,
		version: version,
	}

	// No I/O here - the first token read happens on connect
	if cfg.OAuthConfigured() {
		store, err := cfg.Auth.NewTokenStore()
		if err != nil {
			return nil, fmt.Errorf("failed to create token store: %w", err)
		}
		manager, err := tokensource.NewManager(cfg.NewOAuthConfig(), store)
		if err != nil {
			return nil, fmt.Errorf("failed to create token manager: %w", err)
		}
		a.tokens = manager
	}

	return a, nil
}

// session holds the per-run resources: the MCP connection and the configured
// reasoning loop.
type session struct {
	client *mcptools.Client
	llm    llms.Model
	runner *agent.Runner
}

func (a *App) newSession(ctx context.Context) (*session, error) {
	var tokens oauth2.TokenSource
	if a.tokens != nil {
		tokens = a.tokens
	} else {
		slog.WarnContext(ctx, "no OAuth client configured, connecting without bearer token")
	}

	client, err := mcptools.Connect(ctx, a.cfg.MCP.Endpoint, tokens, a.version)
	if err != nil {
		if errors.Is(err, tokensource.ErrAuthRequired) {
			return nil, fmt.Errorf("%w (run 'crmagent setup' to authenticate)", err)
		}
		return nil, fmt.Errorf("connecting to tool server: %w", err)
	}

	llm, err := agent.NewLLM(ctx, a.cfg.LLM.Provider, a.cfg.LLM.APIKey, a.cfg.LLM.Model, a.cfg.LLM.Temperature)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("creating LLM client: %w", err)
	}

	runner, err := agent.NewRunner(llm, mcptools.AgentTools(client), a.cfg.Agent.MaxIterations, a.cfg.Agent.Verbose)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &session{
		client: client,
		llm:    llm,
		runner: runner,
	}, nil
}

func (s *session) close() {
	if err := s.client.Close(); err != nil {
		slog.Error("closing MCP connection", "error", err)
	}
}

// turn refines the raw input into an actionable prompt, executes one agent
// turn, and writes the final answer.
func (s *session) turn(ctx context.Context, input string, out io.Writer) error {
	refined, err := agent.Refine(ctx, s.llm, input)
	if err != nil {
		return err
	}
	if refined != input {
		slog.DebugContext(ctx, "prompt refined", "prompt", refined)
	}

	answer, err := s.runner.Run(ctx, refined)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(out, answer)
	return nil
}

// Run executes a single conversational turn for the given prompt.
func (a *App) Run(ctx context.Context, prompt string, out io.Writer) error {
	sess, err := a.newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	return sess.turn(ctx, prompt, out)
}

// RunInteractive reads prompts from in until EOF or an exit command,
// executing one agent turn per line. Turn failures are reported and the loop
// continues; only session setup and context cancellation are fatal.
func (a *App) RunInteractive(ctx context.Context, in io.Reader, out io.Writer) error {
	sess, err := a.newSession(ctx)
	if err != nil {
		return err
	}
	defer sess.close()

	_, _ = fmt.Fprintln(out, "Zoho CRM agent ready. Type 'exit' to quit.")

	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if isExitCommand(input) {
			break
		}

		if err := sess.turn(ctx, input, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.ErrorContext(ctx, "agent turn failed", "error", err)
			_, _ = fmt.Fprintln(out, "The agent hit an error but is still running. Please try again.")
		}
	}

	return scanner.Err()
}

// isExitCommand reports whether a REPL line ends the session. Matching is
// case-insensitive.
func isExitCommand(input string) bool {
	switch strings.ToLower(input) {
	case "exit", "quit":
		return true
	}
	return false
}
