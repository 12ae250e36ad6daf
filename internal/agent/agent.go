// Package agent configures the reasoning-and-acting loop over a language
// model and the discovered remote tools. The loop itself is langchaingo's
// prebuilt ReAct executor; this package only wires it.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/callbacks"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/tools"
)

// Provider identifies the language model backend.
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderAnthropic Provider = "anthropic"
)

// DefaultMaxIterations bounds the reasoning loop per conversational turn.
const DefaultMaxIterations = 10

// NewLLM creates a language model client for the given provider.
func NewLLM(ctx context.Context, provider Provider, apiKey, model string, temperature float64) (llms.Model, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for LLM provider %s", provider)
	}

	switch provider {
	case ProviderGoogle:
		return googleai.New(ctx,
			googleai.WithAPIKey(apiKey),
			googleai.WithDefaultModel(model),
			googleai.WithDefaultTemperature(temperature),
		)
	case ProviderAnthropic:
		return anthropic.New(
			anthropic.WithToken(apiKey),
			anthropic.WithModel(model),
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// Runner executes conversational turns against a configured ReAct executor.
type Runner struct {
	executor *agents.Executor
}

// NewRunner binds the model and tool set into a ReAct executor. When verbose
// is set, intermediate reasoning steps and tool invocations are streamed to
// stdout through the executor's callback hook.
func NewRunner(llm llms.Model, toolset []tools.Tool, maxIterations int, verbose bool) (*Runner, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	opts := []agents.Option{
		agents.WithMaxIterations(maxIterations),
	}
	if verbose {
		opts = append(opts, agents.WithCallbacksHandler(callbacks.LogHandler{}))
	}

	executor, err := agents.Initialize(llm, toolset, agents.ZeroShotReactDescription, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing agent executor: %w", err)
	}

	return &Runner{executor: executor}, nil
}

// Run executes one conversational turn and returns the final answer.
func (r *Runner) Run(ctx context.Context, prompt string) (string, error) {
	answer, err := chains.Run(ctx, r.executor, prompt)
	if err != nil {
		return "", fmt.Errorf("agent turn failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
