package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const refineInstructions = "You are an expert at translating user requests into clear, actionable instructions " +
	"for an AI agent that manages Zoho CRM. The agent has tools to search, create, and update " +
	"leads, contacts, and deals.\n\n" +
	"Convert the user's input into a precise, step-by-step prompt for the agent. " +
	"If the user input is already clear, just repeat it. " +
	"Do not add any preamble or explanation, just return the refined prompt."

// Refine converts raw user input into a precise, actionable prompt for the
// agent using a single deterministic model call.
func Refine(ctx context.Context, llm llms.Model, input string) (string, error) {
	prompt := refineInstructions + "\n\nUser Input: " + input

	refined, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("refining prompt: %w", err)
	}

	refined = strings.TrimSpace(refined)
	if refined == "" {
		return input, nil
	}
	return refined, nil
}
