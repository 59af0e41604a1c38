package service

import (
	"strings"

	"ollama-chat-demo/backend/internal/models"
)

// PromptLookup is the slice of the prompt store the resolver needs.
type PromptLookup interface {
	GetByCommand(command string) (*models.PromptTemplate, error)
}

// ResolveCommand expands a leading slash command into its stored template
// content. Input that does not start with "/", or whose command is unknown,
// passes through unchanged; an unknown command is literal text, not an
// error. Pure function of the input and the library state.
func ResolveCommand(input string, prompts PromptLookup) string {
	if !strings.HasPrefix(input, "/") {
		return input
	}

	command := input
	if i := strings.Index(input, " "); i >= 0 {
		command = input[:i]
	}

	prompt, err := prompts.GetByCommand(command)
	if err != nil {
		return input
	}

	trailing := strings.TrimSpace(input[len(command):])
	if trailing == "" {
		return prompt.Content
	}
	return prompt.Content + " " + trailing
}
