// Package llm wraps the chat-completion providers used for keyword generation
// and link refinement behind a single Completer interface.
package llm

import (
	"context"
	"errors"
)

// ErrNoChoices is returned when a provider answers without any completion.
var ErrNoChoices = errors.New("llm returned no choices")

// Prompt is a single-turn request.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Completer produces one completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Provider names a Completer implementation for labels and config.
type Provider interface {
	Completer
	Name() string
}
