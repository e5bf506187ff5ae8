// Package llm is the narrow model interface the report reviewer needs: one
// system prompt, one question, one answer.
package llm

import "context"

// Provider completes a single-turn prompt
type Provider interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (*Completion, error)
}

// Prompt is a single-turn request. A zero MaxTokens lets the provider pick
// its default.
type Prompt struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	JSON        bool // reply must be one JSON object
}

// Completion is the model's answer and what it cost
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}
