// Package llm implements the LLM Router: task→model role selection,
// lazy per-role client construction, and single-fallback failure
// handling (§4.3).
package llm

import "context"

// Message is one turn of a conversation passed to a Client. Grounded on
// the teacher's agent.ConversationMessage.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Options carries the resolved per-role model parameters a Client needs
// for one call.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Client is the narrow interface every provider adapter implements.
// Grounded on the teacher's agent.LLMClient (Generate/Close).
type Client interface {
	Generate(ctx context.Context, messages []Message, opts Options) (string, error)
	Close() error
}
