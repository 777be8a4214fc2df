// Package llm provides chat-completion clients and an ordered provider
// fallback chain for question generation and answer evaluation.
package llm

import (
	"context"
	"errors"
)

// ErrUnavailable indicates no language model provider could serve a request.
var ErrUnavailable = errors.New("no language model provider available")

// Message is one chat turn sent to a provider.
type Message struct {
	Role    string
	Content string
}

// Response is the provider-agnostic completion output.
type Response struct {
	Content string
	Model   string
}

// Client generates one completion for a message sequence. Implementations
// are expected to request JSON-object output when supported.
type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
	Name() string
}

// SystemUser builds the common two-message prompt shape.
func SystemUser(system, user string) []Message {
	return []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}
