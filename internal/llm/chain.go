package llm

import (
	"context"
	"log/slog"
)

// Chain tries each provider in order and returns the first success.
// It is the "remote or bust" half of the evaluator/generator pipelines;
// callers supply their own static fallback when the chain is exhausted.
type Chain struct {
	logger  *slog.Logger
	clients []Client
}

// NewChain builds a chain over zero or more providers in priority order.
func NewChain(logger *slog.Logger, clients ...Client) *Chain {
	kept := make([]Client, 0, len(clients))
	for _, c := range clients {
		if c != nil {
			kept = append(kept, c)
		}
	}
	return &Chain{logger: logger, clients: kept}
}

// Available reports whether at least one provider is configured.
func (c *Chain) Available() bool {
	return len(c.clients) > 0
}

func (c *Chain) Name() string {
	return "chain"
}

// Generate walks the providers in order; provider failures are soft and
// logged, and ErrUnavailable is returned only when every attempt failed.
func (c *Chain) Generate(ctx context.Context, messages []Message) (Response, error) {
	var lastErr error
	for _, client := range c.clients {
		resp, err := client.Generate(ctx, messages)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if c.logger != nil {
			c.logger.Warn("llm provider failed", "provider", client.Name(), "error", err.Error())
		}
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		return Response{}, lastErr
	}
	return Response{}, ErrUnavailable
}
