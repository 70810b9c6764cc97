package llm

import (
	"context"
	"errors"
)

// Scorer is the one call the help desk makes to a language model: a system
// prompt, a user prompt and sampling limits in, plain text out. A failed call
// never returns partial text.
type Scorer interface {
	Score(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error)
	Close() error
}

var (
	ErrEmptyResponse = errors.New("llm returned no text")
	ErrDisabled      = errors.New("llm provider is disabled")
)

// Noop is used when no provider is configured; every AI feature then falls
// back to its failure path.
type Noop struct{}

func (Noop) Score(context.Context, string, string, int, float32) (string, error) {
	return "", ErrDisabled
}

func (Noop) Close() error { return nil }

// Func adapts a function to Scorer.
type Func func(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error)

func (f Func) Score(ctx context.Context, systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	return f(ctx, systemPrompt, userPrompt, maxTokens, temperature)
}

func (Func) Close() error { return nil }
