package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Token is one element of a completion stream. A terminal provider failure
// is carried in Err on the final token before the channel closes; Done marks
// a clean end of stream.
type Token struct {
	Text string
	Done bool
	Err  error
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// LLMProvider is the completion service consumed by the orchestrator.
// ChatStream delivers tokens in arrival order on a single channel that the
// provider closes when the stream ends; one subscription per call, no retry.
type LLMProvider interface {
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)
	ChatStream(ctx context.Context, history []Message, options ...Option) (<-chan Token, error)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
