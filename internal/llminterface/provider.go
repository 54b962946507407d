// Package llminterface defines the provider contract shared by every LLM
// backend and the normalized response shape they all return.
package llminterface

import "context"

const (
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7
)

// Provider is implemented by every LLM backend. Chat never fails at the type
// level: backend and transport failures come back as a response whose
// FinishReason is FinishReasonError.
type Provider interface {
	Chat(ctx context.Context, messages []Message, tools []ToolDefinition, opts ...ChatOption) LLMResponse
	DefaultModel() string
}

// ChatOptions holds the per-call settings a backend puts on the wire.
type ChatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// ChatOption customizes a single Chat call.
type ChatOption func(*ChatOptions)

// WithModel overrides the provider default model for one call.
func WithModel(model string) ChatOption {
	return func(o *ChatOptions) {
		o.Model = model
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) ChatOption {
	return func(o *ChatOptions) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ChatOption {
	return func(o *ChatOptions) {
		o.Temperature = t
	}
}

// ResolveOptions applies opts on top of the defaults. An empty model falls
// back to defaultModel and a non-positive token cap to DefaultMaxTokens.
func ResolveOptions(defaultModel string, opts ...ChatOption) ChatOptions {
	o := ChatOptions{
		MaxTokens:   DefaultMaxTokens,
		Temperature: DefaultTemperature,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.Model == "" {
		o.Model = defaultModel
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}
