package events

import (
	"time"

	"github.com/cugtyt/llmruntime/internal/llminterface"
)

// LLMRequestEvent asks the runtime for one chat completion. Zero values for
// the call settings mean "use the configured default".
type LLMRequestEvent struct {
	RequestID   string                        `json:"request_id"`
	AgentID     string                        `json:"agent_id"`
	Messages    []llminterface.Message        `json:"messages"`
	Tools       []llminterface.ToolDefinition `json:"tools,omitempty"`
	Model       string                        `json:"model,omitempty"`
	MaxTokens   int                           `json:"max_tokens,omitempty"`
	Temperature *float64                      `json:"temperature,omitempty"`
}

func (e LLMRequestEvent) Subject() string { return LLMRequestEventName }

// ChatOptions converts the call settings into provider options.
func (e LLMRequestEvent) ChatOptions() []llminterface.ChatOption {
	var opts []llminterface.ChatOption
	if e.Model != "" {
		opts = append(opts, llminterface.WithModel(e.Model))
	}
	if e.MaxTokens > 0 {
		opts = append(opts, llminterface.WithMaxTokens(e.MaxTokens))
	}
	if e.Temperature != nil {
		opts = append(opts, llminterface.WithTemperature(*e.Temperature))
	}
	return opts
}

type LLMResponseEvent struct {
	RequestID string                   `json:"request_id"`
	AgentID   string                   `json:"agent_id"`
	Model     string                   `json:"model"`
	Response  llminterface.LLMResponse `json:"response"`
	Timestamp time.Time                `json:"timestamp"`
}

func (e LLMResponseEvent) Subject() string { return LLMResponseEventName }

type LLMErrorEvent struct {
	RequestID string    `json:"request_id"`
	AgentID   string    `json:"agent_id"`
	Model     string    `json:"model"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

func (e LLMErrorEvent) Subject() string { return LLMErrorEventName }
