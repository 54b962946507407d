package llminterface

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FinishReason describes why generation stopped.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonToolCalls FinishReason = "tool_calls"
	FinishReasonLength    FinishReason = "length"
	FinishReasonError     FinishReason = "error"
)

// Message represents a chat message in OpenAI wire shape. Backends forward
// messages in the order given and never rewrite them.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall represents a function call from the model as it appears on the wire
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall contains function call details. Arguments is a JSON document
// encoded as a string.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition represents a tool that can be called by the model. The
// parameters schema is passed through untouched.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition defines a callable function
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolCallRequest is one tool invocation requested by the model.
type ToolCallRequest struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LLMResponse is the normalized result of a chat call, whatever backend
// served it. Usage is nil unless the backend reported it.
type LLMResponse struct {
	Content      string            `json:"content,omitempty"`
	ToolCalls    []ToolCallRequest `json:"tool_calls"`
	FinishReason FinishReason      `json:"finish_reason"`
	Usage        *Usage            `json:"usage,omitempty"`
}

// HasToolCalls reports whether the model asked for at least one tool call.
func (r LLMResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// IsError reports whether the response carries a call failure.
func (r LLMResponse) IsError() bool {
	return r.FinishReason == FinishReasonError
}

// ErrorResponse converts a failed call into the error-shaped response
// returned to callers.
func ErrorResponse(backend string, err error) LLMResponse {
	return LLMResponse{
		Content:      fmt.Sprintf("Error calling %s API: %v", backend, err),
		ToolCalls:    []ToolCallRequest{},
		FinishReason: FinishReasonError,
	}
}

// NormalizeFinishReason maps an absent reason to stop.
func NormalizeFinishReason(reason string) FinishReason {
	if reason == "" {
		return FinishReasonStop
	}
	return FinishReason(reason)
}
