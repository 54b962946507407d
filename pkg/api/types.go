package api

import (
	"time"

	"github.com/cugtyt/llmruntime/internal/llminterface"
)

// ChatRequest is the body of POST /v1/chat. Zero call settings use the
// runtime defaults.
type ChatRequest struct {
	AgentID     string                        `json:"agent_id,omitempty"`
	Messages    []llminterface.Message        `json:"messages"`
	Tools       []llminterface.ToolDefinition `json:"tools,omitempty"`
	Model       string                        `json:"model,omitempty"`
	MaxTokens   int                           `json:"max_tokens,omitempty"`
	Temperature *float64                      `json:"temperature,omitempty"`
}

// ChatResponse is returned by POST /v1/chat.
type ChatResponse struct {
	RequestID string                   `json:"request_id"`
	Model     string                   `json:"model"`
	Response  llminterface.LLMResponse `json:"response"`
}

// Exchange is a stored request/response pair.
type Exchange struct {
	RequestID string                    `json:"request_id"`
	AgentID   string                    `json:"agent_id,omitempty"`
	Model     string                    `json:"model"`
	Status    string                    `json:"status"`
	Response  *llminterface.LLMResponse `json:"response,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// ModelInfo is returned by GET /v1/models/default.
type ModelInfo struct {
	Model string `json:"model"`
}

// HealthStatus represents the health of the service and its dependencies.
type HealthStatus struct {
	Service    string            `json:"service"`
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Uptime     string            `json:"uptime"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
}

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Error string `json:"error"`
}
