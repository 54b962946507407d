package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cugtyt/llmruntime/internal/llminterface"
)

// maxResponseBytes caps how much of a response body is read.
var maxResponseBytes int64 = 16 << 20

type chatRequest struct {
	Model       string                        `json:"model"`
	Messages    []llminterface.Message        `json:"messages"`
	Tools       []llminterface.ToolDefinition `json:"tools,omitempty"`
	ToolChoice  string                        `json:"tool_choice,omitempty"`
	MaxTokens   int                           `json:"max_tokens"`
	Temperature float64                       `json:"temperature"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage"`
}

type chatChoice struct {
	Message struct {
		Content   *string        `json:"content"`
		ToolCalls []wireToolCall `json:"tool_calls"`
	} `json:"message"`
	FinishReason *string `json:"finish_reason"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
		// Either a JSON-encoded string or, for some local servers, an object.
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// chatCompletions performs a POST <base>/chat/completions.
func (r *Router) chatCompletions(ctx context.Context, t Target, messages []llminterface.Message, tools []llminterface.ToolDefinition, o llminterface.ChatOptions) (llminterface.LLMResponse, error) {
	request := chatRequest{
		Model:       o.Model,
		Messages:    messages,
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
	}
	if len(tools) > 0 {
		request.Tools = tools
		request.ToolChoice = "auto"
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return llminterface.LLMResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := strings.TrimRight(t.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return llminterface.LLMResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.APIKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return llminterface.LLMResponse{}, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return llminterface.LLMResponse{}, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > maxResponseBytes {
		return llminterface.LLMResponse{}, fmt.Errorf("response body exceeds %d bytes", maxResponseBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return llminterface.LLMResponse{}, apiError(resp.StatusCode, body)
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return llminterface.LLMResponse{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return parseChatResponse(&response)
}

func apiError(status int, body []byte) error {
	var errorResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
		if errorResp.Error.Type != "" {
			return fmt.Errorf("status %d (%s): %s", status, errorResp.Error.Type, errorResp.Error.Message)
		}
		return fmt.Errorf("status %d: %s", status, errorResp.Error.Message)
	}
	return fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(body)))
}

func parseChatResponse(r *chatResponse) (llminterface.LLMResponse, error) {
	if len(r.Choices) == 0 {
		return llminterface.LLMResponse{}, llminterface.ErrNoChoices
	}
	choice := r.Choices[0]

	toolCalls := make([]llminterface.ToolCallRequest, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, llminterface.ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: llminterface.DecodeArguments(tc.Function.Arguments),
		})
	}

	resp := llminterface.LLMResponse{ToolCalls: toolCalls}
	if choice.Message.Content != nil {
		resp.Content = *choice.Message.Content
	}
	if choice.FinishReason != nil {
		resp.FinishReason = llminterface.NormalizeFinishReason(*choice.FinishReason)
	} else {
		resp.FinishReason = llminterface.FinishReasonStop
	}
	if r.Usage != nil {
		resp.Usage = &llminterface.Usage{
			PromptTokens:     r.Usage.PromptTokens,
			CompletionTokens: r.Usage.CompletionTokens,
			TotalTokens:      r.Usage.TotalTokens,
		}
	}
	return resp, nil
}
