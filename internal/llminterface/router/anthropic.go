package router

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cugtyt/llmruntime/internal/llminterface"
)

var anthropicStopReasons = map[string]llminterface.FinishReason{
	"end_turn":      llminterface.FinishReasonStop,
	"stop_sequence": llminterface.FinishReasonStop,
	"tool_use":      llminterface.FinishReasonToolCalls,
	"max_tokens":    llminterface.FinishReasonLength,
}

func (r *Router) chatAnthropic(ctx context.Context, t Target, messages []llminterface.Message, tools []llminterface.ToolDefinition, o llminterface.ChatOptions) (llminterface.LLMResponse, error) {
	client := anthropic.NewClient(
		aoption.WithAPIKey(t.APIKey),
		aoption.WithBaseURL(strings.TrimRight(t.BaseURL, "/")+"/"),
		aoption.WithHTTPClient(r.httpClient),
		aoption.WithMaxRetries(0),
	)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(o.Model),
		MaxTokens:   int64(o.MaxTokens),
		Temperature: anthropic.Float(o.Temperature),
	}

	system, converted := convertMessagesToAnthropic(messages)
	reqOpts := []aoption.RequestOption{aoption.WithJSONSet("messages", converted)}
	if system != "" {
		reqOpts = append(reqOpts, aoption.WithJSONSet("system", system))
	}
	if len(tools) > 0 {
		reqOpts = append(reqOpts,
			aoption.WithJSONSet("tools", convertToolsToAnthropic(tools)),
			aoption.WithJSONSet("tool_choice", map[string]any{"type": "auto"}),
		)
	}

	msg, err := client.Messages.New(ctx, params, reqOpts...)
	if err != nil {
		return llminterface.LLMResponse{}, err
	}
	return parseAnthropicMessage(msg)
}

// convertMessagesToAnthropic lifts system prompts out and re-encodes tool
// traffic as content blocks. Consecutive tool results share one user turn.
func convertMessagesToAnthropic(messages []llminterface.Message) (string, []map[string]any) {
	var (
		system        []string
		out           = make([]map[string]any, 0, len(messages))
		pendingResult []map[string]any
	)

	flush := func() {
		if len(pendingResult) > 0 {
			out = append(out, map[string]any{"role": "user", "content": pendingResult})
			pendingResult = nil
		}
	}

	for _, msg := range messages {
		switch msg.Role {
		case llminterface.RoleSystem:
			system = append(system, msg.Content)

		case llminterface.RoleTool:
			pendingResult = append(pendingResult, map[string]any{
				"type":        "tool_result",
				"tool_use_id": msg.ToolCallID,
				"content":     msg.Content,
			})

		case llminterface.RoleAssistant:
			flush()
			if len(msg.ToolCalls) == 0 {
				out = append(out, map[string]any{"role": "assistant", "content": msg.Content})
				continue
			}
			blocks := make([]map[string]any, 0, len(msg.ToolCalls)+1)
			if msg.Content != "" {
				blocks = append(blocks, map[string]any{"type": "text", "text": msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				blocks = append(blocks, map[string]any{
					"type":  "tool_use",
					"id":    tc.ID,
					"name":  tc.Function.Name,
					"input": llminterface.ParseArguments(tc.Function.Arguments),
				})
			}
			out = append(out, map[string]any{"role": "assistant", "content": blocks})

		default:
			flush()
			out = append(out, map[string]any{"role": "user", "content": msg.Content})
		}
	}
	flush()

	return strings.Join(system, "\n\n"), out
}

func convertToolsToAnthropic(tools []llminterface.ToolDefinition) []map[string]any {
	out := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema := tool.Function.Parameters
		if len(schema) == 0 || string(schema) == "null" {
			schema = json.RawMessage(`{"type":"object","properties":{}}`)
		}
		entry := map[string]any{
			"name":         tool.Function.Name,
			"input_schema": schema,
		}
		if tool.Function.Description != "" {
			entry["description"] = tool.Function.Description
		}
		out[i] = entry
	}
	return out
}

func parseAnthropicMessage(msg *anthropic.Message) (llminterface.LLMResponse, error) {
	if msg == nil {
		return llminterface.LLMResponse{}, llminterface.ErrNoChoices
	}

	var (
		text      strings.Builder
		toolCalls = make([]llminterface.ToolCallRequest, 0)
	)
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			toolCalls = append(toolCalls, llminterface.ToolCallRequest{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: llminterface.DecodeArguments(block.Input),
			})
		}
	}

	reason := string(msg.StopReason)
	finish, ok := anthropicStopReasons[reason]
	if !ok {
		finish = llminterface.NormalizeFinishReason(reason)
	}

	resp := llminterface.LLMResponse{
		Content:      text.String(),
		ToolCalls:    toolCalls,
		FinishReason: finish,
	}
	if msg.JSON.Usage.Valid() {
		resp.Usage = &llminterface.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		}
	}
	return resp, nil
}
