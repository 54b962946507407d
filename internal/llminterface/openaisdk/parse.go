package openaisdk

import (
	"github.com/openai/openai-go/v3"

	"github.com/cugtyt/llmruntime/internal/llminterface"
)

// parseCompletion normalizes the first choice of a completion. Usage is only
// set when the payload carried a usage object.
func parseCompletion(c *openai.ChatCompletion) (llminterface.LLMResponse, error) {
	if c == nil || len(c.Choices) == 0 {
		return llminterface.LLMResponse{}, llminterface.ErrNoChoices
	}

	choice := c.Choices[0]
	toolCalls := make([]llminterface.ToolCallRequest, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, llminterface.ToolCallRequest{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: llminterface.ParseArguments(tc.Function.Arguments),
		})
	}

	var usage *llminterface.Usage
	if c.JSON.Usage.Valid() {
		usage = &llminterface.Usage{
			PromptTokens:     int(c.Usage.PromptTokens),
			CompletionTokens: int(c.Usage.CompletionTokens),
			TotalTokens:      int(c.Usage.TotalTokens),
		}
	}

	return llminterface.LLMResponse{
		Content:      choice.Message.Content,
		ToolCalls:    toolCalls,
		FinishReason: llminterface.NormalizeFinishReason(string(choice.FinishReason)),
		Usage:        usage,
	}, nil
}
