package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cugtyt/llmruntime/internal/eventbus"
	"github.com/cugtyt/llmruntime/internal/events"
	"github.com/cugtyt/llmruntime/internal/llminterface"
	"github.com/cugtyt/llmruntime/internal/utils"
	"github.com/cugtyt/llmruntime/pkg/logger"
)

// ExchangeRecorder persists requests and their responses.
type ExchangeRecorder interface {
	CreatePending(ctx context.Context, requestID, agentID, model string) error
	Complete(ctx context.Context, requestID string, resp llminterface.LLMResponse) error
}

type LLMHandler struct {
	provider llminterface.Provider
	eventBus eventbus.EventBus
	recorder ExchangeRecorder
	defaults []llminterface.ChatOption
	log      *slog.Logger
}

// NewLLMHandler wires a provider to the optional bus and recorder; either may
// be nil. defaults apply to every call before the settings carried by the
// request event.
func NewLLMHandler(provider llminterface.Provider, eb eventbus.EventBus, recorder ExchangeRecorder, defaults ...llminterface.ChatOption) *LLMHandler {
	if provider == nil {
		panic("LLM provider cannot be nil")
	}
	return &LLMHandler{
		provider: provider,
		eventBus: eb,
		recorder: recorder,
		defaults: defaults,
		log:      logger.Named("llm-handler"),
	}
}

// HandleLLMRequest performs the call described by event, records it and
// publishes the outcome. The request id is assigned when missing.
func (lh *LLMHandler) HandleLLMRequest(ctx context.Context, event events.LLMRequestEvent) events.LLMResponseEvent {
	if event.RequestID == "" {
		event.RequestID = utils.CreateRequestID()
	}
	model := event.Model
	if model == "" {
		model = lh.provider.DefaultModel()
	}
	log := lh.log.With(slog.String("request_id", event.RequestID), slog.String("agent_id", event.AgentID))

	if lh.recorder != nil {
		if err := lh.recorder.CreatePending(ctx, event.RequestID, event.AgentID, model); err != nil {
			log.Warn("failed to record request", slog.Any("error", err))
		}
	}

	opts := append(append([]llminterface.ChatOption{}, lh.defaults...), event.ChatOptions()...)
	start := time.Now()
	resp := lh.provider.Chat(ctx, event.Messages, event.Tools, opts...)
	log.Info("LLM call finished",
		slog.String("model", model),
		slog.String("finish_reason", string(resp.FinishReason)),
		slog.Int("tool_calls", len(resp.ToolCalls)),
		slog.Duration("elapsed", time.Since(start)))

	if lh.recorder != nil {
		if err := lh.recorder.Complete(ctx, event.RequestID, resp); err != nil {
			log.Warn("failed to record response", slog.Any("error", err))
		}
	}

	responseEvent := events.LLMResponseEvent{
		RequestID: event.RequestID,
		AgentID:   event.AgentID,
		Model:     model,
		Response:  resp,
		Timestamp: time.Now().UTC(),
	}
	lh.emit(log, responseEvent)

	if resp.IsError() {
		lh.emit(log, events.LLMErrorEvent{
			RequestID: event.RequestID,
			AgentID:   event.AgentID,
			Model:     model,
			Error:     resp.Content,
			Timestamp: responseEvent.Timestamp,
		})
	}
	return responseEvent
}

// HandleMessage decodes a raw bus message and handles it.
func (lh *LLMHandler) HandleMessage(ctx context.Context, data []byte) error {
	var event events.LLMRequestEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal %s event: %w", events.LLMRequestEventName, err)
	}
	lh.HandleLLMRequest(ctx, event)
	return nil
}

func (lh *LLMHandler) emit(log *slog.Logger, event eventbus.Event) {
	if lh.eventBus == nil {
		return
	}
	if err := lh.eventBus.Emit(event); err != nil {
		log.Warn("failed to emit event", slog.String("subject", event.Subject()), slog.Any("error", err))
	}
}
