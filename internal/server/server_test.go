package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/cugtyt/llmruntime/internal/handlers"
	"github.com/cugtyt/llmruntime/internal/llminterface"
	"github.com/cugtyt/llmruntime/internal/store"
	"github.com/cugtyt/llmruntime/pkg/api"
)

type stubProvider struct {
	resp llminterface.LLMResponse
}

func (p stubProvider) Chat(context.Context, []llminterface.Message, []llminterface.ToolDefinition, ...llminterface.ChatOption) llminterface.LLMResponse {
	return p.resp
}

func (p stubProvider) DefaultModel() string { return "stub-model" }

type stubBus struct{ connected bool }

func (b stubBus) IsConnected() bool { return b.connected }
func (b stubBus) Status() string {
	if b.connected {
		return "connected to nats://test"
	}
	return "disconnected"
}

func newTestServer(t *testing.T, withStore bool, bus StatusReporter) (*api.Client, *miniredis.Miniredis) {
	t.Helper()
	provider := stubProvider{resp: llminterface.LLMResponse{
		Content:      "hi",
		ToolCalls:    []llminterface.ToolCallRequest{},
		FinishReason: llminterface.FinishReasonStop,
	}}

	var (
		mr       *miniredis.Miniredis
		handler  *handlers.LLMHandler
		srvStore ExchangeStore
	)
	if withStore {
		mr = miniredis.RunT(t)
		rs, err := store.NewResponseStore(context.Background(), "redis://"+mr.Addr(), time.Hour)
		if err != nil {
			t.Fatalf("store: %v", err)
		}
		t.Cleanup(func() { _ = rs.Close() })
		handler = handlers.NewLLMHandler(provider, nil, rs)
		srvStore = rs
	} else {
		handler = handlers.NewLLMHandler(provider, nil, nil)
	}

	ts := httptest.NewServer(New(handler, provider, srvStore, bus))
	t.Cleanup(ts.Close)

	client := api.NewClient(ts.URL)
	client.SetHTTPClient(ts.Client())
	return client, mr
}

func TestChatAndStoredResponse(t *testing.T) {
	client, _ := newTestServer(t, true, nil)
	ctx := context.Background()

	out, err := client.Chat(ctx, api.ChatRequest{
		AgentID:  "agent-1",
		Messages: []llminterface.Message{{Role: llminterface.RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out.Response.Content != "hi" || out.Model != "stub-model" || out.RequestID == "" {
		t.Fatalf("unexpected chat response: %+v", out)
	}

	ex, err := client.GetResponse(ctx, out.RequestID)
	if err != nil {
		t.Fatalf("get response: %v", err)
	}
	if ex.Status != store.StatusCompleted || ex.AgentID != "agent-1" || ex.Response == nil || ex.Response.Content != "hi" {
		t.Fatalf("unexpected exchange: %+v", ex)
	}

	if _, err := client.GetResponse(ctx, "req:unknown"); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestChatRejectsEmptyMessages(t *testing.T) {
	client, _ := newTestServer(t, false, nil)

	_, err := client.Chat(context.Background(), api.ChatRequest{})
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if !strings.Contains(statusErr.Message, "messages") {
		t.Fatalf("unexpected message: %q", statusErr.Message)
	}
}

func TestChatRejectsMalformedBody(t *testing.T) {
	provider := stubProvider{}
	ts := httptest.NewServer(New(handlers.NewLLMHandler(provider, nil, nil), provider, nil, nil))
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/v1/chat", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDeleteResponse(t *testing.T) {
	client, mr := newTestServer(t, true, nil)
	ctx := context.Background()

	out, err := client.Chat(ctx, api.ChatRequest{
		Messages: []llminterface.Message{{Role: llminterface.RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}

	if err := client.DeleteResponse(ctx, out.RequestID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("llm:exchange:" + out.RequestID) {
		t.Fatalf("exchange still stored")
	}
	if err := client.DeleteResponse(ctx, out.RequestID); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetResponseWithoutStore(t *testing.T) {
	client, _ := newTestServer(t, false, nil)

	_, err := client.GetResponse(context.Background(), "req:1")
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v", err)
	}
}

func TestDefaultModel(t *testing.T) {
	client, _ := newTestServer(t, false, nil)

	model, err := client.DefaultModel(context.Background())
	if err != nil || model != "stub-model" {
		t.Fatalf("unexpected model %q: %v", model, err)
	}
}

func TestHealth(t *testing.T) {
	client, mr := newTestServer(t, true, stubBus{connected: true})
	ctx := context.Background()

	health, err := client.GetHealth(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if health.Status != "healthy" || health.Components["redis"] != "ok" || health.Version != Version {
		t.Fatalf("unexpected health: %+v", health)
	}

	mr.Close()
	_, err = client.GetHealth(ctx)
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with redis down, got %v", err)
	}
}

func TestHealthWithDisconnectedBus(t *testing.T) {
	client, _ := newTestServer(t, false, stubBus{connected: false})

	_, err := client.GetHealth(context.Background())
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v", err)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	provider := stubProvider{}
	ts := httptest.NewServer(New(handlers.NewLLMHandler(provider, nil, nil), provider, nil, nil))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/v1/chat")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
