package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/cugtyt/llmruntime/internal/llminterface"
)

func anthropicServer(t *testing.T, status int, payload string, body *map[string]any, apiKey *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if apiKey != nil {
			*apiKey = r.Header.Get("X-Api-Key")
		}
		if body != nil {
			if err := json.NewDecoder(r.Body).Decode(body); err != nil {
				t.Errorf("decode body: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newAnthropicRouter points the anthropic route at srv. A configured base
// would select the generic route, so the route default is swapped instead.
func newAnthropicRouter(t *testing.T, srv *httptest.Server) *Router {
	t.Helper()
	clearRouteEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "ant-key")

	saved := routes[RouteAnthropic]
	stub := saved
	stub.BaseURL = srv.URL
	routes[RouteAnthropic] = stub
	t.Cleanup(func() { routes[RouteAnthropic] = saved })

	r, err := New(Config{HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestChatAnthropic(t *testing.T) {
	var (
		body   map[string]any
		apiKey string
	)
	srv := anthropicServer(t, http.StatusOK, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-opus-4-5",
		"content": [
			{"type": "text", "text": "Looking it up."},
			{"type": "tool_use", "id": "toolu_1", "name": "search", "input": {"q": "x"}}
		],
		"stop_reason": "tool_use",
		"stop_sequence": null,
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`, &body, &apiKey)
	r := newAnthropicRouter(t, srv)

	tools := []llminterface.ToolDefinition{{Type: "function", Function: llminterface.FunctionDefinition{
		Name:        "search",
		Description: "Search the web",
		Parameters:  json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`),
	}}}

	resp := r.Chat(context.Background(), conversation, tools, llminterface.WithModel("anthropic/claude-opus-4-5"))

	if resp.Content != "Looking it up." {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	want := []llminterface.ToolCallRequest{{ID: "toolu_1", Name: "search", Arguments: map[string]any{"q": "x"}}}
	if !reflect.DeepEqual(resp.ToolCalls, want) {
		t.Fatalf("unexpected tool calls: %#v", resp.ToolCalls)
	}
	if resp.FinishReason != llminterface.FinishReasonToolCalls {
		t.Fatalf("unexpected finish reason: %q", resp.FinishReason)
	}
	if resp.Usage == nil || *resp.Usage != (llminterface.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}) {
		t.Fatalf("unexpected usage: %#v", resp.Usage)
	}

	if apiKey != "ant-key" {
		t.Fatalf("route key not sent: %q", apiKey)
	}
	if body["model"] != "claude-opus-4-5" || body["system"] != "be brief" || body["max_tokens"] != float64(4096) {
		t.Fatalf("unexpected request: %v", body)
	}
	msgs := body["messages"].([]any)
	if len(msgs) != 1 || msgs[0].(map[string]any)["content"] != "find x" {
		t.Fatalf("unexpected messages: %v", msgs)
	}
	sent := body["tools"].([]any)[0].(map[string]any)
	if sent["name"] != "search" || sent["input_schema"] == nil {
		t.Fatalf("unexpected tool: %v", sent)
	}
	if choice := body["tool_choice"].(map[string]any); choice["type"] != "auto" {
		t.Fatalf("unexpected tool choice: %v", choice)
	}
}

func TestChatAnthropicError(t *testing.T) {
	srv := anthropicServer(t, http.StatusBadRequest,
		`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`, nil, nil)
	r := newAnthropicRouter(t, srv)

	resp := r.Chat(context.Background(), conversation, nil, llminterface.WithModel("claude-3-haiku"))

	if !resp.IsError() || !strings.HasPrefix(resp.Content, "Error calling anthropic API: ") {
		t.Fatalf("unexpected response: %#v", resp)
	}
	if !strings.Contains(resp.Content, "400") {
		t.Fatalf("status missing: %q", resp.Content)
	}
}

func TestParseAnthropicMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    llminterface.FinishReason
		usage   bool
	}{
		{"end turn", `{"content":[{"type":"text","text":"a"}],"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":1}}`, llminterface.FinishReasonStop, true},
		{"stop sequence", `{"content":[],"stop_reason":"stop_sequence"}`, llminterface.FinishReasonStop, false},
		{"max tokens", `{"content":[],"stop_reason":"max_tokens"}`, llminterface.FinishReasonLength, false},
		{"missing reason", `{"content":[]}`, llminterface.FinishReasonStop, false},
		{"unknown reason", `{"content":[],"stop_reason":"refusal"}`, llminterface.FinishReason("refusal"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg anthropic.Message
			if err := json.Unmarshal([]byte(tt.payload), &msg); err != nil {
				t.Fatalf("decode: %v", err)
			}
			resp, err := parseAnthropicMessage(&msg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.FinishReason != tt.want {
				t.Fatalf("got %q, want %q", resp.FinishReason, tt.want)
			}
			if (resp.Usage != nil) != tt.usage {
				t.Fatalf("unexpected usage: %#v", resp.Usage)
			}
			if resp.ToolCalls == nil {
				t.Fatalf("tool calls must not be nil")
			}
		})
	}
}

func TestConvertMessagesToAnthropic(t *testing.T) {
	messages := []llminterface.Message{
		{Role: llminterface.RoleSystem, Content: "rule one"},
		{Role: llminterface.RoleSystem, Content: "rule two"},
		{Role: llminterface.RoleUser, Content: "compare"},
		{Role: llminterface.RoleAssistant, Content: "checking", ToolCalls: []llminterface.ToolCall{
			{ID: "a", Type: "function", Function: llminterface.FunctionCall{Name: "get", Arguments: `{"id":1}`}},
			{ID: "b", Type: "function", Function: llminterface.FunctionCall{Name: "get", Arguments: `{"id":2}`}},
		}},
		{Role: llminterface.RoleTool, ToolCallID: "a", Content: "one"},
		{Role: llminterface.RoleTool, ToolCallID: "b", Content: "two"},
		{Role: llminterface.RoleAssistant, Content: "done"},
	}

	system, out := convertMessagesToAnthropic(messages)

	if system != "rule one\n\nrule two" {
		t.Fatalf("unexpected system prompt: %q", system)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 turns, got %d: %v", len(out), out)
	}

	roles := []string{"user", "assistant", "user", "assistant"}
	for i, want := range roles {
		if out[i]["role"] != want {
			t.Fatalf("turn %d: role %v, want %s", i, out[i]["role"], want)
		}
	}

	blocks := out[1]["content"].([]map[string]any)
	if len(blocks) != 3 || blocks[0]["type"] != "text" || blocks[1]["type"] != "tool_use" {
		t.Fatalf("unexpected assistant blocks: %v", blocks)
	}
	if !reflect.DeepEqual(blocks[2]["input"], map[string]any{"id": float64(2)}) {
		t.Fatalf("unexpected tool input: %v", blocks[2]["input"])
	}

	results := out[2]["content"].([]map[string]any)
	if len(results) != 2 || results[0]["tool_use_id"] != "a" || results[1]["content"] != "two" {
		t.Fatalf("unexpected tool results: %v", results)
	}
}

func TestConvertToolsToAnthropicDefaultsSchema(t *testing.T) {
	out := convertToolsToAnthropic([]llminterface.ToolDefinition{{Type: "function", Function: llminterface.FunctionDefinition{Name: "noop"}}})
	schema, ok := out[0]["input_schema"].(json.RawMessage)
	if !ok || string(schema) != `{"type":"object","properties":{}}` {
		t.Fatalf("unexpected schema: %v", out[0]["input_schema"])
	}
	if _, ok := out[0]["description"]; ok {
		t.Fatalf("empty description should be omitted")
	}
}
