// Package openaisdk implements llminterface.Provider on top of the official
// OpenAI Go SDK. It also serves any endpoint speaking the same API through a
// base URL override.
package openaisdk

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/cugtyt/llmruntime/internal/llminterface"
	"github.com/cugtyt/llmruntime/pkg/logger"
)

const (
	// APIKeyEnv is read when no API key is configured.
	APIKeyEnv = "OPENAI_API_KEY"

	DefaultModel   = "gpt-4o"
	defaultTimeout = 120 * time.Second
	backendName    = "OpenAI"
)

// Config describes how to reach the OpenAI API.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Provider talks to the Chat Completions API through the SDK.
type Provider struct {
	client       openai.Client
	baseURL      string
	defaultModel string
}

var _ llminterface.Provider = (*Provider)(nil)

// New resolves the configuration and builds the SDK client. A missing API
// key is taken from OPENAI_API_KEY; if that is empty too, New fails.
func New(cfg Config) (*Provider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv(APIKeyEnv))
	}
	if apiKey == "" {
		return nil, &llminterface.ConfigError{
			Provider: "openai",
			Field:    "api_key",
			Err:      fmt.Errorf("not configured and %s is unset", APIKeyEnv),
		}
	}

	model := cfg.DefaultModel
	if model == "" {
		model = DefaultModel
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, &llminterface.ConfigError{
				Provider: "openai",
				Field:    "api_base",
				Err:      fmt.Errorf("%q is not an absolute URL", baseURL),
			}
		}
		baseURL = strings.TrimRight(baseURL, "/") + "/"
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Provider{
		client:       openai.NewClient(opts...),
		baseURL:      baseURL,
		defaultModel: model,
	}, nil
}

// DefaultModel returns the model used when a call does not name one.
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// BaseURL returns the endpoint override, empty for the default API.
func (p *Provider) BaseURL() string {
	return p.baseURL
}

// Chat sends one chat completion request. Failures are returned as an
// error-shaped response; nothing is retried.
func (p *Provider) Chat(ctx context.Context, messages []llminterface.Message, tools []llminterface.ToolDefinition, opts ...llminterface.ChatOption) llminterface.LLMResponse {
	if len(messages) == 0 {
		return llminterface.ErrorResponse(backendName, llminterface.ErrNoMessages)
	}
	o := llminterface.ResolveOptions(p.defaultModel, opts...)

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.Model),
		MaxTokens:   openai.Int(int64(o.MaxTokens)),
		Temperature: openai.Float(o.Temperature),
	}

	// Messages and tools are written as-is so the body matches what the
	// caller built, including fields the SDK param types do not model.
	reqOpts := []option.RequestOption{option.WithJSONSet("messages", messages)}
	if len(tools) > 0 {
		reqOpts = append(reqOpts,
			option.WithJSONSet("tools", tools),
			option.WithJSONSet("tool_choice", "auto"),
		)
	}

	log := logger.Named("openai")
	log.Debug("chat completion request",
		slog.String("model", o.Model),
		slog.Int("messages", len(messages)),
		slog.Int("tools", len(tools)))

	completion, err := p.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		log.Warn("chat completion failed", slog.String("model", o.Model), slog.Any("error", err))
		return llminterface.ErrorResponse(backendName, err)
	}

	resp, err := parseCompletion(completion)
	if err != nil {
		log.Warn("unusable chat completion", slog.String("model", o.Model), slog.Any("error", err))
		return llminterface.ErrorResponse(backendName, err)
	}
	return resp
}
