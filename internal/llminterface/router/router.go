// Package router implements llminterface.Provider over several backends.
// A model written as "<route>/<model>" picks the backend explicitly; bare
// model names are matched to a backend from the configured credentials and
// the model name itself.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cugtyt/llmruntime/internal/llminterface"
	"github.com/cugtyt/llmruntime/pkg/logger"
)

const (
	DefaultModel   = "anthropic/claude-opus-4-5"
	defaultTimeout = 120 * time.Second
)

var errNoBaseURL = errors.New("no base URL configured for this route")

// Config describes the credentials shared by every route.
type Config struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Router dispatches each call to the backend its model resolves to.
type Router struct {
	apiKey       string
	baseURL      string
	defaultModel string
	envKeys      map[string]string
	httpClient   *http.Client
}

var _ llminterface.Provider = (*Router)(nil)

// New captures the configuration and the route key variables. A missing key
// is not an error here; the backend rejects the call instead.
func New(cfg Config) (*Router, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, &llminterface.ConfigError{
				Provider: "router",
				Field:    "api_base",
				Err:      fmt.Errorf("%q is not an absolute URL", baseURL),
			}
		}
		baseURL = strings.TrimRight(baseURL, "/")
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

	return &Router{
		apiKey:       strings.TrimSpace(cfg.APIKey),
		baseURL:      baseURL,
		defaultModel: model,
		envKeys:      envKeys(),
		httpClient:   httpClient,
	}, nil
}

// DefaultModel returns the model used when a call does not name one.
func (r *Router) DefaultModel() string {
	return r.defaultModel
}

// Resolve works out which backend serves model and what it is called there.
func (r *Router) Resolve(model string) Target {
	var (
		route = routes[RouteOpenAI]
		wire  = model
	)

	switch {
	case strings.HasPrefix(r.apiKey, "sk-or-") || strings.Contains(strings.ToLower(r.baseURL), "openrouter"):
		route = routes[RouteOpenRouter]
		wire = strings.TrimPrefix(model, RouteOpenRouter+"/")
	case r.baseURL != "":
		route = routes[RouteVLLM]
		wire = strings.TrimPrefix(model, RouteVLLM+"/")
	default:
		if name, rest, ok := splitPrefix(model); ok {
			route, wire = routes[name], rest
		} else {
			route = routes[inferRoute(model)]
		}
	}

	t := Target{Route: route, Model: wire, BaseURL: route.BaseURL, APIKey: r.apiKey}
	if r.baseURL != "" {
		t.BaseURL = r.baseURL
	}
	if t.APIKey == "" {
		t.APIKey = r.envKeys[route.Name]
	}
	return t
}

// Chat resolves the model and performs one call on the chosen backend.
func (r *Router) Chat(ctx context.Context, messages []llminterface.Message, tools []llminterface.ToolDefinition, opts ...llminterface.ChatOption) llminterface.LLMResponse {
	o := llminterface.ResolveOptions(r.defaultModel, opts...)
	target := r.Resolve(o.Model)

	if len(messages) == 0 {
		return llminterface.ErrorResponse(target.Route.Name, llminterface.ErrNoMessages)
	}
	if target.BaseURL == "" {
		return llminterface.ErrorResponse(target.Route.Name, errNoBaseURL)
	}
	o.Model = target.Model

	log := logger.Named("router")
	log.Debug("routing chat request",
		slog.String("route", target.Route.Name),
		slog.String("model", o.Model),
		slog.Int("messages", len(messages)),
		slog.Int("tools", len(tools)))

	var (
		resp llminterface.LLMResponse
		err  error
	)
	switch target.Route.dialect {
	case dialectAnthropic:
		resp, err = r.chatAnthropic(ctx, target, messages, tools, o)
	default:
		resp, err = r.chatCompletions(ctx, target, messages, tools, o)
	}
	if err != nil {
		log.Warn("chat request failed",
			slog.String("route", target.Route.Name),
			slog.String("model", o.Model),
			slog.Any("error", err))
		return llminterface.ErrorResponse(target.Route.Name, err)
	}
	return resp
}
