package router

import (
	"os"
	"strings"
)

type dialect int

const (
	dialectOpenAI dialect = iota
	dialectAnthropic
)

// Route is one backend the router can reach.
type Route struct {
	Name    string
	BaseURL string
	KeyEnv  string
	dialect dialect
}

const (
	RouteOpenAI     = "openai"
	RouteAnthropic  = "anthropic"
	RouteOpenRouter = "openrouter"
	RouteDeepSeek   = "deepseek"
	RouteGemini     = "gemini"
	RouteGroq       = "groq"
	RouteZhipu      = "zhipu"
	RouteOllama     = "ollama"
	RouteVLLM       = "hosted_vllm"
)

var routes = map[string]Route{
	RouteOpenAI:     {Name: RouteOpenAI, BaseURL: "https://api.openai.com/v1", KeyEnv: "OPENAI_API_KEY"},
	RouteAnthropic:  {Name: RouteAnthropic, BaseURL: "https://api.anthropic.com", KeyEnv: "ANTHROPIC_API_KEY", dialect: dialectAnthropic},
	RouteOpenRouter: {Name: RouteOpenRouter, BaseURL: "https://openrouter.ai/api/v1", KeyEnv: "OPENROUTER_API_KEY"},
	RouteDeepSeek:   {Name: RouteDeepSeek, BaseURL: "https://api.deepseek.com/v1", KeyEnv: "DEEPSEEK_API_KEY"},
	RouteGemini:     {Name: RouteGemini, BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai", KeyEnv: "GEMINI_API_KEY"},
	RouteGroq:       {Name: RouteGroq, BaseURL: "https://api.groq.com/openai/v1", KeyEnv: "GROQ_API_KEY"},
	RouteZhipu:      {Name: RouteZhipu, BaseURL: "https://open.bigmodel.cn/api/paas/v4", KeyEnv: "ZHIPUAI_API_KEY"},
	RouteOllama:     {Name: RouteOllama, BaseURL: "http://localhost:11434/v1"},
	RouteVLLM:       {Name: RouteVLLM},
}

// Target is a fully resolved destination for one call.
type Target struct {
	Route   Route
	Model   string
	BaseURL string
	APIKey  string
}

// envKeys snapshots every route's key variable.
func envKeys() map[string]string {
	keys := make(map[string]string, len(routes))
	for name, r := range routes {
		if r.KeyEnv == "" {
			continue
		}
		if v := strings.TrimSpace(os.Getenv(r.KeyEnv)); v != "" {
			keys[name] = v
		}
	}
	return keys
}

func splitPrefix(model string) (string, string, bool) {
	prefix, rest, ok := strings.Cut(model, "/")
	if !ok {
		return "", model, false
	}
	if _, known := routes[strings.ToLower(prefix)]; !known {
		return "", model, false
	}
	return strings.ToLower(prefix), rest, true
}

func inferRoute(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.Contains(m, "claude"):
		return RouteAnthropic
	case strings.Contains(m, "gemini"):
		return RouteGemini
	case strings.Contains(m, "glm"), strings.Contains(m, "zhipu"):
		return RouteZhipu
	case strings.Contains(m, "deepseek"):
		return RouteDeepSeek
	default:
		return RouteOpenAI
	}
}
