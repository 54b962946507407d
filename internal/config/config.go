// Package config loads the runtime configuration: which LLM provider to use,
// per-backend credentials and the addresses of the surrounding services.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cugtyt/llmruntime/internal/llminterface"
)

const (
	DefaultProvider      = "litellm"
	DefaultModel         = "anthropic/claude-opus-4-5"
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"
)

// Config describes everything the runtime needs at startup.
type Config struct {
	Agents    AgentsConfig    `json:"agents" yaml:"agents"`
	Providers ProvidersConfig `json:"providers" yaml:"providers"`
	Runtime   RuntimeConfig   `json:"runtime" yaml:"runtime"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// AgentsConfig holds settings shared by every agent.
type AgentsConfig struct {
	Defaults AgentDefaults `json:"defaults" yaml:"defaults"`
}

// AgentDefaults selects the provider and the call defaults.
type AgentDefaults struct {
	Provider    string   `json:"provider" yaml:"provider"`
	Model       string   `json:"model" yaml:"model"`
	MaxTokens   int      `json:"max_tokens" yaml:"max_tokens"`
	Temperature *float64 `json:"temperature" yaml:"temperature"`
}

// SamplingTemperature returns the configured temperature; zero is a valid
// setting, so only an absent value falls back to the default.
func (d AgentDefaults) SamplingTemperature() float64 {
	if d.Temperature == nil {
		return llminterface.DefaultTemperature
	}
	return *d.Temperature
}

// ChatOptions returns the configured token cap and temperature as call
// defaults for every request.
func (d AgentDefaults) ChatOptions() []llminterface.ChatOption {
	opts := []llminterface.ChatOption{llminterface.WithTemperature(d.SamplingTemperature())}
	if d.MaxTokens > 0 {
		opts = append(opts, llminterface.WithMaxTokens(d.MaxTokens))
	}
	return opts
}

// ProviderConfig carries the credentials of one backend.
type ProviderConfig struct {
	APIKey  string `json:"api_key" yaml:"api_key"`
	APIBase string `json:"api_base" yaml:"api_base"`
}

// ProvidersConfig lists the credentials of every supported backend.
type ProvidersConfig struct {
	OpenAI     ProviderConfig `json:"openai" yaml:"openai"`
	Anthropic  ProviderConfig `json:"anthropic" yaml:"anthropic"`
	OpenRouter ProviderConfig `json:"openrouter" yaml:"openrouter"`
	DeepSeek   ProviderConfig `json:"deepseek" yaml:"deepseek"`
	Gemini     ProviderConfig `json:"gemini" yaml:"gemini"`
	Groq       ProviderConfig `json:"groq" yaml:"groq"`
	Zhipu      ProviderConfig `json:"zhipu" yaml:"zhipu"`
	VLLM       ProviderConfig `json:"vllm" yaml:"vllm"`
}

// RuntimeConfig holds the addresses of the surrounding services. Empty NATS
// or Redis URLs disable the corresponding component.
type RuntimeConfig struct {
	HTTPAddr    string   `json:"http_addr" yaml:"http_addr"`
	NATSURL     string   `json:"nats_url" yaml:"nats_url"`
	RedisURL    string   `json:"redis_url" yaml:"redis_url"`
	ResponseTTL Duration `json:"response_ttl" yaml:"response_ttl"`
}

// LogConfig configures pkg/logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Load parses the file at path (YAML for .yaml/.yml, JSON otherwise), applies
// environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, &cfg)
	default:
		err = json.Unmarshal(content, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration built from the environment only.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Agents.Defaults.Provider, "LLM_PROVIDER")
	setFromEnv(&c.Agents.Defaults.Model, "LLM_MODEL")
	setFromEnv(&c.Runtime.HTTPAddr, "HTTP_ADDR")
	setFromEnv(&c.Runtime.NATSURL, "NATS_URL")
	setFromEnv(&c.Runtime.RedisURL, "REDIS_URL")
	setFromEnv(&c.Log.Level, "LOG_LEVEL")
}

func (c *Config) applyDefaults() {
	if c.Agents.Defaults.Provider == "" {
		c.Agents.Defaults.Provider = DefaultProvider
	}
	if c.Agents.Defaults.Model == "" {
		c.Agents.Defaults.Model = DefaultModel
	}
	if c.Agents.Defaults.MaxTokens <= 0 {
		c.Agents.Defaults.MaxTokens = llminterface.DefaultMaxTokens
	}
	if c.Runtime.HTTPAddr == "" {
		c.Runtime.HTTPAddr = ":8080"
	}
	if c.Runtime.ResponseTTL <= 0 {
		c.Runtime.ResponseTTL = Duration(12 * time.Hour)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// GetAPIKey returns the first configured key, in priority order.
func (c *Config) GetAPIKey() string {
	p := c.Providers
	for _, key := range []string{
		p.OpenRouter.APIKey,
		p.DeepSeek.APIKey,
		p.Anthropic.APIKey,
		p.OpenAI.APIKey,
		p.Gemini.APIKey,
		p.Zhipu.APIKey,
		p.Groq.APIKey,
		p.VLLM.APIKey,
	} {
		if key != "" {
			return key
		}
	}
	return ""
}

// GetAPIBase returns the base URL matching the key chosen by GetAPIKey when
// that backend needs one.
func (c *Config) GetAPIBase() string {
	p := c.Providers
	if p.OpenRouter.APIKey != "" {
		if p.OpenRouter.APIBase != "" {
			return p.OpenRouter.APIBase
		}
		return DefaultOpenRouterURL
	}
	if p.Zhipu.APIKey != "" {
		return p.Zhipu.APIBase
	}
	if p.VLLM.APIBase != "" {
		return p.VLLM.APIBase
	}
	return ""
}

func setFromEnv(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}
