// Package factory builds the configured llminterface.Provider.
package factory

import (
	"log/slog"
	"strings"

	"github.com/cugtyt/llmruntime/internal/config"
	"github.com/cugtyt/llmruntime/internal/llminterface"
	"github.com/cugtyt/llmruntime/internal/llminterface/openaisdk"
	"github.com/cugtyt/llmruntime/internal/llminterface/router"
	"github.com/cugtyt/llmruntime/pkg/logger"
)

// ProviderOpenAI selects the official SDK backend. Every other value,
// including an empty or unknown one, selects the router.
const ProviderOpenAI = "openai"

// New returns the provider named by cfg.Agents.Defaults.Provider.
func New(cfg *config.Config) (llminterface.Provider, error) {
	kind := strings.ToLower(strings.TrimSpace(cfg.Agents.Defaults.Provider))
	model := cfg.Agents.Defaults.Model
	log := logger.Named("factory")

	if kind == ProviderOpenAI {
		p, err := openaisdk.New(openaisdk.Config{
			APIKey:       cfg.Providers.OpenAI.APIKey,
			BaseURL:      cfg.Providers.OpenAI.APIBase,
			DefaultModel: model,
		})
		if err != nil {
			return nil, err
		}
		log.Info("provider created",
			slog.String("provider", "openai"),
			slog.String("model", p.DefaultModel()),
			slog.String("base_url", p.BaseURL()))
		return p, nil
	}

	r, err := router.New(router.Config{
		APIKey:       cfg.GetAPIKey(),
		BaseURL:      cfg.GetAPIBase(),
		DefaultModel: model,
	})
	if err != nil {
		return nil, err
	}
	log.Info("provider created",
		slog.String("provider", "router"),
		slog.String("requested", cfg.Agents.Defaults.Provider),
		slog.String("model", r.DefaultModel()))
	return r, nil
}
