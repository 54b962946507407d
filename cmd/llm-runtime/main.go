package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cugtyt/llmruntime/internal/config"
	"github.com/cugtyt/llmruntime/internal/eventbus"
	"github.com/cugtyt/llmruntime/internal/events"
	"github.com/cugtyt/llmruntime/internal/handlers"
	"github.com/cugtyt/llmruntime/internal/llminterface"
	"github.com/cugtyt/llmruntime/internal/llminterface/factory"
	"github.com/cugtyt/llmruntime/internal/server"
	"github.com/cugtyt/llmruntime/internal/store"
	"github.com/cugtyt/llmruntime/pkg/logger"
)

const queueName = "llm-runtime"

func main() {
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "llm-runtime",
		Short:        "Serve LLM chat requests over HTTP and NATS",
		Version:      server.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&cfgFile, "config", "c", os.Getenv("LLM_RUNTIME_CONFIG"), "config file (YAML or JSON)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

type LLMRuntime struct {
	handler   *handlers.LLMHandler
	eventBus  *eventbus.DistributedEventBus
	responses *store.ResponseStore
	http      *http.Server
}

func NewLLMRuntime(ctx context.Context, cfg *config.Config) (*LLMRuntime, error) {
	provider, err := factory.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	lr := &LLMRuntime{}

	var recorder handlers.ExchangeRecorder
	var exchanges server.ExchangeStore
	if cfg.Runtime.RedisURL != "" {
		lr.responses, err = store.NewResponseStore(ctx, cfg.Runtime.RedisURL, cfg.Runtime.ResponseTTL.Std())
		if err != nil {
			return nil, err
		}
		recorder, exchanges = lr.responses, lr.responses
	}

	var bus eventbus.EventBus
	var busStatus server.StatusReporter
	if cfg.Runtime.NATSURL != "" {
		lr.eventBus, err = eventbus.NewDistributedEventBus(cfg.Runtime.NATSURL)
		if err != nil {
			lr.Close()
			return nil, err
		}
		bus, busStatus = lr.eventBus, lr.eventBus
	}

	lr.handler = handlers.NewLLMHandler(provider, bus, recorder, cfg.Agents.Defaults.ChatOptions()...)
	lr.http = &http.Server{
		Addr:              cfg.Runtime.HTTPAddr,
		Handler:           server.New(lr.handler, provider, exchanges, busStatus),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return lr, nil
}

// Start subscribes to LLM request events when a bus is configured.
func (lr *LLMRuntime) Start(ctx context.Context) error {
	if lr.eventBus == nil {
		return nil
	}
	return lr.eventBus.Subscribe(ctx, events.LLMRequestEventName, queueName, lr.handler.HandleMessage)
}

func (lr *LLMRuntime) Close() {
	if lr.eventBus != nil {
		lr.eventBus.Close()
	}
	if lr.responses != nil {
		lr.responses.Close()
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Named("main")

	runtime, err := NewLLMRuntime(ctx, cfg)
	if llminterface.IsConfigError(err) {
		log.Error("invalid provider configuration", slog.String("provider", cfg.Agents.Defaults.Provider), slog.Any("error", err))
		return err
	}
	if err != nil {
		log.Error("failed to initialize LLM runtime", slog.Any("error", err))
		return err
	}
	defer runtime.Close()

	if err := runtime.Start(ctx); err != nil {
		log.Error("failed to start LLM runtime", slog.Any("error", err))
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("LLM runtime listening", slog.String("addr", runtime.http.Addr))
		if err := runtime.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down LLM runtime")
	case err := <-errCh:
		log.Error("HTTP server failed", slog.Any("error", err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := runtime.http.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced to shutdown", slog.Any("error", err))
	}

	log.Info("LLM runtime stopped")
	return nil
}
