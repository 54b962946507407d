// Package server exposes the runtime over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cugtyt/llmruntime/internal/events"
	"github.com/cugtyt/llmruntime/internal/llminterface"
	"github.com/cugtyt/llmruntime/internal/store"
	"github.com/cugtyt/llmruntime/pkg/api"
	"github.com/cugtyt/llmruntime/pkg/logger"
)

const (
	serviceName = "llm-runtime"
	Version     = "0.1.0"
)

// ChatHandler performs one chat exchange.
type ChatHandler interface {
	HandleLLMRequest(ctx context.Context, event events.LLMRequestEvent) events.LLMResponseEvent
}

// ExchangeStore reads and removes stored exchanges.
type ExchangeStore interface {
	Get(ctx context.Context, requestID string) (*store.Exchange, error)
	Delete(ctx context.Context, requestID string) error
	HealthCheck(ctx context.Context) error
}

// StatusReporter reports the state of a connection, such as the event bus.
type StatusReporter interface {
	IsConnected() bool
	Status() string
}

type Server struct {
	chat      ChatHandler
	provider  llminterface.Provider
	exchanges ExchangeStore
	bus       StatusReporter
	started   time.Time
	router    *mux.Router
	log       *slog.Logger
}

// New builds the HTTP routes. exchanges and bus may be nil when the runtime
// runs without Redis or NATS.
func New(chat ChatHandler, provider llminterface.Provider, exchanges ExchangeStore, bus StatusReporter) *Server {
	s := &Server{
		chat:      chat,
		provider:  provider,
		exchanges: exchanges,
		bus:       bus,
		started:   time.Now(),
		router:    mux.NewRouter(),
		log:       logger.Named("http"),
	}

	s.router.Use(s.logRequests)
	s.router.HandleFunc("/v1/chat", s.chatHandler).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/responses/{id}", s.getResponseHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/responses/{id}", s.deleteResponseHandler).Methods(http.MethodDelete)
	s.router.HandleFunc("/v1/models/default", s.defaultModelHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	out := s.chat.HandleLLMRequest(r.Context(), events.LLMRequestEvent{
		AgentID:     req.AgentID,
		Messages:    req.Messages,
		Tools:       req.Tools,
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})

	writeJSON(w, http.StatusOK, api.ChatResponse{
		RequestID: out.RequestID,
		Model:     out.Model,
		Response:  out.Response,
	})
}

func (s *Server) getResponseHandler(w http.ResponseWriter, r *http.Request) {
	if s.exchanges == nil {
		writeError(w, http.StatusServiceUnavailable, "response store is not configured")
		return
	}

	id := mux.Vars(r)["id"]
	ex, err := s.exchanges.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no exchange for "+id)
		return
	}
	if err != nil {
		s.log.Error("failed to read exchange", slog.String("request_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to read exchange")
		return
	}

	writeJSON(w, http.StatusOK, api.Exchange{
		RequestID: ex.RequestID,
		AgentID:   ex.AgentID,
		Model:     ex.Model,
		Status:    ex.Status,
		Response:  ex.Response,
		CreatedAt: ex.CreatedAt,
		UpdatedAt: ex.UpdatedAt,
	})
}

func (s *Server) deleteResponseHandler(w http.ResponseWriter, r *http.Request) {
	if s.exchanges == nil {
		writeError(w, http.StatusServiceUnavailable, "response store is not configured")
		return
	}

	id := mux.Vars(r)["id"]
	err := s.exchanges.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no exchange for "+id)
		return
	}
	if err != nil {
		s.log.Error("failed to delete exchange", slog.String("request_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to delete exchange")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) defaultModelHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.ModelInfo{Model: s.provider.DefaultModel()})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := api.HealthStatus{
		Service:    serviceName,
		Status:     "healthy",
		Version:    Version,
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Timestamp:  time.Now().UTC(),
		Components: map[string]string{},
	}

	if s.exchanges != nil {
		if err := s.exchanges.HealthCheck(r.Context()); err != nil {
			health.Status = "degraded"
			health.Components["redis"] = err.Error()
		} else {
			health.Components["redis"] = "ok"
		}
	}
	if s.bus != nil {
		if !s.bus.IsConnected() {
			health.Status = "degraded"
		}
		health.Components["nats"] = s.bus.Status()
	}

	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorBody{Error: msg})
}
