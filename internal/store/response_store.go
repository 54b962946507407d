package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cugtyt/llmruntime/internal/llminterface"
)

// ErrNotFound is returned when no exchange exists for a request id.
var ErrNotFound = errors.New("exchange not found")

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Exchange records one chat request and, once finished, its response.
type Exchange struct {
	RequestID string                    `json:"request_id"`
	AgentID   string                    `json:"agent_id,omitempty"`
	Model     string                    `json:"model"`
	Status    string                    `json:"status"`
	Response  *llminterface.LLMResponse `json:"response,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

type ResponseStore struct {
	redis *RedisClient
	ttl   time.Duration
}

func NewResponseStore(ctx context.Context, redisURL string, ttl time.Duration) (*ResponseStore, error) {
	redisClient, err := NewRedisClient(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &ResponseStore{redis: redisClient, ttl: ttl}, nil
}

func (rs *ResponseStore) exchangeKey(requestID string) string {
	return fmt.Sprintf("llm:exchange:%s", requestID)
}

// CreatePending stores a new exchange that has not been answered yet.
func (rs *ResponseStore) CreatePending(ctx context.Context, requestID, agentID, model string) error {
	now := time.Now().UTC()
	return rs.Save(ctx, &Exchange{
		RequestID: requestID,
		AgentID:   agentID,
		Model:     model,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Complete attaches resp to an existing exchange. Error-shaped responses
// mark the exchange failed.
func (rs *ResponseStore) Complete(ctx context.Context, requestID string, resp llminterface.LLMResponse) error {
	existing, err := rs.Get(ctx, requestID)
	if err != nil {
		return fmt.Errorf("failed to get existing exchange: %w", err)
	}

	existing.Response = &resp
	existing.Status = StatusCompleted
	if resp.IsError() {
		existing.Status = StatusFailed
	}
	existing.UpdatedAt = time.Now().UTC()

	jsonData, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange: %w", err)
	}
	if err := rs.redis.SetKeepTTL(ctx, rs.exchangeKey(requestID), string(jsonData)); err != nil {
		return fmt.Errorf("failed to complete exchange: %w", err)
	}
	return nil
}

// Save writes ex with the store TTL, replacing any previous record.
func (rs *ResponseStore) Save(ctx context.Context, ex *Exchange) error {
	if ex.RequestID == "" {
		return errors.New("exchange has no request id")
	}
	jsonData, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("failed to marshal exchange: %w", err)
	}
	if err := rs.redis.Set(ctx, rs.exchangeKey(ex.RequestID), string(jsonData), rs.ttl); err != nil {
		return fmt.Errorf("failed to save exchange: %w", err)
	}
	return nil
}

func (rs *ResponseStore) Get(ctx context.Context, requestID string) (*Exchange, error) {
	data, err := rs.redis.Get(ctx, rs.exchangeKey(requestID))
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}

	var ex Exchange
	if err := json.Unmarshal([]byte(data), &ex); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exchange: %w", err)
	}
	return &ex, nil
}

// Delete removes an exchange; ErrNotFound when there was none.
func (rs *ResponseStore) Delete(ctx context.Context, requestID string) error {
	n, err := rs.redis.Del(ctx, rs.exchangeKey(requestID))
	if err != nil {
		return fmt.Errorf("failed to delete exchange: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (rs *ResponseStore) HealthCheck(ctx context.Context) error {
	return rs.redis.Ping(ctx)
}

func (rs *ResponseStore) Close() error {
	return rs.redis.Close()
}
