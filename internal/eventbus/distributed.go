package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cugtyt/llmruntime/pkg/logger"
)

type DistributedEventBus struct {
	nats           *nats.Conn
	jetStream      nats.JetStreamContext
	subscriptions  []*nats.Subscription
	createdStreams map[string]bool
	mu             sync.Mutex
	log            *slog.Logger
}

var _ EventBus = (*DistributedEventBus)(nil)

func NewDistributedEventBus(natsURL string) (*DistributedEventBus, error) {
	log := logger.Named("eventbus")

	nc, err := nats.Connect(natsURL,
		nats.Name("llm-runtime"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	log.Info("connected to NATS", slog.String("url", natsURL))
	return &DistributedEventBus{
		nats:           nc,
		jetStream:      js,
		createdStreams: make(map[string]bool),
		log:            log,
	}, nil
}

func (deb *DistributedEventBus) ensureStreamForSubject(subject string) error {
	deb.mu.Lock()
	defer deb.mu.Unlock()

	if deb.createdStreams[subject] {
		return nil
	}

	if _, err := deb.jetStream.StreamInfo(subject); err != nil {
		_, err = deb.jetStream.AddStream(&nats.StreamConfig{
			Name:       subject,
			Subjects:   []string{subject},
			Retention:  nats.WorkQueuePolicy,
			Storage:    nats.FileStorage,
			Duplicates: 2 * time.Minute,
			MaxAge:     24 * time.Hour,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", subject, err)
		}
		deb.logger().Info("created JetStream stream", slog.String("stream", subject))
	}

	deb.createdStreams[subject] = true
	return nil
}

// Emit publishes event as JSON on its subject.
func (deb *DistributedEventBus) Emit(event Event) error {
	subject := event.Subject()

	if err := deb.ensureStreamForSubject(subject); err != nil {
		return fmt.Errorf("failed to ensure stream for %s: %w", subject, err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := deb.jetStream.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", subject, err)
	}

	deb.logger().Debug("event emitted", slog.String("subject", subject))
	return nil
}

// Subscribe attaches a durable queue consumer. Messages are acked after
// handler returns nil and terminated otherwise.
func (deb *DistributedEventBus) Subscribe(ctx context.Context, subject, queue string, handler MessageHandler) error {
	if err := deb.ensureStreamForSubject(subject); err != nil {
		return err
	}

	sub, err := deb.jetStream.QueueSubscribe(subject, queue,
		func(msg *nats.Msg) {
			if err := handler(ctx, msg.Data); err != nil {
				deb.logger().Warn("message rejected",
					slog.String("subject", subject),
					slog.Any("error", err))
				_ = msg.Term()
				return
			}
			_ = msg.Ack()
		},
		nats.Durable(queue+"-consumer"),
		nats.ManualAck(),
		nats.AckWait(2*time.Minute),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	deb.mu.Lock()
	deb.subscriptions = append(deb.subscriptions, sub)
	deb.mu.Unlock()

	deb.logger().Info("subscribed", slog.String("subject", subject), slog.String("queue", queue))
	return nil
}

func (deb *DistributedEventBus) Close() error {
	deb.mu.Lock()
	defer deb.mu.Unlock()

	for _, sub := range deb.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			deb.logger().Warn("unsubscribe failed", slog.Any("error", err))
		}
	}
	deb.subscriptions = nil

	if deb.nats != nil {
		deb.nats.Close()
	}

	deb.logger().Info("event bus closed")
	return nil
}

func (deb *DistributedEventBus) logger() *slog.Logger {
	if deb.log == nil {
		return logger.Named("eventbus")
	}
	return deb.log
}

func (deb *DistributedEventBus) IsConnected() bool {
	return deb.nats != nil && deb.nats.IsConnected()
}

func (deb *DistributedEventBus) Status() string {
	if deb.nats == nil {
		return "not initialized"
	}
	if deb.nats.IsConnected() {
		return fmt.Sprintf("connected to %s", deb.nats.ConnectedUrl())
	}
	return "disconnected"
}
