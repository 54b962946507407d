package eventbus

import "context"

// Event is anything that can be published; its subject names the stream.
type Event interface {
	Subject() string
}

// MessageHandler consumes one raw message. A returned error terminates the
// message so it is not redelivered.
type MessageHandler func(ctx context.Context, data []byte) error

// EventBus is the publishing side used by handlers.
type EventBus interface {
	Emit(event Event) error
	Close() error
}
