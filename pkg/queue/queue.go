package queue

import (
	"context"
	"errors"
)

// MessageQueue defines the interface for message queue operations.
// Every subscriber of a topic receives its own copy of each message.
type MessageQueue interface {
	// Publish publishes a message to the specified topic
	Publish(ctx context.Context, topic string, message []byte) error

	// Subscribe subscribes to messages from the specified topic.
	// The returned cancel function removes the subscriber; calling it
	// more than once is a no-op.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (func(), error)

	// Close closes the queue connections
	Close() error

	// Health checks the health of the queue
	Health() error
}

// MessageHandler handles incoming messages
type MessageHandler func(ctx context.Context, topic string, message []byte) error

// Common errors
var (
	ErrQueueClosed    = errors.New("queue is closed")
	ErrPublishTimeout = errors.New("publish timeout")
)
