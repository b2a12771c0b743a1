package events

import "context"

// Publisher emits profile change events.
type Publisher interface {
	// Publish adds an event to the stream.
	Publish(ctx context.Context, event *Event) error
}

// Queue defines the interface for event queuing and distribution.
// Implementations provide persistent event storage using Redis Streams.
type Queue interface {
	Publisher

	// Subscribe returns a channel that receives events from the queue.
	// The consumer group name is used for load distribution across multiple consumers.
	// The channel is closed when ctx is done.
	Subscribe(ctx context.Context, consumerGroup, consumerName string) (<-chan *Event, error)

	// Acknowledge marks a consumed event as processed.
	// This removes it from the pending list.
	Acknowledge(ctx context.Context, consumerGroup, streamID string) error

	// Close releases resources held by the queue.
	Close() error
}
