package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultStreamKey is the Redis stream holding profile events.
	DefaultStreamKey = "events:ue_profiles"

	// Default batch size for reading from stream.
	defaultBatchSize = 10

	// Block time for reading from stream.
	defaultBlockTime = 5 * time.Second
)

// RedisQueue implements the Queue interface using Redis Streams.
// Redis Streams provide ordered event delivery with consumer groups.
type RedisQueue struct {
	client    redis.UniversalClient
	logger    *zap.Logger
	stream    string
	maxLen    int64
	blockTime time.Duration
}

// QueueOption configures a RedisQueue.
type QueueOption func(*RedisQueue)

// WithStream overrides the stream key.
func WithStream(key string) QueueOption {
	return func(q *RedisQueue) { q.stream = key }
}

// WithMaxLen trims the stream to about n entries on every publish. Zero
// keeps every event.
func WithMaxLen(n int64) QueueOption {
	return func(q *RedisQueue) { q.maxLen = n }
}

// WithBlockTime sets how long a consumer waits for new entries before
// checking for cancellation.
func WithBlockTime(d time.Duration) QueueOption {
	return func(q *RedisQueue) { q.blockTime = d }
}

// NewRedisQueue creates a new RedisQueue instance.
func NewRedisQueue(client redis.UniversalClient, logger *zap.Logger, opts ...QueueOption) *RedisQueue {
	if client == nil {
		panic("Redis client cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	q := &RedisQueue{
		client:    client,
		logger:    logger,
		stream:    DefaultStreamKey,
		blockTime: defaultBlockTime,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Publish adds an event to the Redis stream.
func (q *RedisQueue) Publish(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	if event.ID == "" {
		return errors.New("event ID cannot be empty")
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{
			"type":  event.Type.String(),
			"event": string(eventJSON),
		},
	}
	if q.maxLen > 0 {
		args.MaxLen = q.maxLen
		args.Approx = true
	}

	streamID, err := q.client.XAdd(ctx, args).Result()
	if err != nil {
		RecordEventPublished(event.Type, "error")
		return fmt.Errorf("failed to add event to stream: %w", err)
	}

	RecordEventPublished(event.Type, "success")

	q.logger.Debug("event published to stream",
		zap.String("event_id", event.ID),
		zap.String("stream_id", streamID),
		zap.String("event_type", event.Type.String()),
		zap.String("supi", event.Supi),
	)

	return nil
}

// Subscribe subscribes to the event stream using a consumer group.
// A new group starts at the beginning of the stream.
func (q *RedisQueue) Subscribe(ctx context.Context, consumerGroup, consumerName string) (<-chan *Event, error) {
	if consumerGroup == "" {
		return nil, errors.New("consumer group cannot be empty")
	}
	if consumerName == "" {
		return nil, errors.New("consumer name cannot be empty")
	}

	err := q.client.XGroupCreateMkStream(ctx, q.stream, consumerGroup, "0").Err()
	if err != nil && !isConsumerGroupExistsError(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	eventCh := make(chan *Event, defaultBatchSize)
	go q.readFromStream(ctx, consumerGroup, consumerName, eventCh)

	return eventCh, nil
}

// readFromStream continuously reads events from the Redis stream.
func (q *RedisQueue) readFromStream(ctx context.Context, consumerGroup, consumerName string, eventCh chan<- *Event) {
	defer close(eventCh)

	q.logger.Info("starting stream consumer",
		zap.String("consumer_group", consumerGroup),
		zap.String("consumer_name", consumerName),
	)

	for ctx.Err() == nil {
		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    consumerGroup,
			Consumer: consumerName,
			Streams:  []string{q.stream, ">"},
			Count:    defaultBatchSize,
			Block:    q.blockTime,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				break
			}
			q.logger.Error("failed to read from stream",
				zap.Error(err),
				zap.String("consumer_group", consumerGroup),
			)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				event, err := parseEvent(message)
				if err != nil {
					RecordEventConsumed(consumerGroup, "invalid")
					q.logger.Error("failed to parse event",
						zap.Error(err),
						zap.String("stream_id", message.ID),
					)
					// Acknowledge invalid message to prevent blocking
					_ = q.Acknowledge(ctx, consumerGroup, message.ID)
					continue
				}
				RecordEventConsumed(consumerGroup, "success")

				select {
				case eventCh <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	q.logger.Info("stopping stream consumer",
		zap.String("consumer_group", consumerGroup),
		zap.String("consumer_name", consumerName),
	)
}

// parseEvent parses an event from a Redis stream message.
func parseEvent(message redis.XMessage) (*Event, error) {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return nil, errors.New("invalid event data format")
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	event.StreamID = message.ID

	return &event, nil
}

// Acknowledge marks an event as processed.
func (q *RedisQueue) Acknowledge(ctx context.Context, consumerGroup, streamID string) error {
	if consumerGroup == "" {
		return errors.New("consumer group cannot be empty")
	}
	if streamID == "" {
		return errors.New("stream ID cannot be empty")
	}

	if err := q.client.XAck(ctx, q.stream, consumerGroup, streamID).Err(); err != nil {
		return fmt.Errorf("failed to acknowledge message: %w", err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Count returns the number of entries in the stream.
func (q *RedisQueue) Count(ctx context.Context) (int64, error) {
	n, err := q.client.XLen(ctx, q.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read stream length: %w", err)
	}
	return n, nil
}

// Close is a no-op: the Redis client is shared with the profile store.
func (q *RedisQueue) Close() error {
	return nil
}

func isConsumerGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
