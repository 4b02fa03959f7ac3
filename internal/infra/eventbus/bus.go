// Package eventbus publishes gateway events over Watermill.
//
// The in-process backend uses a Go channel pub/sub; the redis backend
// writes to Redis Streams so downstream workers (order routing, alerting)
// can consume them. Payloads are JSON.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yndnr/tradegate-go/internal/telemetry/logger"
)

// Topics.
const (
	TopicSignalReceived  = "signal.received"
	TopicOrderRequested  = "order.requested"
	TopicIdentityBlocked = "security.identity_blocked"
)

// Metadata keys set on every message.
const (
	MetaPublishedAt = "published_at"
	MetaRequestID   = "request_id"
)

// ErrSubscribeUnsupported is returned by Subscribe on publish-only buses.
var ErrSubscribeUnsupported = errors.New("eventbus: subscribe not supported")

// Publisher is the interface services depend on.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Bus wraps a Watermill publisher and, when available, a subscriber.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
}

// NewMemory creates an in-process bus backed by a Go channel pub/sub.
func NewMemory(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))

	return &Bus{publisher: ps, subscriber: ps, logger: logger}
}

// NewRedis creates a bus that publishes to Redis Streams. When
// consumerGroup is non-empty the bus can also subscribe.
func NewRedis(client redis.UniversalClient, consumerGroup string, logger *slog.Logger) (*Bus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wlog := watermill.NewSlogLogger(logger)

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, wlog)
	if err != nil {
		return nil, fmt.Errorf("create redis stream publisher: %w", err)
	}

	bus := &Bus{publisher: pub, logger: logger}
	if consumerGroup != "" {
		sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: consumerGroup,
		}, wlog)
		if err != nil {
			pub.Close()
			return nil, fmt.Errorf("create redis stream subscriber: %w", err)
		}
		bus.subscriber = sub
	}
	return bus, nil
}

// Publish encodes payload as JSON and publishes it to topic. The request
// ID carried by ctx, if any, is copied into the message metadata.
func (b *Bus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), data)
	msg.Metadata.Set(MetaPublishedAt, time.Now().UTC().Format(time.RFC3339Nano))
	if rid := logger.RequestIDFromContext(ctx); rid != "" {
		msg.Metadata.Set(MetaRequestID, rid)
	}

	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	b.logger.Debug("event published", "topic", topic, "message_id", msg.UUID)
	return nil
}

// Subscribe returns the message stream for topic. Consumers must Ack or
// Nack each message.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if b.subscriber == nil {
		return nil, ErrSubscribeUnsupported
	}
	return b.subscriber.Subscribe(ctx, topic)
}

// Close closes the publisher and subscriber.
func (b *Bus) Close() error {
	var errs []error
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	// gochannel is both publisher and subscriber.
	if b.subscriber != nil && any(b.subscriber) != any(b.publisher) {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Decode unmarshals a message payload.
func Decode[T any](msg *message.Message) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", msg.UUID, err)
	}
	return v, nil
}
