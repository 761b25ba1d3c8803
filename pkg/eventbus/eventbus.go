// Package eventbus provides the watermill publisher/subscriber pair the
// modules use, backed by NATS JetStream in production and an in-process
// channel for local runs and tests.
package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
)

// EventBus is both ends of the bus.
type EventBus interface {
	Publish(topic string, messages ...*message.Message) error
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

// NATSConfig configures the JetStream-backed bus.
type NATSConfig struct {
	URL            string
	QueueGroup     string
	AckWaitTimeout time.Duration
}

type natsEventBus struct {
	publisher  *wmnats.Publisher
	subscriber *wmnats.Subscriber
}

var _ EventBus = (*natsEventBus)(nil)

// NewNATSEventBus connects a JetStream publisher and subscriber.
func NewNATSEventBus(cfg NATSConfig, logger *slog.Logger) (EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	options := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(1 * time.Second),
		nc.ErrorHandler(func(_ *nc.Conn, s *nc.Subscription, err error) {
			if s != nil {
				logger.Error("Error in NATS subscription",
					slog.String("subject", s.Subject),
					slog.String("queue", s.Queue),
					slog.String("error", err.Error()),
				)
				return
			}
			logger.Error("Error in NATS connection", slog.String("error", err.Error()))
		}),
	}

	ackWait := cfg.AckWaitTimeout
	if ackWait == 0 {
		ackWait = 30 * time.Second
	}

	publisher, err := wmnats.NewPublisher(
		wmnats.PublisherConfig{
			URL:         cfg.URL,
			NatsOptions: options,
			Marshaler:   &wmnats.NATSMarshaler{},
			JetStream: wmnats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: true,
			},
		},
		wmLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Watermill NATS publisher: %w", err)
	}

	subscriber, err := wmnats.NewSubscriber(
		wmnats.SubscriberConfig{
			URL:              cfg.URL,
			QueueGroupPrefix: cfg.QueueGroup,
			AckWaitTimeout:   ackWait,
			NatsOptions:      options,
			Unmarshaler:      &wmnats.NATSMarshaler{},
			JetStream: wmnats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: true,
				DurablePrefix: cfg.QueueGroup,
			},
		},
		wmLogger,
	)
	if err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("failed to create Watermill NATS subscriber: %w", err)
	}

	return &natsEventBus{publisher: publisher, subscriber: subscriber}, nil
}

func (b *natsEventBus) Publish(topic string, messages ...*message.Message) error {
	return b.publisher.Publish(topic, messages...)
}

func (b *natsEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, topic)
}

func (b *natsEventBus) Close() error {
	subErr := b.subscriber.Close()
	pubErr := b.publisher.Close()
	if subErr != nil {
		return fmt.Errorf("failed to close subscriber: %w", subErr)
	}
	if pubErr != nil {
		return fmt.Errorf("failed to close publisher: %w", pubErr)
	}
	return nil
}

// NewInMemoryEventBus returns a gochannel-backed bus. Messages are delivered
// to subscribers of the exact topic only.
func NewInMemoryEventBus(logger *slog.Logger) EventBus {
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewSlogLogger(logger),
	)
}
