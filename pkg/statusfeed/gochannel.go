package statusfeed

import (
	"context"
	"fmt"
	"sync"

	"campus-desk-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// GoChannel is the in-process driver. Only subscribers living in the same
// process see changes, which is enough for a single instance deployment.
type GoChannel struct {
	pubSub *gochannel.GoChannel
	log    logger.ILogger
}

func NewGoChannel(log logger.ILogger) *GoChannel {
	return &GoChannel{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NewStdLogger(false, false),
		),
		log: log,
	}
}

func (g *GoChannel) Publish(_ context.Context, change Change) error {
	payload, err := change.Encode()
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := g.pubSub.Publish(change.Topic(), msg); err != nil {
		return fmt.Errorf("failed to publish status change: %w", err)
	}
	return nil
}

func (g *GoChannel) Subscribe(ctx context.Context, topic string, onChange Handler) (Subscription, error) {
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	messages, err := g.pubSub.Subscribe(subCtx, topic)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			change, err := Decode(msg.Payload)
			if err != nil {
				g.log.Warn("StatusFeed", "Dropping undecodable message", map[string]interface{}{
					"topic": topic,
					"error": err.Error(),
				})
				msg.Ack()
				continue
			}
			onChange(change)
			msg.Ack()
		}
	}()

	return &cancelSubscription{cancel: cancel}, nil
}

func (g *GoChannel) Close() error {
	return g.pubSub.Close()
}

type cancelSubscription struct {
	once   sync.Once
	cancel func()
}

func (s *cancelSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}
