package nats

import (
	"context"
	"fmt"
	"sync"

	"campus-desk-be/pkg/statusfeed"

	"github.com/nats-io/nats.go/jetstream"
)

// Subscribe attaches an ephemeral ordered consumer that only sees changes
// published from now on. Nothing is acked; ordered consumers do not need it.
func (n *Notifier) Subscribe(ctx context.Context, topic string, onChange statusfeed.Handler) (statusfeed.Subscription, error) {
	consumer, err := n.js.OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{topic},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer for %s: %w", topic, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		change, err := statusfeed.Decode(msg.Data())
		if err != nil {
			n.log.Warn("StatusFeed", "Dropping undecodable message", map[string]interface{}{
				"subject": msg.Subject(),
				"error":   err.Error(),
			})
			return
		}
		onChange(change)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming %s: %w", topic, err)
	}

	return &subscription{cc: cc}, nil
}

type subscription struct {
	once sync.Once
	cc   jetstream.ConsumeContext
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cc.Stop)
}
