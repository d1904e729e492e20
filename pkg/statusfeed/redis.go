package statusfeed

import (
	"context"
	"fmt"
	"sync"

	"campus-desk-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Redis fans changes out across server instances through Redis pub/sub.
type Redis struct {
	rdb *redis.Client
	log logger.ILogger
}

func NewRedis(rdb *redis.Client, log logger.ILogger) *Redis {
	return &Redis{rdb: rdb, log: log}
}

func (r *Redis) Publish(ctx context.Context, change Change) error {
	payload, err := change.Encode()
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, change.Topic(), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish status change: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, topic string, onChange Handler) (Subscription, error) {
	ps := r.rdb.Subscribe(ctx, topic)
	// Wait for the subscription confirmation so changes published after
	// Subscribe returns are not missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	ch := ps.Channel()
	go func() {
		for msg := range ch {
			change, err := Decode([]byte(msg.Payload))
			if err != nil {
				r.log.Warn("StatusFeed", "Dropping undecodable message", map[string]interface{}{
					"topic": topic,
					"error": err.Error(),
				})
				continue
			}
			onChange(change)
		}
	}()

	return &redisSubscription{ps: ps}, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

type redisSubscription struct {
	once sync.Once
	ps   *redis.PubSub
}

func (s *redisSubscription) Unsubscribe() {
	s.once.Do(func() {
		_ = s.ps.Close()
	})
}
