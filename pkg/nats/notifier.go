package nats

import (
	"context"
	"fmt"
	"time"

	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/pkg/statusfeed"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	StreamName     = "DOCUMENT_STATUS"
	subjectPattern = "documents.>"
)

// Notifier is the JetStream status feed driver. Every instance publishes to
// and reads from the same stream, so trackers see changes made anywhere.
type Notifier struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	log logger.ILogger
}

func NewNotifier(url string, log logger.ILogger) (*Notifier, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Changes are hints, not history: a short-lived in-memory stream is enough.
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{subjectPattern},
		Storage:   jetstream.MemoryStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    time.Hour,
	})
	if err != nil {
		log.Warn("StatusFeed", "Failed to ensure JetStream stream", map[string]interface{}{
			"stream": StreamName,
			"error":  err.Error(),
		})
	}

	return &Notifier{nc: nc, js: js, log: log}, nil
}

func (n *Notifier) Publish(ctx context.Context, change statusfeed.Change) error {
	data, err := change.Encode()
	if err != nil {
		return err
	}

	subject := change.Topic()
	if _, err := n.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish status change to subject %s: %w", subject, err)
	}
	return nil
}

func (n *Notifier) Close() error {
	if n.nc != nil {
		n.nc.Close()
	}
	return nil
}

var _ statusfeed.Notifier = (*Notifier)(nil)
