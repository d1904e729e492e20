// Package statusfeed carries "a document's processing status changed" events
// between the writers of processing records and the trackers watching them.
package statusfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campus-desk-be/internal/entity"

	"github.com/google/uuid"
)

// Change is published after a processing record is inserted, updated or
// removed. Subscribers treat it as a hint to re-read the record store.
type Change struct {
	DocumentId uuid.UUID             `json:"document_id"`
	OwnerId    uuid.UUID             `json:"owner_id"`
	Kind       entity.DocumentKind   `json:"kind"`
	CourseId   *uuid.UUID            `json:"course_id,omitempty"`
	Status     entity.DocumentStatus `json:"status"`
	Deleted    bool                  `json:"deleted,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

func ChangeOf(doc *entity.Document) Change {
	return Change{
		DocumentId: doc.Id,
		OwnerId:    doc.UserId,
		Kind:       doc.Kind,
		CourseId:   doc.CourseId,
		Status:     doc.Status,
		OccurredAt: time.Now(),
	}
}

func (c Change) Topic() string {
	return entity.DocumentScope{OwnerId: c.OwnerId, Kind: c.Kind, CourseId: c.CourseId}.Topic()
}

func (c Change) Encode() ([]byte, error) {
	return json.Marshal(c)
}

func Decode(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, fmt.Errorf("failed to decode status change: %w", err)
	}
	return c, nil
}

// Handler must not block; it runs on the driver's delivery goroutine.
type Handler func(Change)

type Subscription interface {
	// Unsubscribe stops delivery. Calling it more than once is safe.
	Unsubscribe()
}

type Notifier interface {
	Publish(ctx context.Context, change Change) error
	Subscribe(ctx context.Context, topic string, onChange Handler) (Subscription, error)
	Close() error
}
