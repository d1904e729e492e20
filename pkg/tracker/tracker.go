// Package tracker keeps a live view of whether a scope has a usable document
// and what its processing status is.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"campus-desk-be/internal/entity"
	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/pkg/deskerr"
	"campus-desk-be/pkg/statusfeed"

	"github.com/google/uuid"
)

const moduleName = "StatusTracker"

// Finder reads the current document for a scope from the record store.
type Finder interface {
	FindCurrent(ctx context.Context, scope entity.DocumentScope) (*entity.Document, error)
}

type Subscriber interface {
	Subscribe(ctx context.Context, topic string, onChange statusfeed.Handler) (statusfeed.Subscription, error)
}

// Snapshot is the tracker's view at one point in time. Exists is nil until
// the first check completes.
type Snapshot struct {
	Exists     *bool                `json:"exists"`
	Status     entity.DocumentState `json:"status"`
	DocumentId *uuid.UUID           `json:"document_id,omitempty"`
	Loading    bool                 `json:"loading"`
	Error      string               `json:"error,omitempty"`
	CheckedAt  *time.Time           `json:"checked_at,omitempty"`
}

type Tracker struct {
	records Finder
	feed    Subscriber
	log     logger.ILogger
}

func New(records Finder, feed Subscriber, log logger.ILogger) *Tracker {
	return &Tracker{records: records, feed: feed, log: log}
}

// Check runs a single status check without subscribing.
func (t *Tracker) Check(ctx context.Context, scope entity.DocumentScope) (Snapshot, error) {
	doc, err := t.records.FindCurrent(ctx, scope)
	return snapshotOf(doc, err, time.Now()), err
}

// Track subscribes to changes for scope and starts the initial check in the
// background. The handle must be closed.
func (t *Tracker) Track(ctx context.Context, scope entity.DocumentScope) (*Handle, error) {
	if scope.OwnerId == uuid.Nil || !scope.Kind.Valid() {
		return nil, deskerr.New(deskerr.CodeValidation, "Invalid tracking scope.")
	}

	hctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h := &Handle{
		scope:    scope,
		records:  t.records,
		log:      t.log,
		ctx:      hctx,
		cancel:   cancel,
		updates:  make(chan Snapshot, 1),
		snapshot: Snapshot{Status: entity.DocumentStateNotFound, Loading: true},
	}

	// Subscribe before the first check so a change landing in between is
	// not lost.
	sub, err := t.feed.Subscribe(ctx, scope.Topic(), h.onChange)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to status changes: %w", err)
	}
	h.sub = sub

	h.startCheck()
	return h, nil
}

// Handle is one live subscription. Results of checks are applied in issue
// order: a check that finishes after a newer one has been applied is dropped.
type Handle struct {
	scope   entity.DocumentScope
	records Finder
	log     logger.ILogger
	sub     statusfeed.Subscription

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	issued   uint64
	applied  uint64
	closed   bool
	snapshot Snapshot
	updates  chan Snapshot

	closeOnce sync.Once
}

func (h *Handle) Scope() entity.DocumentScope {
	return h.scope
}

func (h *Handle) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshot
}

// Updates delivers the latest snapshot after every change. Only the newest
// undelivered snapshot is kept. The channel is closed by Close.
func (h *Handle) Updates() <-chan Snapshot {
	return h.updates
}

// Refresh runs a check now and returns the resulting snapshot.
func (h *Handle) Refresh(ctx context.Context) (Snapshot, error) {
	seq, ok := h.issue()
	if !ok {
		return Snapshot{}, deskerr.New(deskerr.CodeValidation, "Status tracking has been stopped.")
	}
	doc, err := h.records.FindCurrent(ctx, h.scope)
	h.apply(seq, doc, err)
	return h.Snapshot(), err
}

// Close unsubscribes, cancels in-flight checks and waits for them. No
// snapshot is applied afterwards. Safe to call more than once.
func (h *Handle) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.updates)
		h.mu.Unlock()

		if h.sub != nil {
			h.sub.Unsubscribe()
		}
		h.cancel()
		h.wg.Wait()
	})
}

func (h *Handle) onChange(change statusfeed.Change) {
	if h.scope.CourseId != nil && change.CourseId != nil && *change.CourseId != *h.scope.CourseId {
		return
	}
	h.startCheck()
}

func (h *Handle) issue() (uint64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0, false
	}
	h.issued++
	h.snapshot.Loading = true
	return h.issued, true
}

func (h *Handle) startCheck() {
	seq, ok := h.issue()
	if !ok {
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		doc, err := h.records.FindCurrent(h.ctx, h.scope)
		h.apply(seq, doc, err)
	}()
}

func (h *Handle) apply(seq uint64, doc *entity.Document, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || seq <= h.applied {
		return
	}
	h.applied = seq

	if err != nil {
		h.log.Warn(moduleName, "Status check failed", map[string]interface{}{
			"owner_id": h.scope.OwnerId.String(),
			"kind":     string(h.scope.Kind),
			"error":    err.Error(),
		})
	}

	snap := snapshotOf(doc, err, time.Now())
	snap.Loading = h.applied < h.issued
	h.snapshot = snap

	select {
	case <-h.updates:
	default:
	}
	h.updates <- snap
}

func snapshotOf(doc *entity.Document, err error, at time.Time) Snapshot {
	exists := false
	snap := Snapshot{Exists: &exists, Status: entity.DocumentStateNotFound, CheckedAt: &at}
	if err != nil {
		snap.Error = deskerr.MessageOf(err, "Failed to check document status.")
		return snap
	}
	if doc == nil {
		return snap
	}
	exists = entity.CountsAsExisting(doc.State())
	id := doc.Id
	snap.Status = doc.State()
	snap.DocumentId = &id
	return snap
}
