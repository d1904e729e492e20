package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campus-desk-be/internal/entity"
	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/pkg/statusfeed"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	doc     *entity.Document
	err     error
	release chan struct{}
}

// scriptedFinder answers the n-th call with responses[n], or with fallback
// once the script runs out.
type scriptedFinder struct {
	mu        sync.Mutex
	responses []response
	fallback  response
	calls     int
}

func (f *scriptedFinder) FindCurrent(ctx context.Context, _ entity.DocumentScope) (*entity.Document, error) {
	f.mu.Lock()
	r := f.fallback
	if f.calls < len(f.responses) {
		r = f.responses[f.calls]
	}
	f.calls++
	f.mu.Unlock()

	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.doc, r.err
}

func (f *scriptedFinder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *scriptedFinder) setFallback(r response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = r
}

type fakeSubscription struct {
	mu    sync.Mutex
	count int
}

func (s *fakeSubscription) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
}

type fakeFeed struct {
	mu      sync.Mutex
	handler statusfeed.Handler
	topic   string
	sub     *fakeSubscription
	err     error
}

func (f *fakeFeed) Subscribe(_ context.Context, topic string, onChange statusfeed.Handler) (statusfeed.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.topic = topic
	f.handler = onChange
	f.sub = &fakeSubscription{}
	return f.sub, nil
}

func (f *fakeFeed) emit(c statusfeed.Change) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(c)
}

func doc(status entity.DocumentStatus) *entity.Document {
	return &entity.Document{Id: uuid.New(), Kind: entity.DocumentKindHandbook, Status: status}
}

func waitFor(t *testing.T, h *Handle, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-h.Updates():
			require.True(t, ok, "updates closed early")
			if pred(snap) {
				return snap
			}
		case <-timeout:
			t.Fatalf("condition not reached; last snapshot %+v", h.Snapshot())
		}
	}
}

func handbookScope() entity.DocumentScope {
	return entity.DocumentScope{OwnerId: uuid.New(), Kind: entity.DocumentKindHandbook}
}

func TestTrack_InitialCheck(t *testing.T) {
	uploaded := doc(entity.DocumentStatusUploaded)
	finder := &scriptedFinder{fallback: response{doc: uploaded}}
	feed := &fakeFeed{}
	scope := handbookScope()

	h, err := New(finder, feed, logger.NewNopLogger()).Track(context.Background(), scope)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, scope.Topic(), feed.topic)

	snap := waitFor(t, h, func(s Snapshot) bool { return !s.Loading })
	require.NotNil(t, snap.Exists)
	assert.True(t, *snap.Exists)
	assert.Equal(t, entity.DocumentStateUploaded, snap.Status)
	assert.Equal(t, uploaded.Id, *snap.DocumentId)
}

func TestTrack_ChangeTriggersRecheck(t *testing.T) {
	finder := &scriptedFinder{fallback: response{}}
	feed := &fakeFeed{}

	h, err := New(finder, feed, logger.NewNopLogger()).Track(context.Background(), handbookScope())
	require.NoError(t, err)
	defer h.Close()

	first := waitFor(t, h, func(s Snapshot) bool { return !s.Loading })
	assert.False(t, *first.Exists)
	assert.Equal(t, entity.DocumentStateNotFound, first.Status)

	finder.setFallback(response{doc: doc(entity.DocumentStatusCompleted)})
	feed.emit(statusfeed.Change{Status: entity.DocumentStatusCompleted})

	snap := waitFor(t, h, func(s Snapshot) bool { return s.Status == entity.DocumentStateCompleted })
	assert.True(t, *snap.Exists)
}

func TestTrack_StaleResultIsDiscarded(t *testing.T) {
	slow := make(chan struct{})
	finder := &scriptedFinder{
		responses: []response{
			{doc: doc(entity.DocumentStatusUploaded), release: slow},
			{doc: doc(entity.DocumentStatusCompleted)},
		},
	}
	feed := &fakeFeed{}

	h, err := New(finder, feed, logger.NewNopLogger()).Track(context.Background(), handbookScope())
	require.NoError(t, err)
	defer h.Close()

	// The initial check must be holding the slow response before the change
	// issues a newer one.
	require.Eventually(t, func() bool { return finder.callCount() >= 1 }, 2*time.Second, time.Millisecond)

	feed.emit(statusfeed.Change{})
	snap := waitFor(t, h, func(s Snapshot) bool { return s.Status == entity.DocumentStateCompleted })
	assert.False(t, snap.Loading)

	close(slow)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, entity.DocumentStateCompleted, h.Snapshot().Status, "older check must not overwrite newer result")
}

func TestTrack_FailedDocumentDoesNotCountAsExisting(t *testing.T) {
	finder := &scriptedFinder{fallback: response{doc: doc(entity.DocumentStatusFailed)}}

	h, err := New(finder, &fakeFeed{}, logger.NewNopLogger()).Track(context.Background(), handbookScope())
	require.NoError(t, err)
	defer h.Close()

	snap := waitFor(t, h, func(s Snapshot) bool { return !s.Loading })
	assert.False(t, *snap.Exists)
	assert.Equal(t, entity.DocumentStateFailed, snap.Status)
}

func TestTrack_CheckErrorIsReported(t *testing.T) {
	finder := &scriptedFinder{fallback: response{err: errors.New("db down")}}

	h, err := New(finder, &fakeFeed{}, logger.NewNopLogger()).Track(context.Background(), handbookScope())
	require.NoError(t, err)
	defer h.Close()

	snap := waitFor(t, h, func(s Snapshot) bool { return !s.Loading })
	assert.False(t, *snap.Exists)
	assert.NotEmpty(t, snap.Error)
}

func TestTrack_SyllabusIgnoresOtherCourses(t *testing.T) {
	course := uuid.New()
	otherCourse := uuid.New()
	finder := &scriptedFinder{fallback: response{}}
	feed := &fakeFeed{}
	scope := entity.DocumentScope{OwnerId: uuid.New(), Kind: entity.DocumentKindSyllabus, CourseId: &course}

	h, err := New(finder, feed, logger.NewNopLogger()).Track(context.Background(), scope)
	require.NoError(t, err)
	defer h.Close()
	waitFor(t, h, func(s Snapshot) bool { return !s.Loading })

	feed.emit(statusfeed.Change{CourseId: &otherCourse})
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, finder.callCount())
}

func TestHandle_CloseIsIdempotentAndFinal(t *testing.T) {
	blocked := make(chan struct{})
	finder := &scriptedFinder{fallback: response{doc: doc(entity.DocumentStatusCompleted), release: blocked}}
	feed := &fakeFeed{}

	h, err := New(finder, feed, logger.NewNopLogger()).Track(context.Background(), handbookScope())
	require.NoError(t, err)

	h.Close()
	h.Close()
	close(blocked)

	assert.Equal(t, 1, feed.sub.count)
	assert.True(t, h.Snapshot().Loading, "no result is applied after close")

	_, open := <-h.Updates()
	assert.False(t, open)

	feed.emit(statusfeed.Change{})
	_, err = h.Refresh(context.Background())
	assert.Error(t, err)
}

func TestHandle_Refresh(t *testing.T) {
	finder := &scriptedFinder{fallback: response{}}

	h, err := New(finder, &fakeFeed{}, logger.NewNopLogger()).Track(context.Background(), handbookScope())
	require.NoError(t, err)
	defer h.Close()
	waitFor(t, h, func(s Snapshot) bool { return !s.Loading })

	finder.setFallback(response{doc: doc(entity.DocumentStatusProcessing)})
	snap, err := h.Refresh(context.Background())

	require.NoError(t, err)
	assert.True(t, *snap.Exists)
	assert.Equal(t, entity.DocumentStateProcessing, snap.Status)
}

func TestTrack_SubscribeFailure(t *testing.T) {
	_, err := New(&scriptedFinder{}, &fakeFeed{err: errors.New("nats down")}, logger.NewNopLogger()).
		Track(context.Background(), handbookScope())
	assert.Error(t, err)
}

func TestTracker_Check(t *testing.T) {
	finder := &scriptedFinder{fallback: response{doc: doc(entity.DocumentStatusCompleted)}}

	snap, err := New(finder, &fakeFeed{}, logger.NewNopLogger()).Check(context.Background(), handbookScope())

	require.NoError(t, err)
	assert.True(t, *snap.Exists)
	assert.False(t, snap.Loading)
	assert.Equal(t, entity.DocumentStateCompleted, snap.Status)
}
