package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"sync"
	"testing"
	"time"

	"campus-desk-be/internal/entity"
	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/pkg/deskerr"
	"campus-desk-be/pkg/statusfeed"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	puts    []string
	removes []string
	putErr  error
	data    map[string][]byte
}

func (s *fakeStore) Put(_ context.Context, key, _ string, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, key)
	if s.putErr != nil {
		return s.putErr
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if s.data == nil {
		s.data = map[string][]byte{}
	}
	s.data[key] = body
	return nil
}

func (s *fakeStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removes = append(s.removes, key)
	delete(s.data, key)
	return nil
}

func (s *fakeStore) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://example.test/" + key, nil
}

type fakeRecords struct {
	mu      sync.Mutex
	created []*entity.Document
	err     error
}

func (r *fakeRecords) Create(_ context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	doc.Id = uuid.New()
	copied := *doc
	r.created = append(r.created, &copied)
	return nil
}

type fakeProcessor struct {
	mu        sync.Mutex
	handbooks []uuid.UUID
	syllabi   []string
	err       error
}

func (p *fakeProcessor) ProcessHandbook(_ context.Context, handbookID, _ uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handbooks = append(p.handbooks, handbookID)
	return p.err
}

func (p *fakeProcessor) ProcessSyllabus(_ context.Context, _, _ uuid.UUID, storagePath string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syllabi = append(p.syllabi, storagePath)
	return p.err
}

func (p *fakeProcessor) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handbooks) + len(p.syllabi)
}

type fakeFeed struct {
	mu      sync.Mutex
	changes []statusfeed.Change
}

func (f *fakeFeed) Publish(_ context.Context, c statusfeed.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, c)
	return nil
}

type fixture struct {
	store     *fakeStore
	records   *fakeRecords
	processor *fakeProcessor
	feed      *fakeFeed
	pipeline  *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		store:     &fakeStore{},
		records:   &fakeRecords{},
		processor: &fakeProcessor{},
		feed:      &fakeFeed{},
	}
	f.pipeline = NewPipeline(f.store, f.records, f.processor, f.feed, logger.NewNopLogger(), Options{
		MaxAttempts:     3,
		InitialInterval: time.Millisecond,
		MaxElapsed:      time.Second,
	})
	return f
}

func pdfBytes(size int) []byte {
	header := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	if size < len(header) {
		size = len(header)
	}
	body := make([]byte, size)
	copy(body, header)
	for i := len(header); i < size; i++ {
		body[i] = 'a'
	}
	return body
}

func pdfUpload(size int) Upload {
	return Upload{
		Filename:    "handbook.pdf",
		ContentType: "application/pdf",
		Size:        int64(size),
		Content:     bytes.NewReader(pdfBytes(size)),
	}
}

func handbookOwner() Owner {
	return Owner{UserId: uuid.New(), Kind: entity.DocumentKindHandbook}
}

func TestIngest_Handbook(t *testing.T) {
	f := newFixture()
	owner := handbookOwner()

	doc, err := f.pipeline.Ingest(context.Background(), pdfUpload(2<<20), owner)
	require.NoError(t, err)
	f.pipeline.Wait()

	assert.Equal(t, entity.DocumentStatusUploaded, doc.Status)
	assert.Equal(t, "handbook.pdf", doc.OriginalFilename)
	assert.Equal(t, int64(2<<20), doc.FileSizeBytes)
	assert.Regexp(t, regexp.MustCompile(`^user-handbooks/`+owner.UserId.String()+`/\d{13}-[0-9a-f]{12}\.pdf$`), doc.StoragePath)

	require.Len(t, f.store.puts, 1)
	assert.Equal(t, doc.StoragePath, f.store.puts[0])
	assert.Len(t, f.store.data[doc.StoragePath], 2<<20, "sniffed bytes are replayed into storage")

	require.Len(t, f.feed.changes, 1)
	assert.Equal(t, doc.Id, f.feed.changes[0].DocumentId)

	assert.Equal(t, []uuid.UUID{doc.Id}, f.processor.handbooks)
}

func TestIngest_SyllabusKeyAndTrigger(t *testing.T) {
	f := newFixture()
	course := uuid.New()
	owner := Owner{UserId: uuid.New(), Kind: entity.DocumentKindSyllabus, CourseId: &course}

	doc, err := f.pipeline.Ingest(context.Background(), pdfUpload(4096), owner)
	require.NoError(t, err)
	f.pipeline.Wait()

	assert.Regexp(t, regexp.MustCompile(`^course-syllabi/`+owner.UserId.String()+`/`+course.String()+`/\d{13}-[0-9a-f]{12}\.pdf$`), doc.StoragePath)
	assert.Equal(t, []string{doc.StoragePath}, f.processor.syllabi)
}

func TestIngest_RejectsBeforeAnyIO(t *testing.T) {
	course := uuid.New()
	tests := []struct {
		name   string
		upload Upload
		owner  Owner
	}{
		{
			name: "101 MB file",
			upload: Upload{
				Filename:    "big.pdf",
				ContentType: "application/pdf",
				Size:        101 << 20,
				Content:     bytes.NewReader(pdfBytes(64)),
			},
			owner: handbookOwner(),
		},
		{
			name: "declared non-pdf",
			upload: Upload{
				Filename:    "notes.docx",
				ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
				Size:        1024,
				Content:     bytes.NewReader(make([]byte, 1024)),
			},
			owner: handbookOwner(),
		},
		{
			name: "pdf type but not pdf content",
			upload: Upload{
				Filename:    "fake.pdf",
				ContentType: "application/pdf",
				Size:        11,
				Content:     bytes.NewReader([]byte("hello world")),
			},
			owner: handbookOwner(),
		},
		{
			name: "empty file",
			upload: Upload{
				Filename:    "empty.pdf",
				ContentType: "application/pdf",
				Size:        0,
				Content:     bytes.NewReader(nil),
			},
			owner: handbookOwner(),
		},
		{
			name:   "syllabus without course",
			upload: pdfUpload(1024),
			owner:  Owner{UserId: uuid.New(), Kind: entity.DocumentKindSyllabus},
		},
		{
			name:   "unknown kind",
			upload: pdfUpload(1024),
			owner:  Owner{UserId: uuid.New(), Kind: "transcript", CourseId: &course},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()

			doc, err := f.pipeline.Ingest(context.Background(), tt.upload, tt.owner)
			f.pipeline.Wait()

			require.Error(t, err)
			assert.Nil(t, doc)
			assert.ErrorIs(t, err, deskerr.ErrValidation)
			assert.Empty(t, f.store.puts)
			assert.Empty(t, f.records.created)
			assert.Zero(t, f.processor.calls())
		})
	}
}

func TestIngest_AcceptsContentTypeParameters(t *testing.T) {
	f := newFixture()
	upload := pdfUpload(1024)
	upload.ContentType = "application/pdf; name=handbook.pdf"

	_, err := f.pipeline.Ingest(context.Background(), upload, handbookOwner())
	f.pipeline.Wait()

	assert.NoError(t, err)
}

func TestIngest_StorageFailure(t *testing.T) {
	f := newFixture()
	f.store.putErr = errors.New("bucket unavailable")

	doc, err := f.pipeline.Ingest(context.Background(), pdfUpload(1024), handbookOwner())
	f.pipeline.Wait()

	require.Error(t, err)
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, deskerr.ErrStorage)
	assert.Empty(t, f.records.created)
	assert.Empty(t, f.feed.changes)
	assert.Zero(t, f.processor.calls())
}

func TestIngest_RecordFailureRemovesBlob(t *testing.T) {
	f := newFixture()
	f.records.err = errors.New("connection reset")

	doc, err := f.pipeline.Ingest(context.Background(), pdfUpload(1024), handbookOwner())
	f.pipeline.Wait()

	require.Error(t, err)
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, deskerr.ErrRecord)
	require.Len(t, f.store.puts, 1)
	assert.Equal(t, f.store.puts, f.store.removes, "the stored blob is removed")
	assert.Empty(t, f.store.data)
	assert.Zero(t, f.processor.calls())
}

func TestIngest_SucceedsWhenProcessorRefusesConnection(t *testing.T) {
	f := newFixture()
	f.processor.err = deskerr.New(deskerr.CodeTransportConnect, "Cannot reach the backend server.")

	doc, err := f.pipeline.Ingest(context.Background(), pdfUpload(1024), handbookOwner())
	require.NoError(t, err)
	f.pipeline.Wait()

	assert.Equal(t, entity.DocumentStatusUploaded, doc.Status)
	assert.Equal(t, 3, f.processor.calls(), "connect failures are retried up to MaxAttempts")
	assert.Len(t, f.records.created, 1)
}

func TestIngest_NonRetryableTriggerFailureStopsEarly(t *testing.T) {
	f := newFixture()
	f.processor.err = deskerr.New(deskerr.CodeValidation, "bad request")

	_, err := f.pipeline.Ingest(context.Background(), pdfUpload(1024), handbookOwner())
	require.NoError(t, err)
	f.pipeline.Wait()

	assert.Equal(t, 1, f.processor.calls())
}

func TestRetrigger(t *testing.T) {
	f := newFixture()
	doc := &entity.Document{Id: uuid.New(), UserId: uuid.New(), Kind: entity.DocumentKindHandbook, Status: entity.DocumentStatusUploaded}

	require.NoError(t, f.pipeline.Retrigger(context.Background(), doc))
	assert.Equal(t, []uuid.UUID{doc.Id}, f.processor.handbooks)

	doc.Status = entity.DocumentStatusCompleted
	err := f.pipeline.Retrigger(context.Background(), doc)
	assert.ErrorIs(t, err, deskerr.ErrInvalidTransition)
	assert.Equal(t, 1, f.processor.calls())
}
