// Package ingest accepts uploaded PDFs, stores them, records them and kicks
// off remote processing.
package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"campus-desk-be/internal/entity"
	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/pkg/deskerr"
	"campus-desk-be/pkg/statusfeed"
	"campus-desk-be/pkg/storage"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const moduleName = "IngestPipeline"

var tracer = otel.Tracer("campus-desk-be/pkg/ingest")

// RecordStore is the part of the processing record store ingestion writes to.
type RecordStore interface {
	Create(ctx context.Context, doc *entity.Document) error
}

// Processor starts remote processing of a stored document.
type Processor interface {
	ProcessHandbook(ctx context.Context, handbookID, userID uuid.UUID) error
	ProcessSyllabus(ctx context.Context, courseID, userID uuid.UUID, storagePath string) error
}

type Publisher interface {
	Publish(ctx context.Context, change statusfeed.Change) error
}

type Options struct {
	// MaxAttempts bounds processing trigger attempts, including the first.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxElapsed:      2 * time.Minute,
	}
}

// Upload is one file as received from the client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Owner says who the document belongs to and what it is.
type Owner struct {
	UserId     uuid.UUID
	Kind       entity.DocumentKind
	AcademicId *uuid.UUID
	CourseId   *uuid.UUID
}

type Pipeline struct {
	store     storage.Store
	records   RecordStore
	processor Processor
	feed      Publisher
	log       logger.ILogger
	opts      Options
	now       func() time.Time

	triggers sync.WaitGroup
}

func NewPipeline(store storage.Store, records RecordStore, processor Processor, feed Publisher, log logger.ILogger, opts Options) *Pipeline {
	defaults := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = defaults.InitialInterval
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = defaults.MaxElapsed
	}
	return &Pipeline{
		store:     store,
		records:   records,
		processor: processor,
		feed:      feed,
		log:       log,
		opts:      opts,
		now:       time.Now,
	}
}

// Ingest validates, stores and records an upload, then triggers processing
// in the background. The returned document is always in status uploaded;
// whether the trigger succeeds does not affect the result.
func (p *Pipeline) Ingest(ctx context.Context, upload Upload, owner Owner) (*entity.Document, error) {
	ctx, span := tracer.Start(ctx, "ingest.Ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.kind", string(owner.Kind)),
		attribute.Int64("document.size", upload.Size),
	)

	doc, err := p.ingest(ctx, upload, owner)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(deskerr.CodeOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.String("document.id", doc.Id.String()))
	return doc, nil
}

func (p *Pipeline) ingest(ctx context.Context, upload Upload, owner Owner) (*entity.Document, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	content, err := validateUpload(upload)
	if err != nil {
		p.log.Info(moduleName, "Upload rejected", map[string]interface{}{
			"user_id":  owner.UserId.String(),
			"filename": upload.Filename,
			"reason":   deskerr.MessageOf(err, err.Error()),
		})
		return nil, err
	}

	uploadedAt := p.now()
	key := storageKey(owner, uploadedAt)

	if err := p.store.Put(ctx, key, pdfMediaType, content); err != nil {
		p.log.Error(moduleName, "Failed to store upload", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return nil, deskerr.Wrap(deskerr.CodeStorage, fmt.Sprintf("Failed to upload %s. Please try again.", owner.Kind.Label()), err)
	}

	doc := &entity.Document{
		Kind:             owner.Kind,
		UserId:           owner.UserId,
		AcademicId:       owner.AcademicId,
		CourseId:         owner.CourseId,
		StoragePath:      key,
		OriginalFilename: upload.Filename,
		FileSizeBytes:    upload.Size,
		Status:           entity.DocumentStatusUploaded,
		UploadedAt:       uploadedAt,
	}
	if owner.Kind != entity.DocumentKindSyllabus {
		doc.CourseId = nil
	}

	if err := p.records.Create(ctx, doc); err != nil {
		p.log.Error(moduleName, "Failed to record upload, removing stored file", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		// The request may already be cancelled; the blob still has to go.
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if rmErr := p.store.Remove(cleanupCtx, key); rmErr != nil {
			p.log.Error(moduleName, "Failed to remove orphaned upload", map[string]interface{}{
				"key":   key,
				"error": rmErr.Error(),
			})
		}
		return nil, deskerr.Wrap(deskerr.CodeRecord, fmt.Sprintf("Failed to save %s information. Please try again.", owner.Kind.Label()), err)
	}

	p.log.Info(moduleName, "Document uploaded", map[string]interface{}{
		"document_id": doc.Id.String(),
		"kind":        string(doc.Kind),
		"user_id":     doc.UserId.String(),
		"size":        doc.FileSizeBytes,
	})

	if err := p.feed.Publish(ctx, statusfeed.ChangeOf(doc)); err != nil {
		p.log.Warn(moduleName, "Failed to publish upload change", map[string]interface{}{
			"document_id": doc.Id.String(),
			"error":       err.Error(),
		})
	}

	p.TriggerProcessingAsync(doc)
	return doc, nil
}

func validateOwner(owner Owner) error {
	if owner.UserId == uuid.Nil {
		return deskerr.New(deskerr.CodeValidation, "Missing document owner.")
	}
	if !owner.Kind.Valid() {
		return deskerr.New(deskerr.CodeValidation, fmt.Sprintf("Unknown document kind %q.", owner.Kind))
	}
	if owner.Kind == entity.DocumentKindSyllabus && (owner.CourseId == nil || *owner.CourseId == uuid.Nil) {
		return deskerr.New(deskerr.CodeValidation, "A syllabus must belong to a course.")
	}
	return nil
}

// storageKey builds user-handbooks/<user>/<millis>-<rand>.pdf or
// course-syllabi/<user>/<course>/<millis>-<rand>.pdf.
func storageKey(owner Owner, at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	name := fmt.Sprintf("%d-%s.pdf", at.UnixMilli(), suffix)
	if owner.Kind == entity.DocumentKindSyllabus {
		return fmt.Sprintf("course-syllabi/%s/%s/%s", owner.UserId, *owner.CourseId, name)
	}
	return fmt.Sprintf("user-handbooks/%s/%s", owner.UserId, name)
}
