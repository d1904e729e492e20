package service

import (
	"context"
	"fmt"
	"time"

	"campus-desk-be/internal/dto"
	"campus-desk-be/internal/entity"
	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/internal/repository/specification"
	"campus-desk-be/internal/repository/unitofwork"
	"campus-desk-be/pkg/deskerr"
	"campus-desk-be/pkg/ingest"
	"campus-desk-be/pkg/statusfeed"
	"campus-desk-be/pkg/storage"
	"campus-desk-be/pkg/tracker"

	"github.com/google/uuid"
)

type IDocumentService interface {
	UploadHandbook(ctx context.Context, userId uuid.UUID, academicId *uuid.UUID, upload ingest.Upload) (*dto.DocumentResponse, error)
	UploadSyllabus(ctx context.Context, userId uuid.UUID, courseId uuid.UUID, upload ingest.Upload) (*dto.DocumentResponse, error)
	List(ctx context.Context, userId uuid.UUID, req *dto.ListDocumentsRequest) ([]*dto.DocumentResponse, error)
	SignedURL(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentURLResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	Retry(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error)
	Status(ctx context.Context, userId uuid.UUID, req *dto.DocumentStatusRequest) (*dto.DocumentStatusResponse, error)
}

// Ingester is the part of the ingestion pipeline the service drives.
type Ingester interface {
	Ingest(ctx context.Context, upload ingest.Upload, owner ingest.Owner) (*entity.Document, error)
	Retrigger(ctx context.Context, doc *entity.Document) error
}

type documentService struct {
	uowFactory   unitofwork.RepositoryFactory
	pipeline     Ingester
	store        storage.Store
	feed         statusfeed.Notifier
	tracker      *tracker.Tracker
	signedURLTTL time.Duration
	logger       logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	pipeline Ingester,
	store storage.Store,
	feed statusfeed.Notifier,
	statusTracker *tracker.Tracker,
	signedURLTTL time.Duration,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:   uowFactory,
		pipeline:     pipeline,
		store:        store,
		feed:         feed,
		tracker:      statusTracker,
		signedURLTTL: signedURLTTL,
		logger:       log,
	}
}

func (s *documentService) UploadHandbook(ctx context.Context, userId uuid.UUID, academicId *uuid.UUID, upload ingest.Upload) (*dto.DocumentResponse, error) {
	doc, err := s.pipeline.Ingest(ctx, upload, ingest.Owner{
		UserId:     userId,
		Kind:       entity.DocumentKindHandbook,
		AcademicId: academicId,
	})
	if err != nil {
		return nil, err
	}
	return ToDocumentResponse(doc), nil
}

func (s *documentService) UploadSyllabus(ctx context.Context, userId uuid.UUID, courseId uuid.UUID, upload ingest.Upload) (*dto.DocumentResponse, error) {
	doc, err := s.pipeline.Ingest(ctx, upload, ingest.Owner{
		UserId:   userId,
		Kind:     entity.DocumentKindSyllabus,
		CourseId: &courseId,
	})
	if err != nil {
		return nil, err
	}
	return ToDocumentResponse(doc), nil
}

func (s *documentService) List(ctx context.Context, userId uuid.UUID, req *dto.ListDocumentsRequest) ([]*dto.DocumentResponse, error) {
	courseId, err := parseOptionalUUID(req.CourseId, "course_id")
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs := []specification.Specification{
		specification.DocumentOwnedBy{UserID: userId},
		specification.DocumentOfKind{Kind: entity.DocumentKind(req.Kind)},
	}
	if courseId != nil {
		specs = append(specs, specification.Filter("course_id", *courseId))
	}
	specs = append(specs, specification.NewestFirst{})

	docs, err := uow.DocumentRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		result = append(result, ToDocumentResponse(doc))
	}
	return result, nil
}

func (s *documentService) SignedURL(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentURLResponse, error) {
	doc, err := s.findOwned(ctx, s.uowFactory.NewUnitOfWork(ctx), userId, id)
	if err != nil {
		return nil, err
	}

	url, err := s.store.SignedURL(ctx, doc.StoragePath, s.signedURLTTL)
	if err != nil {
		return nil, deskerr.Wrap(deskerr.CodeStorage, "Could not create a download link.", err)
	}
	return &dto.DocumentURLResponse{
		Id:        doc.Id,
		URL:       url,
		ExpiresAt: time.Now().Add(s.signedURLTTL),
	}, nil
}

// Delete removes the record and the stored file. The record delete is rolled
// back if the file cannot be removed, so a listed document always has its file.
func (s *documentService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			_ = uow.Rollback()
			panic(r)
		}
	}()

	doc, err := s.findOwned(ctx, uow, userId, id)
	if err != nil {
		_ = uow.Rollback()
		return err
	}

	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		_ = uow.Rollback()
		return err
	}

	if err := s.store.Remove(ctx, doc.StoragePath); err != nil {
		_ = uow.Rollback()
		return deskerr.Wrap(deskerr.CodeStorage, fmt.Sprintf("Failed to delete %s file.", doc.Kind.Label()), err)
	}

	if err := uow.Commit(); err != nil {
		s.logger.Error("DocumentService", "Record delete failed after file removal", map[string]interface{}{
			"document_id": id.String(),
			"key":         doc.StoragePath,
			"error":       err.Error(),
		})
		return err
	}

	change := statusfeed.ChangeOf(doc)
	change.Deleted = true
	if err := s.feed.Publish(ctx, change); err != nil {
		s.logger.Warn("DocumentService", "Failed to publish delete change", map[string]interface{}{
			"document_id": id.String(),
			"error":       err.Error(),
		})
	}

	s.logger.Info("DocumentService", "Document deleted", map[string]interface{}{
		"document_id": id.String(),
		"user_id":     userId.String(),
	})
	return nil
}

func (s *documentService) Retry(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error) {
	doc, err := s.findOwned(ctx, s.uowFactory.NewUnitOfWork(ctx), userId, id)
	if err != nil {
		return nil, err
	}
	if err := s.pipeline.Retrigger(ctx, doc); err != nil {
		return nil, err
	}
	return ToDocumentResponse(doc), nil
}

func (s *documentService) Status(ctx context.Context, userId uuid.UUID, req *dto.DocumentStatusRequest) (*dto.DocumentStatusResponse, error) {
	scope, err := ParseScope(userId, req.Kind, req.CourseId)
	if err != nil {
		return nil, err
	}
	snap, err := s.tracker.Check(ctx, scope)
	if err != nil {
		return nil, err
	}
	return ToStatusResponse(snap), nil
}

func (s *documentService) findOwned(ctx context.Context, uow unitofwork.UnitOfWork, userId, id uuid.UUID) (*entity.Document, error) {
	doc, err := uow.DocumentRepository().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, deskerr.New(deskerr.CodeNotFound, "Document not found.")
	}
	if doc.UserId != userId {
		return nil, deskerr.New(deskerr.CodeForbidden, "You do not have access to this document.")
	}
	return doc, nil
}

// ParseScope builds a tracking scope from request parameters. Syllabus
// scopes need a course.
func ParseScope(userId uuid.UUID, kind, courseId string) (entity.DocumentScope, error) {
	scope := entity.DocumentScope{OwnerId: userId, Kind: entity.DocumentKind(kind)}
	if !scope.Kind.Valid() {
		return scope, deskerr.New(deskerr.CodeValidation, fmt.Sprintf("Unknown document kind %q.", kind))
	}
	if scope.Kind != entity.DocumentKindSyllabus {
		return scope, nil
	}
	id, err := parseOptionalUUID(courseId, "course_id")
	if err != nil {
		return scope, err
	}
	if id == nil {
		return scope, deskerr.New(deskerr.CodeValidation, "course_id is required for syllabus documents.")
	}
	scope.CourseId = id
	return scope, nil
}

func parseOptionalUUID(raw, field string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, deskerr.Wrap(deskerr.CodeValidation, fmt.Sprintf("%s must be a valid id.", field), err)
	}
	return &id, nil
}

func ToDocumentResponse(doc *entity.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		Id:                doc.Id,
		Kind:              string(doc.Kind),
		AcademicId:        doc.AcademicId,
		CourseId:          doc.CourseId,
		StoragePath:       doc.StoragePath,
		OriginalFilename:  doc.OriginalFilename,
		FileSizeBytes:     doc.FileSizeBytes,
		ProcessingStatus:  string(doc.Status),
		ErrorMessage:      doc.ErrorMessage,
		StructuredContent: doc.StructuredContent,
		UploadDate:        doc.UploadedAt,
		UpdatedAt:         doc.UpdatedAt,
		ProcessedDate:     doc.ProcessedAt,
	}
}

func ToStatusResponse(snap tracker.Snapshot) *dto.DocumentStatusResponse {
	return &dto.DocumentStatusResponse{
		Exists:     snap.Exists,
		Status:     string(snap.Status),
		DocumentId: snap.DocumentId,
		Loading:    snap.Loading,
		Error:      snap.Error,
		CheckedAt:  snap.CheckedAt,
	}
}
