package service

import (
	"context"

	"campus-desk-be/internal/dto"
	"campus-desk-be/internal/entity"
	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/internal/repository/contract"
	"campus-desk-be/internal/repository/unitofwork"
	"campus-desk-be/pkg/statusfeed"

	"github.com/google/uuid"
)

// IStatusService applies status updates reported by the processing backend.
type IStatusService interface {
	Apply(ctx context.Context, id uuid.UUID, update contract.StatusUpdate) (*entity.Document, error)
	UpdateStatus(ctx context.Context, req *dto.UpdateProcessingStatusRequest) (*dto.DocumentResponse, error)
}

type statusService struct {
	uowFactory unitofwork.RepositoryFactory
	feed       statusfeed.Notifier
	logger     logger.ILogger
}

func NewStatusService(uowFactory unitofwork.RepositoryFactory, feed statusfeed.Notifier, log logger.ILogger) IStatusService {
	return &statusService{
		uowFactory: uowFactory,
		feed:       feed,
		logger:     log,
	}
}

// Apply moves the record forward and tells trackers about it. Backward or
// repeated transitions fail with invalid_transition and publish nothing.
func (s *statusService) Apply(ctx context.Context, id uuid.UUID, update contract.StatusUpdate) (*entity.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc, err := uow.DocumentRepository().AdvanceStatus(ctx, id, update)
	if err != nil {
		s.logger.Warn("StatusService", "Status update rejected", map[string]interface{}{
			"document_id": id.String(),
			"status":      string(update.Status),
			"error":       err.Error(),
		})
		return nil, err
	}

	s.logger.Info("StatusService", "Document status changed", map[string]interface{}{
		"document_id": id.String(),
		"status":      string(doc.Status),
	})

	if err := s.feed.Publish(ctx, statusfeed.ChangeOf(doc)); err != nil {
		s.logger.Warn("StatusService", "Failed to publish status change", map[string]interface{}{
			"document_id": id.String(),
			"error":       err.Error(),
		})
	}
	return doc, nil
}

func (s *statusService) UpdateStatus(ctx context.Context, req *dto.UpdateProcessingStatusRequest) (*dto.DocumentResponse, error) {
	doc, err := s.Apply(ctx, req.Id, contract.StatusUpdate{
		Status:            entity.DocumentStatus(req.Status),
		ErrorMessage:      req.ErrorMessage,
		StructuredContent: req.StructuredContent,
	})
	if err != nil {
		return nil, err
	}
	return ToDocumentResponse(doc), nil
}
