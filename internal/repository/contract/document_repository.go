package contract

import (
	"context"
	"encoding/json"

	"campus-desk-be/internal/entity"
	"campus-desk-be/internal/repository/specification"

	"github.com/google/uuid"
)

// StatusUpdate is what the remote processor reports for a document.
type StatusUpdate struct {
	Status            entity.DocumentStatus
	ErrorMessage      *string
	StructuredContent json.RawMessage
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	ListByScope(ctx context.Context, scope entity.DocumentScope) ([]*entity.Document, error)
	ExistsWithStatusIn(ctx context.Context, scope entity.DocumentScope, statuses []entity.DocumentStatus) (bool, error)
	// FindCurrent returns the document queries run against, see
	// entity.SelectCurrent. Returns nil, nil when the scope has no documents.
	FindCurrent(ctx context.Context, scope entity.DocumentScope) (*entity.Document, error)
	// AdvanceStatus applies a forward-only status change. It fails with
	// deskerr.ErrInvalidTransition when the stored status does not allow it.
	AdvanceStatus(ctx context.Context, id uuid.UUID, update StatusUpdate) (*entity.Document, error)
}
