package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-desk-be/internal/entity"
	"campus-desk-be/internal/mapper"
	"campus-desk-be/internal/model"
	"campus-desk-be/internal/repository/contract"
	"campus-desk-be/internal/repository/specification"
	"campus-desk-be/pkg/deskerr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

type DocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &DocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentRepositoryImpl) Create(ctx context.Context, doc *entity.Document) error {
	m := r.mapper.ToModel(doc)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return deskerr.Wrap(deskerr.CodeRecord, "A document is already registered at this storage path.", err)
		}
		return err
	}
	*doc = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Document{}, "id = ?", id).Error
}

func (r *DocumentRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *DocumentRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	var m model.Document
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	var models []*model.Document
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentRepositoryImpl) ListByScope(ctx context.Context, scope entity.DocumentScope) ([]*entity.Document, error) {
	return r.FindAll(ctx, specification.InScope{Scope: scope}, specification.NewestFirst{})
}

func (r *DocumentRepositoryImpl) ExistsWithStatusIn(ctx context.Context, scope entity.DocumentScope, statuses []entity.DocumentStatus) (bool, error) {
	var count int64
	query := r.applySpecifications(
		r.db.WithContext(ctx).Model(&model.Document{}),
		specification.InScope{Scope: scope},
		specification.StatusIn{Statuses: statuses},
	)
	if err := query.Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindCurrent applies entity.SelectCurrent to the scope's documents. A scope
// holds a handful of uploads at most.
func (r *DocumentRepositoryImpl) FindCurrent(ctx context.Context, scope entity.DocumentScope) (*entity.Document, error) {
	docs, err := r.ListByScope(ctx, scope)
	if err != nil {
		return nil, err
	}
	return entity.SelectCurrent(docs), nil
}

func (r *DocumentRepositoryImpl) AdvanceStatus(ctx context.Context, id uuid.UUID, update contract.StatusUpdate) (*entity.Document, error) {
	if !update.Status.Valid() {
		return nil, deskerr.New(deskerr.CodeValidation, fmt.Sprintf("Unknown processing status %q.", update.Status))
	}

	var updated *entity.Document
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.Document
		if err := tx.Where("id = ?", id).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return deskerr.New(deskerr.CodeNotFound, "Document not found.")
			}
			return err
		}

		from := entity.DocumentStatus(current.ProcessingStatus)
		if !entity.CanTransition(from, update.Status) {
			return deskerr.New(deskerr.CodeInvalidTransition,
				fmt.Sprintf("Cannot move document from %s to %s.", from, update.Status))
		}

		fields := map[string]interface{}{
			"processing_status": string(update.Status),
			"error_message":     update.ErrorMessage,
		}
		if len(update.StructuredContent) > 0 {
			fields["structured_content"] = datatypes.JSON(update.StructuredContent)
		}
		if update.Status.Terminal() {
			now := time.Now()
			fields["processed_date"] = &now
		}

		// Guarded on the predecessor set so a concurrent writer that already
		// moved the record forward makes this a no-op instead of a rollback.
		res := tx.Model(&model.Document{}).
			Where("id = ? AND processing_status IN ?", id, statusStrings(entity.Predecessors(update.Status))).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return deskerr.New(deskerr.CodeInvalidTransition,
				fmt.Sprintf("Document status changed concurrently; %s no longer applies.", update.Status))
		}

		var fresh model.Document
		if err := tx.Where("id = ?", id).First(&fresh).Error; err != nil {
			return err
		}
		updated = r.mapper.ToEntity(&fresh)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func statusStrings(statuses []entity.DocumentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
