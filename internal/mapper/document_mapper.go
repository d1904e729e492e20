package mapper

import (
	"encoding/json"
	"time"

	"campus-desk-be/internal/entity"
	"campus-desk-be/internal/model"

	"gorm.io/datatypes"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	var content json.RawMessage
	if len(d.StructuredContent) > 0 {
		content = json.RawMessage(d.StructuredContent)
	}

	return &entity.Document{
		Id:                d.Id,
		Kind:              entity.DocumentKind(d.Kind),
		UserId:            d.UserId,
		AcademicId:        d.AcademicId,
		CourseId:          d.CourseId,
		StoragePath:       d.StoragePath,
		OriginalFilename:  d.OriginalFilename,
		FileSizeBytes:     d.FileSizeBytes,
		Status:            entity.DocumentStatus(d.ProcessingStatus),
		ErrorMessage:      d.ErrorMessage,
		StructuredContent: content,
		UploadedAt:        d.UploadDate,
		UpdatedAt:         updatedAt,
		ProcessedAt:       d.ProcessedDate,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	var content datatypes.JSON
	if len(d.StructuredContent) > 0 {
		content = datatypes.JSON(d.StructuredContent)
	}

	return &model.Document{
		Id:                d.Id,
		Kind:              string(d.Kind),
		UserId:            d.UserId,
		AcademicId:        d.AcademicId,
		CourseId:          d.CourseId,
		StoragePath:       d.StoragePath,
		OriginalFilename:  d.OriginalFilename,
		FileSizeBytes:     d.FileSizeBytes,
		ProcessingStatus:  string(d.Status),
		ErrorMessage:      d.ErrorMessage,
		StructuredContent: content,
		UploadDate:        d.UploadedAt,
		UpdatedAt:         updatedAt,
		ProcessedDate:     d.ProcessedAt,
	}
}

func (m *DocumentMapper) ToEntities(docs []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(docs))
	for i, d := range docs {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
