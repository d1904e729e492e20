package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Document struct {
	Id                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Kind              string         `gorm:"type:varchar(20);not null;index:idx_documents_scope,priority:2"`
	UserId            uuid.UUID      `gorm:"type:uuid;not null;index:idx_documents_scope,priority:1"`
	AcademicId        *uuid.UUID     `gorm:"type:uuid"`
	CourseId          *uuid.UUID     `gorm:"type:uuid;index"`
	StoragePath       string         `gorm:"type:varchar(512);not null;uniqueIndex"`
	OriginalFilename  string         `gorm:"type:varchar(255);not null"`
	FileSizeBytes     int64          `gorm:"not null"`
	ProcessingStatus  string         `gorm:"type:varchar(20);not null;default:'uploaded';index"`
	ErrorMessage      *string        `gorm:"type:text"`
	StructuredContent datatypes.JSON `gorm:"type:jsonb"`
	UploadDate        time.Time      `gorm:"not null;index"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime"`
	ProcessedDate     *time.Time
}

func (Document) TableName() string {
	return "user_documents"
}

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.Id == uuid.Nil {
		d.Id = uuid.New()
	}
	if d.UploadDate.IsZero() {
		d.UploadDate = time.Now()
	}
	return nil
}
