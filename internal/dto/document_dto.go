package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DocumentResponse struct {
	Id                uuid.UUID       `json:"id"`
	Kind              string          `json:"kind"`
	AcademicId        *uuid.UUID      `json:"academic_id,omitempty"`
	CourseId          *uuid.UUID      `json:"course_id,omitempty"`
	StoragePath       string          `json:"storage_path"`
	OriginalFilename  string          `json:"original_filename"`
	FileSizeBytes     int64           `json:"file_size"`
	ProcessingStatus  string          `json:"processing_status"`
	ErrorMessage      *string         `json:"error_message,omitempty"`
	StructuredContent json.RawMessage `json:"structured_content,omitempty"`
	UploadDate        time.Time       `json:"upload_date"`
	UpdatedAt         *time.Time      `json:"updated_at,omitempty"`
	ProcessedDate     *time.Time      `json:"processed_date,omitempty"`
}

type ListDocumentsRequest struct {
	Kind     string `query:"kind" validate:"omitempty,oneof=handbook syllabus"`
	CourseId string `query:"course_id" validate:"omitempty,uuid"`
}

type DocumentURLResponse struct {
	Id        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type DocumentStatusRequest struct {
	Kind     string `query:"kind" validate:"required,oneof=handbook syllabus"`
	CourseId string `query:"course_id" validate:"omitempty,uuid"`
}

type DocumentStatusResponse struct {
	Exists     *bool      `json:"exists"`
	Status     string     `json:"status"`
	DocumentId *uuid.UUID `json:"document_id,omitempty"`
	Loading    bool       `json:"loading"`
	Error      string     `json:"error,omitempty"`
	CheckedAt  *time.Time `json:"checked_at,omitempty"`
}

// UpdateProcessingStatusRequest is sent by the processing backend.
type UpdateProcessingStatusRequest struct {
	Id                uuid.UUID
	Status            string          `json:"status" validate:"required,oneof=processing completed failed"`
	ErrorMessage      *string         `json:"error_message"`
	StructuredContent json.RawMessage `json:"structured_content"`
}
