package specification

import (
	"time"

	"campus-desk-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentOwnedBy struct {
	UserID uuid.UUID
}

func (s DocumentOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

type DocumentOfKind struct {
	Kind entity.DocumentKind
}

func (s DocumentOfKind) Apply(db *gorm.DB) *gorm.DB {
	if s.Kind == "" {
		return db
	}
	return db.Where("kind = ?", string(s.Kind))
}

// InScope narrows to one owner's documents of one kind, and to one course
// when the scope names it.
type InScope struct {
	Scope entity.DocumentScope
}

func (s InScope) Apply(db *gorm.DB) *gorm.DB {
	db = db.Where("user_id = ? AND kind = ?", s.Scope.OwnerId, string(s.Scope.Kind))
	if s.Scope.CourseId != nil {
		db = db.Where("course_id = ?", *s.Scope.CourseId)
	}
	return db
}

type StatusIn struct {
	Statuses []entity.DocumentStatus
}

func (s StatusIn) Apply(db *gorm.DB) *gorm.DB {
	values := make([]string, len(s.Statuses))
	for i, st := range s.Statuses {
		values[i] = string(st)
	}
	return db.Where("processing_status IN ?", values)
}

type UploadedBefore struct {
	Time time.Time
}

func (s UploadedBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("upload_date < ?", s.Time)
}

// NewestFirst orders by upload time, breaking ties on id so the order is
// stable for uploads within the same clock tick.
type NewestFirst struct{}

func (s NewestFirst) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("upload_date DESC").Order("id DESC")
}
