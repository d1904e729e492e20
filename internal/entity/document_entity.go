package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type DocumentKind string

const (
	DocumentKindHandbook DocumentKind = "handbook"
	DocumentKindSyllabus DocumentKind = "syllabus"
)

func (k DocumentKind) Valid() bool {
	return k == DocumentKindHandbook || k == DocumentKindSyllabus
}

// Label is the word used in user-facing messages.
func (k DocumentKind) Label() string {
	if k == DocumentKindSyllabus {
		return "syllabus"
	}
	return "handbook"
}

type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// rank orders statuses along the lifecycle. completed and failed share the
// terminal rank.
func (s DocumentStatus) rank() int {
	switch s {
	case DocumentStatusUploaded:
		return 0
	case DocumentStatusProcessing:
		return 1
	case DocumentStatusCompleted, DocumentStatusFailed:
		return 2
	default:
		return -1
	}
}

func (s DocumentStatus) Valid() bool {
	return s.rank() >= 0
}

func (s DocumentStatus) Terminal() bool {
	return s.rank() == 2
}

// CanTransition reports whether a record in status from may move to to.
// Transitions only go forward and never leave a terminal status.
func CanTransition(from, to DocumentStatus) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return false
	}
	return to.rank() > from.rank()
}

// Predecessors lists every status that may legally transition into to.
func Predecessors(to DocumentStatus) []DocumentStatus {
	var out []DocumentStatus
	for _, from := range []DocumentStatus{DocumentStatusUploaded, DocumentStatusProcessing} {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// ActiveStatuses are the statuses whose documents count as existing for
// query gating.
var ActiveStatuses = []DocumentStatus{
	DocumentStatusUploaded,
	DocumentStatusProcessing,
	DocumentStatusCompleted,
}

type Document struct {
	Id                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind              DocumentKind
	UserId            uuid.UUID  `gorm:"type:uuid;index"`
	AcademicId        *uuid.UUID `gorm:"type:uuid"`
	CourseId          *uuid.UUID `gorm:"type:uuid;index"`
	StoragePath       string
	OriginalFilename  string
	FileSizeBytes     int64
	Status            DocumentStatus
	ErrorMessage      *string
	StructuredContent json.RawMessage
	UploadedAt        time.Time
	UpdatedAt         *time.Time
	ProcessedAt       *time.Time
}

func (d *Document) State() DocumentState {
	if d == nil {
		return DocumentStateNotFound
	}
	return StateOf(d.Status)
}

func (d *Document) Scope() DocumentScope {
	return DocumentScope{OwnerId: d.UserId, Kind: d.Kind, CourseId: d.CourseId}
}

// DocumentScope names the set of documents a tracker or query engine works
// against: a user's handbooks, or a user's syllabi for one course.
type DocumentScope struct {
	OwnerId  uuid.UUID
	Kind     DocumentKind
	CourseId *uuid.UUID
}

// Topic is the change-feed topic for the scope. Syllabus changes are
// published per owner and filtered by course at check time.
func (s DocumentScope) Topic() string {
	return "documents." + string(s.Kind) + "." + s.OwnerId.String()
}
