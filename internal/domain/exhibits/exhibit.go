package exhibits

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/domain/cases"
	"github.com/yungbote/lexbridge-backend/internal/domain/documents"
)

const (
	StatusDesignated = "designated"
	StatusPrepared   = "prepared"
	StatusUsed       = "used"
	StatusAdmitted   = "admitted"
	StatusRejected   = "rejected"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusDesignated, StatusPrepared, StatusUsed, StatusAdmitted, StatusRejected:
		return true
	}
	return false
}

// Exhibit designates a document as evidence in a case. ExhibitNumber stays
// NULL until assigned; the composite unique index only bites once both
// columns are non-null, which gives per-case uniqueness among assigned
// numbers (Postgres treats NULLs as distinct).
type Exhibit struct {
	ID     uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_exhibit_case_number,priority:1;column:case_id" json:"case_id"`
	Case   *cases.Case `gorm:"foreignKey:CaseID;references:ID;constraint:OnDelete:CASCADE" json:"case,omitempty"`

	DocumentID uuid.UUID           `gorm:"type:uuid;not null;index;column:document_id" json:"document_id"`
	Document   *documents.Document `gorm:"foreignKey:DocumentID;references:ID" json:"document,omitempty"`

	Title       string  `gorm:"not null;column:title" json:"title"`
	Description string  `gorm:"column:description" json:"description,omitempty"`
	ExhibitNumber *string `gorm:"uniqueIndex:idx_exhibit_case_number,priority:2;column:exhibit_number" json:"exhibit_number,omitempty"`

	// Key of the sticker-stamped artifact; empty when no visual sticker was
	// applied (non-PDF underlying document).
	ExhibitKey string `gorm:"column:exhibit_key" json:"exhibit_key,omitempty"`

	Status    string     `gorm:"not null;default:'designated';column:status;index" json:"status"`
	CreatedBy *uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Exhibit) TableName() string { return "exhibit" }
