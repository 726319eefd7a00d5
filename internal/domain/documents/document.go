package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/domain/cases"
)

type Document struct {
	ID     uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID uuid.UUID   `gorm:"type:uuid;not null;index;column:case_id" json:"case_id"`
	Case   *cases.Case `gorm:"foreignKey:CaseID;references:ID;constraint:OnDelete:CASCADE" json:"case,omitempty"`

	Name       string         `gorm:"not null;column:name" json:"name"`
	StorageKey string         `gorm:"not null;column:storage_key" json:"storage_key"`
	MimeType   string         `gorm:"not null;column:mime_type" json:"mime_type"`
	SizeBytes  int64          `gorm:"column:size_bytes" json:"size_bytes"`
	Category   string         `gorm:"not null;default:'Uncategorized';column:category;index" json:"category"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	UploadedBy *uuid.UUID     `gorm:"type:uuid;column:uploaded_by" json:"uploaded_by,omitempty"`

	// A document carries at most one Bates label. Both columns are set in the
	// same update; NULL means unlabeled.
	BatesRegistryID *uuid.UUID `gorm:"type:uuid;column:bates_registry_id;index" json:"bates_registry_id,omitempty"`
	BatesNumber     *string    `gorm:"column:bates_number" json:"bates_number,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Document) TableName() string { return "document" }

func (d *Document) Labeled() bool {
	return d != nil && d.BatesRegistryID != nil
}
