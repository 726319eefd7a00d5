package exhibits

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/domain/cases"
)

const (
	EventTypeDeposition = "deposition"
	EventTypeHearing    = "hearing"
	EventTypeTrial      = "trial"
	EventTypeOther      = "other"
)

func ValidEventType(t string) bool {
	switch t {
	case EventTypeDeposition, EventTypeHearing, EventTypeTrial, EventTypeOther:
		return true
	}
	return false
}

// ExhibitPackage bundles exhibits prepared for a single event.
type ExhibitPackage struct {
	ID     uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID uuid.UUID   `gorm:"type:uuid;not null;index;column:case_id" json:"case_id"`
	Case   *cases.Case `gorm:"foreignKey:CaseID;references:ID;constraint:OnDelete:CASCADE" json:"case,omitempty"`

	Name        string     `gorm:"not null;column:name" json:"name"`
	Description string     `gorm:"column:description" json:"description,omitempty"`
	EventType   string     `gorm:"not null;default:'other';column:event_type" json:"event_type"`
	CreatedBy   *uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`

	Members []ExhibitPackageMember `gorm:"foreignKey:PackageID;references:ID" json:"members,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ExhibitPackage) TableName() string { return "exhibit_package" }

// ExhibitPackageMember orders exhibits within a package.
type ExhibitPackageMember struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PackageID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_package_exhibit,priority:1;column:package_id" json:"package_id"`
	ExhibitID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_package_exhibit,priority:2;column:exhibit_id" json:"exhibit_id"`
	Exhibit   *Exhibit  `gorm:"foreignKey:ExhibitID;references:ID" json:"exhibit,omitempty"`
	SortOrder int       `gorm:"not null;default:0;column:sort_order" json:"sort_order"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ExhibitPackageMember) TableName() string { return "exhibit_package_member" }
