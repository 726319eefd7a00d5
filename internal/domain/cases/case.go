package cases

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CaseStatusActive   = "active"
	CaseStatusClosed   = "closed"
	CaseStatusArchived = "archived"
)

type Case struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string     `gorm:"not null;column:name" json:"name"`
	Description string     `gorm:"column:description" json:"description,omitempty"`
	Client      string     `gorm:"column:client" json:"client,omitempty"`
	CaseNumber  string     `gorm:"column:case_number" json:"case_number,omitempty"`
	Status      string     `gorm:"not null;default:'active';column:status;index" json:"status"`
	CreatedBy   *uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Case) TableName() string { return "case" }
