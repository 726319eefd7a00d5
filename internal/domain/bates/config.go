package bates

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/domain/cases"
)

const (
	FormatSequential   = "sequential"
	FormatAlphanumeric = "alphanumeric"
)

// Config defines a Bates label series. Prefix, suffix and start number are
// frozen as soon as the first registry entry references the config; name,
// padding and format stay editable.
type Config struct {
	ID     uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID uuid.UUID   `gorm:"type:uuid;not null;index;column:case_id" json:"case_id"`
	Case   *cases.Case `gorm:"foreignKey:CaseID;references:ID;constraint:OnDelete:CASCADE" json:"case,omitempty"`

	Name        string     `gorm:"not null;column:name" json:"name"`
	Prefix      string     `gorm:"not null;default:'';column:prefix" json:"prefix"`
	Suffix      string     `gorm:"not null;default:'';column:suffix" json:"suffix"`
	StartNumber int64      `gorm:"not null;default:1;column:start_number" json:"start_number"`
	Padding     int        `gorm:"not null;default:5;column:padding" json:"padding"`
	Format      string     `gorm:"not null;default:'sequential';column:format" json:"format"`
	CreatedBy   *uuid.UUID `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Config) TableName() string { return "bates_config" }

// RenderLabel formats a sequence number under this config. Padding is a
// minimum width: numbers wider than the padding are never truncated.
func (c *Config) RenderLabel(seq int64) string {
	return fmt.Sprintf("%s%0*d%s", c.Prefix, c.Padding, seq, c.Suffix)
}
