package bates

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lexbridge-backend/internal/domain/documents"
)

// RegistryEntry is the append-only ledger row recording one consumed sequence
// number. Entries are never updated or deleted; a config with entries cannot
// be deleted either.
type RegistryEntry struct {
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ConfigID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bates_config_seq,priority:1;column:config_id" json:"config_id"`
	Config   *Config   `gorm:"foreignKey:ConfigID;references:ID" json:"config,omitempty"`

	DocumentID uuid.UUID           `gorm:"type:uuid;not null;index;column:document_id" json:"document_id"`
	Document   *documents.Document `gorm:"foreignKey:DocumentID;references:ID" json:"document,omitempty"`

	SequenceNumber int64  `gorm:"not null;uniqueIndex:idx_bates_config_seq,priority:2;column:sequence_number" json:"sequence_number"`
	BatesNumber    string `gorm:"not null;index;column:bates_number" json:"bates_number"`

	AppliedBy   uuid.UUID `gorm:"type:uuid;not null;column:applied_by" json:"applied_by"`
	OriginalKey string    `gorm:"not null;column:original_key" json:"original_key"`
	LabeledKey  string    `gorm:"not null;column:labeled_key" json:"labeled_key"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (RegistryEntry) TableName() string { return "bates_registry" }
