package bates

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

// ErrDuplicateSequence reports a lost allocation race: the unique index on
// (config_id, sequence_number) rejected the append.
var ErrDuplicateSequence = errors.New("sequence number already recorded for config")

type RegistryFilter struct {
	ConfigIDs []uuid.UUID
	// Pattern is matched case-insensitively as a substring of bates_number.
	Pattern string
	Offset  int
	Limit   int
}

type RegistryRepo interface {
	// Create appends a ledger entry. Entries are never updated or deleted.
	Create(dbc dbctx.Context, e *types.BatesRegistryEntry) (*types.BatesRegistryEntry, error)
	// MaxSequence returns the highest consumed sequence number for a config;
	// ok is false when the config has no entries yet.
	MaxSequence(dbc dbctx.Context, configID uuid.UUID) (int64, bool, error)
	ExistsForConfig(dbc dbctx.Context, configID uuid.UUID) (bool, error)
	List(dbc dbctx.Context, f RegistryFilter) ([]*types.BatesRegistryEntry, int64, error)
	// ListAll returns every matching entry ordered by sequence_number
	// ascending, for report generation.
	ListAll(dbc dbctx.Context, configIDs []uuid.UUID) ([]*types.BatesRegistryEntry, error)
}

type registryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRegistryRepo(db *gorm.DB, baseLog *logger.Logger) RegistryRepo {
	return &registryRepo{db: db, log: baseLog.With("repo", "BatesRegistryRepo")}
}

func (r *registryRepo) Create(dbc dbctx.Context, e *types.BatesRegistryEntry) (*types.BatesRegistryEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(e).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "idx_bates_config_seq") {
			return nil, ErrDuplicateSequence
		}
		return nil, err
	}
	return e, nil
}

func (r *registryRepo) MaxSequence(dbc dbctx.Context, configID uuid.UUID) (int64, bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var last types.BatesRegistryEntry
	err := transaction.WithContext(dbc.Ctx).
		Where("config_id = ?", configID).
		Order("sequence_number DESC").
		First(&last).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return last.SequenceNumber, true, nil
}

func (r *registryRepo) ExistsForConfig(dbc dbctx.Context, configID uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.BatesRegistryEntry{}).
		Where("config_id = ?", configID).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *registryRepo) List(dbc dbctx.Context, f RegistryFilter) ([]*types.BatesRegistryEntry, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.BatesRegistryEntry{})
	if len(f.ConfigIDs) > 0 {
		q = q.Where("config_id IN ?", f.ConfigIDs)
	}
	if f.Pattern != "" {
		q = q.Where("bates_number ILIKE ?", "%"+f.Pattern+"%")
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []*types.BatesRegistryEntry
	if err := q.Order("sequence_number ASC").Offset(f.Offset).Limit(f.Limit).Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *registryRepo) ListAll(dbc dbctx.Context, configIDs []uuid.UUID) ([]*types.BatesRegistryEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.BatesRegistryEntry{})
	if len(configIDs) > 0 {
		q = q.Where("config_id IN ?", configIDs)
	}
	var results []*types.BatesRegistryEntry
	if err := q.Order("sequence_number ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
