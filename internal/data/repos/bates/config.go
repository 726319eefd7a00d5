package bates

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type ConfigRepo interface {
	Create(dbc dbctx.Context, c *types.BatesConfig) (*types.BatesConfig, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BatesConfig, error)
	// GetByIDForUpdate locks the config row for the duration of the
	// surrounding transaction. Sequence allocation serializes on this lock.
	GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.BatesConfig, error)
	List(dbc dbctx.Context, caseID *uuid.UUID, offset, limit int) ([]*types.BatesConfig, int64, error)
	IDsByCase(dbc dbctx.Context, caseID uuid.UUID) ([]uuid.UUID, error)
	Save(dbc dbctx.Context, c *types.BatesConfig) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type configRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConfigRepo(db *gorm.DB, baseLog *logger.Logger) ConfigRepo {
	return &configRepo{db: db, log: baseLog.With("repo", "BatesConfigRepo")}
}

func (r *configRepo) Create(dbc dbctx.Context, c *types.BatesConfig) (*types.BatesConfig, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (r *configRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BatesConfig, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var c types.BatesConfig
	if err := transaction.WithContext(dbc.Ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *configRepo) GetByIDForUpdate(dbc dbctx.Context, id uuid.UUID) (*types.BatesConfig, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var c types.BatesConfig
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *configRepo) List(dbc dbctx.Context, caseID *uuid.UUID, offset, limit int) ([]*types.BatesConfig, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.BatesConfig{})
	if caseID != nil {
		q = q.Where("case_id = ?", *caseID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []*types.BatesConfig
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *configRepo) IDsByCase(dbc dbctx.Context, caseID uuid.UUID) ([]uuid.UUID, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []uuid.UUID
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.BatesConfig{}).
		Where("case_id = ?", caseID).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *configRepo) Save(dbc dbctx.Context, c *types.BatesConfig) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Save(c).Error
}

func (r *configRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Delete(&types.BatesConfig{}, "id = ?", id).Error
}
