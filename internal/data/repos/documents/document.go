package documents

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type DocumentRepo interface {
	Create(dbc dbctx.Context, d *types.Document) (*types.Document, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Document, error)
	ListByCase(dbc dbctx.Context, caseID uuid.UUID, category string, offset, limit int) ([]*types.Document, int64, error)
	// SetBatesLabel stamps the label columns onto an unlabeled document.
	// Returns false when the document was already labeled (zero rows updated).
	SetBatesLabel(dbc dbctx.Context, documentID, registryID uuid.UUID, batesNumber string) (bool, error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) Create(dbc dbctx.Context, d *types.Document) (*types.Document, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var d types.Document
	if err := transaction.WithContext(dbc.Ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *documentRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Document, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Document
	if len(ids) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *documentRepo) ListByCase(dbc dbctx.Context, caseID uuid.UUID, category string, offset, limit int) ([]*types.Document, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Document{}).Where("case_id = ?", caseID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []*types.Document
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *documentRepo) SetBatesLabel(dbc dbctx.Context, documentID, registryID uuid.UUID, batesNumber string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	// Guarded update: only an unlabeled row is touched, so a racing second
	// label attempt reports a conflict instead of silently overwriting.
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Document{}).
		Where("id = ? AND bates_registry_id IS NULL", documentID).
		Updates(map[string]interface{}{
			"bates_registry_id": registryID,
			"bates_number":      batesNumber,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
