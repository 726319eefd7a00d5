package exhibits

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type ExhibitFilter struct {
	CaseID *uuid.UUID
	Status string
	Offset int
	Limit  int
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type ExhibitRepo interface {
	Create(dbc dbctx.Context, e *types.Exhibit) (*types.Exhibit, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Exhibit, error)
	Save(dbc dbctx.Context, e *types.Exhibit) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
	List(dbc dbctx.Context, f ExhibitFilter) ([]*types.Exhibit, int64, error)
	// ListByCase returns all of a case's exhibits ordered by exhibit_number,
	// for exhibit-list generation.
	ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.Exhibit, error)
	// NumberTaken reports whether another exhibit in the case already holds
	// the number. exclude removes the exhibit being renumbered from the check.
	NumberTaken(dbc dbctx.Context, caseID uuid.UUID, number string, exclude uuid.UUID) (bool, error)
	CountsByStatus(dbc dbctx.Context, caseID uuid.UUID) ([]StatusCount, error)
}

type exhibitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExhibitRepo(db *gorm.DB, baseLog *logger.Logger) ExhibitRepo {
	return &exhibitRepo{db: db, log: baseLog.With("repo", "ExhibitRepo")}
}

func (r *exhibitRepo) Create(dbc dbctx.Context, e *types.Exhibit) (*types.Exhibit, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

func (r *exhibitRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Exhibit, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var e types.Exhibit
	if err := transaction.WithContext(dbc.Ctx).First(&e, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *exhibitRepo) Save(dbc dbctx.Context, e *types.Exhibit) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Save(e).Error
}

func (r *exhibitRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).Delete(&types.Exhibit{}, "id = ?", id).Error
}

func (r *exhibitRepo) List(dbc dbctx.Context, f ExhibitFilter) ([]*types.Exhibit, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Exhibit{})
	if f.CaseID != nil {
		q = q.Where("case_id = ?", *f.CaseID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var results []*types.Exhibit
	if err := q.Order("exhibit_number ASC NULLS LAST, created_at ASC").
		Offset(f.Offset).Limit(f.Limit).Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *exhibitRepo) ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.Exhibit, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Exhibit
	if err := transaction.WithContext(dbc.Ctx).
		Where("case_id = ?", caseID).
		Order("exhibit_number ASC NULLS LAST, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *exhibitRepo) NumberTaken(dbc dbctx.Context, caseID uuid.UUID, number string, exclude uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Exhibit{}).
		Where("case_id = ? AND exhibit_number = ? AND id <> ?", caseID, number, exclude).
		Limit(1).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *exhibitRepo) CountsByStatus(dbc dbctx.Context, caseID uuid.UUID) ([]StatusCount, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []StatusCount
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Exhibit{}).
		Select("status, COUNT(*) AS count").
		Where("case_id = ?", caseID).
		Group("status").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
