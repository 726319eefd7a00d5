package exhibits

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type ExhibitPackageRepo interface {
	Create(dbc dbctx.Context, p *types.ExhibitPackage, exhibitIDs []uuid.UUID) (*types.ExhibitPackage, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ExhibitPackage, error)
	ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.ExhibitPackage, error)
}

type exhibitPackageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExhibitPackageRepo(db *gorm.DB, baseLog *logger.Logger) ExhibitPackageRepo {
	return &exhibitPackageRepo{db: db, log: baseLog.With("repo", "ExhibitPackageRepo")}
}

func (r *exhibitPackageRepo) Create(dbc dbctx.Context, p *types.ExhibitPackage, exhibitIDs []uuid.UUID) (*types.ExhibitPackage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(p).Error; err != nil {
		return nil, err
	}
	members := make([]types.ExhibitPackageMember, 0, len(exhibitIDs))
	for i, exhibitID := range exhibitIDs {
		members = append(members, types.ExhibitPackageMember{
			ID:        uuid.New(),
			PackageID: p.ID,
			ExhibitID: exhibitID,
			SortOrder: i,
		})
	}
	if len(members) > 0 {
		if err := transaction.WithContext(dbc.Ctx).Create(&members).Error; err != nil {
			return nil, err
		}
	}
	p.Members = members
	return p, nil
}

func (r *exhibitPackageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ExhibitPackage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var p types.ExhibitPackage
	if err := transaction.WithContext(dbc.Ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order ASC") }).
		Preload("Members.Exhibit").
		First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *exhibitPackageRepo) ListByCase(dbc dbctx.Context, caseID uuid.UUID) ([]*types.ExhibitPackage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ExhibitPackage
	if err := transaction.WithContext(dbc.Ctx).
		Where("case_id = ?", caseID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
