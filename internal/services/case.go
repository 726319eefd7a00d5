package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/platform/apierr"
	"github.com/yungbote/lexbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type CreateCaseInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Client      string     `json:"client"`
	CaseNumber  string     `json:"case_number"`
	CreatedBy   *uuid.UUID `json:"-"`
}

type CaseService interface {
	Create(ctx context.Context, in CreateCaseInput) (*types.Case, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Case, error)
	List(ctx context.Context, status string, offset, limit int) ([]*types.Case, int64, error)
}

type caseService struct {
	log   *logger.Logger
	cases repos.CaseRepo
}

func NewCaseService(baseLog *logger.Logger, caseRepo repos.CaseRepo) CaseService {
	return &caseService{log: baseLog.With("service", "CaseService"), cases: caseRepo}
}

func (s *caseService) Create(ctx context.Context, in CreateCaseInput) (*types.Case, error) {
	if in.Name == "" {
		return nil, apierr.Invalid("name_required", errors.New("case name is required"))
	}
	c := &types.Case{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		Client:      in.Client,
		CaseNumber:  in.CaseNumber,
		Status:      types.CaseStatusActive,
		CreatedBy:   in.CreatedBy,
	}
	created, err := s.cases.Create(dbctx.Context{Ctx: ctx}, c)
	if err != nil {
		return nil, err
	}
	s.log.Info("Case created", "case_id", created.ID, "name", created.Name)
	return created, nil
}

func (s *caseService) Get(ctx context.Context, id uuid.UUID) (*types.Case, error) {
	c, err := s.cases.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("case_not_found", fmt.Errorf("case %s not found", id))
		}
		return nil, err
	}
	return c, nil
}

func (s *caseService) List(ctx context.Context, status string, offset, limit int) ([]*types.Case, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.cases.List(dbctx.Context{Ctx: ctx}, status, offset, limit)
}
