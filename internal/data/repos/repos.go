package repos

import (
	"github.com/yungbote/lexbridge-backend/internal/data/repos/bates"
	"github.com/yungbote/lexbridge-backend/internal/data/repos/cases"
	"github.com/yungbote/lexbridge-backend/internal/data/repos/documents"
	"github.com/yungbote/lexbridge-backend/internal/data/repos/exhibits"
	"github.com/yungbote/lexbridge-backend/internal/data/repos/user"
)

type UserRepo = user.UserRepo

type CaseRepo = cases.CaseRepo

type DocumentRepo = documents.DocumentRepo

type BatesConfigRepo = bates.ConfigRepo
type BatesRegistryRepo = bates.RegistryRepo
type RegistryFilter = bates.RegistryFilter

type ExhibitRepo = exhibits.ExhibitRepo
type ExhibitFilter = exhibits.ExhibitFilter
type ExhibitStatusCount = exhibits.StatusCount
type ExhibitPackageRepo = exhibits.ExhibitPackageRepo

var (
	NewUserRepo           = user.NewUserRepo
	NewCaseRepo           = cases.NewCaseRepo
	NewDocumentRepo       = documents.NewDocumentRepo
	NewBatesConfigRepo    = bates.NewConfigRepo
	NewBatesRegistryRepo  = bates.NewRegistryRepo
	NewExhibitRepo        = exhibits.NewExhibitRepo
	NewExhibitPackageRepo = exhibits.NewExhibitPackageRepo
)

// ErrDuplicateSequence re-exported for service-level race handling.
var ErrDuplicateSequence = bates.ErrDuplicateSequence
