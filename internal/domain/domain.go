package domain

import (
	"github.com/yungbote/lexbridge-backend/internal/domain/bates"
	"github.com/yungbote/lexbridge-backend/internal/domain/cases"
	"github.com/yungbote/lexbridge-backend/internal/domain/documents"
	"github.com/yungbote/lexbridge-backend/internal/domain/exhibits"
	"github.com/yungbote/lexbridge-backend/internal/domain/user"
)

type User = user.User

type Case = cases.Case

type Document = documents.Document

type BatesConfig = bates.Config
type BatesRegistryEntry = bates.RegistryEntry

type Exhibit = exhibits.Exhibit
type ExhibitPackage = exhibits.ExhibitPackage
type ExhibitPackageMember = exhibits.ExhibitPackageMember

const (
	BatesFormatSequential   = bates.FormatSequential
	BatesFormatAlphanumeric = bates.FormatAlphanumeric

	ExhibitStatusDesignated = exhibits.StatusDesignated
	ExhibitStatusPrepared   = exhibits.StatusPrepared
	ExhibitStatusUsed       = exhibits.StatusUsed
	ExhibitStatusAdmitted   = exhibits.StatusAdmitted
	ExhibitStatusRejected   = exhibits.StatusRejected

	ExhibitEventTypeDeposition = exhibits.EventTypeDeposition
	ExhibitEventTypeHearing    = exhibits.EventTypeHearing
	ExhibitEventTypeTrial      = exhibits.EventTypeTrial
	ExhibitEventTypeOther      = exhibits.EventTypeOther

	CaseStatusActive   = cases.CaseStatusActive
	CaseStatusClosed   = cases.CaseStatusClosed
	CaseStatusArchived = cases.CaseStatusArchived
)

var (
	ExhibitValidStatus    = exhibits.ValidStatus
	ExhibitValidEventType = exhibits.ValidEventType
)
