package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pdf"
	"github.com/yungbote/lexbridge-backend/internal/platform/apierr"
	"github.com/yungbote/lexbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/gcp"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type CreateExhibitInput struct {
	CaseID      uuid.UUID `json:"case_id"`
	DocumentID  uuid.UUID `json:"document_id"`
	// Title falls back to the document name when empty.
	Title       string `json:"title"`
	Description string `json:"description"`
	// Number optionally assigns the exhibit number at creation.
	Number    string     `json:"number"`
	CreatedBy *uuid.UUID `json:"-"`
}

type UpdateExhibitInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	// Number renumbers the exhibit; an empty string clears it.
	Number *string `json:"number"`
}

type AssignNumberInput struct {
	ExhibitID uuid.UUID `json:"exhibit_id"`
	Number    string    `json:"number"`
}

type BatchAssignNumbersInput struct {
	CaseID     uuid.UUID   `json:"case_id"`
	ExhibitIDs []uuid.UUID `json:"exhibit_ids"`
	Prefix     string      `json:"prefix"`
	Start      int         `json:"start"`
	Suffix     string      `json:"suffix"`
}

type BatchAssignItem struct {
	ExhibitID uuid.UUID `json:"exhibit_id"`
	Number    string    `json:"number,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// BatchAssignResult reports per-exhibit outcomes in request order. Numbers
// are derived from each item's position, so a failed item leaves a hole in
// the series rather than shifting later exhibits.
type BatchAssignResult struct {
	Items     []BatchAssignItem `json:"items"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

type CreatePackageInput struct {
	CaseID      uuid.UUID   `json:"case_id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	EventType   string      `json:"event_type"`
	ExhibitIDs  []uuid.UUID `json:"exhibit_ids"`
	CreatedBy   *uuid.UUID  `json:"-"`
}

type ExhibitListRow struct {
	ExhibitNumber string `json:"exhibit_number"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	BatesNumber   string `json:"bates_number"`
	Status        string `json:"status"`
}

type ExhibitList struct {
	CaseID      uuid.UUID        `json:"case_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Rows        []ExhibitListRow `json:"rows"`
}

func (l *ExhibitList) CSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Exhibit Number", "Title", "Description", "Bates Number", "Status"})
	for _, row := range l.Rows {
		_ = w.Write([]string{row.ExhibitNumber, row.Title, row.Description, row.BatesNumber, row.Status})
	}
	w.Flush()
	return buf.Bytes()
}

type ExhibitService interface {
	Create(ctx context.Context, in CreateExhibitInput) (*types.Exhibit, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Exhibit, error)
	List(ctx context.Context, f repos.ExhibitFilter) ([]*types.Exhibit, int64, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateExhibitInput) (*types.Exhibit, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*types.Exhibit, error)
	// AssignNumber gives an exhibit its number and, for PDF documents,
	// writes a sticker-stamped copy of the underlying artifact.
	AssignNumber(ctx context.Context, in AssignNumberInput) (*types.Exhibit, error)
	BatchAssignNumbers(ctx context.Context, in BatchAssignNumbersInput) (*BatchAssignResult, error)
	ExhibitList(ctx context.Context, caseID uuid.UUID) (*ExhibitList, error)
	StatusCounts(ctx context.Context, caseID uuid.UUID) ([]repos.ExhibitStatusCount, error)
	CreatePackage(ctx context.Context, in CreatePackageInput) (*types.ExhibitPackage, error)
	GetPackage(ctx context.Context, id uuid.UUID) (*types.ExhibitPackage, error)
	ListPackages(ctx context.Context, caseID uuid.UUID) ([]*types.ExhibitPackage, error)
}

type exhibitService struct {
	log       *logger.Logger
	runTx     TxRunner
	exhibits  repos.ExhibitRepo
	packages  repos.ExhibitPackageRepo
	documents repos.DocumentRepo
	cases     repos.CaseRepo
	bucket    gcp.BucketService
	stamper   pdf.Stamper
}

func NewExhibitService(
	baseLog *logger.Logger,
	runTx TxRunner,
	exhibits repos.ExhibitRepo,
	packages repos.ExhibitPackageRepo,
	documents repos.DocumentRepo,
	caseRepo repos.CaseRepo,
	bucket gcp.BucketService,
	stamper pdf.Stamper,
) ExhibitService {
	return &exhibitService{
		log:       baseLog.With("service", "ExhibitService"),
		runTx:     runTx,
		exhibits:  exhibits,
		packages:  packages,
		documents: documents,
		cases:     caseRepo,
		bucket:    bucket,
		stamper:   stamper,
	}
}

func (s *exhibitService) Create(ctx context.Context, in CreateExhibitInput) (*types.Exhibit, error) {
	dbc := dbctx.Context{Ctx: ctx}
	doc, err := s.documents.GetByID(dbc, in.DocumentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("document_not_found", fmt.Errorf("document %s not found", in.DocumentID))
		}
		return nil, err
	}
	if doc.CaseID != in.CaseID {
		return nil, apierr.Invalid("document_case_mismatch", fmt.Errorf("document %s belongs to a different case", doc.ID))
	}
	if in.Title == "" {
		in.Title = doc.Name
	}
	e := &types.Exhibit{
		ID:          uuid.New(),
		CaseID:      in.CaseID,
		DocumentID:  in.DocumentID,
		Title:       in.Title,
		Description: in.Description,
		Status:      types.ExhibitStatusDesignated,
		CreatedBy:   in.CreatedBy,
	}
	if in.Number != "" {
		taken, err := s.exhibits.NumberTaken(dbc, in.CaseID, in.Number, e.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apierr.Conflict("exhibit_number_taken", fmt.Errorf("exhibit number %q already assigned in case %s", in.Number, in.CaseID))
		}
		number := in.Number
		e.ExhibitNumber = &number
	}
	created, err := s.exhibits.Create(dbc, e)
	if err != nil {
		return nil, err
	}
	s.log.Info("Exhibit created", "exhibit_id", created.ID, "case_id", created.CaseID, "document_id", created.DocumentID)
	return created, nil
}

func (s *exhibitService) Get(ctx context.Context, id uuid.UUID) (*types.Exhibit, error) {
	e, err := s.exhibits.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("exhibit_not_found", fmt.Errorf("exhibit %s not found", id))
		}
		return nil, err
	}
	return e, nil
}

func (s *exhibitService) List(ctx context.Context, f repos.ExhibitFilter) ([]*types.Exhibit, int64, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Status != "" && !types.ExhibitValidStatus(f.Status) {
		return nil, 0, apierr.Invalid("status_invalid", fmt.Errorf("unknown exhibit status %q", f.Status))
	}
	return s.exhibits.List(dbctx.Context{Ctx: ctx}, f)
}

func (s *exhibitService) Update(ctx context.Context, id uuid.UUID, in UpdateExhibitInput) (*types.Exhibit, error) {
	dbc := dbctx.Context{Ctx: ctx}
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		if *in.Title == "" {
			return nil, apierr.Invalid("title_required", errors.New("exhibit title is required"))
		}
		e.Title = *in.Title
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Number != nil {
		if *in.Number == "" {
			e.ExhibitNumber = nil
		} else {
			taken, err := s.exhibits.NumberTaken(dbc, e.CaseID, *in.Number, e.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, apierr.Conflict("exhibit_number_taken", fmt.Errorf("exhibit number %q already assigned in case %s", *in.Number, e.CaseID))
			}
			number := *in.Number
			e.ExhibitNumber = &number
		}
	}
	if err := s.exhibits.Save(dbc, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *exhibitService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.exhibits.Delete(dbctx.Context{Ctx: ctx}, id)
}

func (s *exhibitService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*types.Exhibit, error) {
	if !types.ExhibitValidStatus(status) {
		return nil, apierr.Invalid("status_invalid", fmt.Errorf("unknown exhibit status %q", status))
	}
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Status = status
	if err := s.exhibits.Save(dbctx.Context{Ctx: ctx}, e); err != nil {
		return nil, err
	}
	s.log.Info("Exhibit status updated", "exhibit_id", id, "status", status)
	return e, nil
}

func (s *exhibitService) AssignNumber(ctx context.Context, in AssignNumberInput) (*types.Exhibit, error) {
	if strings.TrimSpace(in.Number) == "" {
		return nil, apierr.Invalid("number_required", errors.New("exhibit number is required"))
	}
	e, err := s.Get(ctx, in.ExhibitID)
	if err != nil {
		return nil, err
	}
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		taken, err := s.exhibits.NumberTaken(txc, e.CaseID, in.Number, e.ID)
		if err != nil {
			return err
		}
		if taken {
			return apierr.Conflict("exhibit_number_taken", fmt.Errorf("exhibit number %q already assigned in case %s", in.Number, e.CaseID))
		}
		number := in.Number
		e.ExhibitNumber = &number
		if err := s.exhibits.Save(txc, e); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "idx_exhibit_case_number") {
				return apierr.Conflict("exhibit_number_taken", err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The sticker copy is best effort; number assignment stands even when
	// the underlying artifact cannot carry a visual sticker.
	key, stampErr := s.writeStickerCopy(ctx, e, in.Number)
	if stampErr != nil {
		s.log.Warn("Exhibit sticker not applied", "exhibit_id", e.ID, "error", stampErr)
	} else if key != "" {
		e.ExhibitKey = key
		if err := s.exhibits.Save(dbctx.Context{Ctx: ctx}, e); err != nil {
			return nil, err
		}
	}
	s.log.Info("Exhibit number assigned", "exhibit_id", e.ID, "number", in.Number, "stickered", e.ExhibitKey != "")
	return e, nil
}

// writeStickerCopy stamps "EXHIBIT <number>" on the first page of the
// underlying document and stores the copy. Returns an empty key for
// artifacts that carry no visual sticker.
func (s *exhibitService) writeStickerCopy(ctx context.Context, e *types.Exhibit, number string) (string, error) {
	dbc := dbctx.Context{Ctx: ctx}
	doc, err := s.documents.GetByID(dbc, e.DocumentID)
	if err != nil {
		return "", err
	}
	rc, err := s.bucket.DownloadFile(ctx, gcp.BucketCategoryDocument, doc.StorageKey)
	if err != nil {
		return "", apierr.Storage("original_download_failed", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return "", apierr.Storage("original_download_failed", err)
	}
	stamped, err := s.stamper.StampBadge(ctx, content, doc.MimeType, "EXHIBIT "+number)
	if err != nil {
		return "", err
	}
	if !stamped.Applied {
		return "", nil
	}
	key := fmt.Sprintf("cases/%s/exhibits/%s_%s", e.CaseID, sanitizeNumber(number), path.Base(doc.StorageKey))
	if err := s.bucket.UploadFile(dbc, gcp.BucketCategoryLabeled, key, bytes.NewReader(stamped.Content)); err != nil {
		return "", apierr.Storage("sticker_upload_failed", err)
	}
	return key, nil
}

func sanitizeNumber(n string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, n)
}

func (s *exhibitService) BatchAssignNumbers(ctx context.Context, in BatchAssignNumbersInput) (*BatchAssignResult, error) {
	if len(in.ExhibitIDs) == 0 {
		return nil, apierr.Invalid("exhibit_ids_required", errors.New("exhibit_ids is required"))
	}
	if in.Start < 1 {
		in.Start = 1
	}
	out := &BatchAssignResult{Total: len(in.ExhibitIDs)}
	for i, exhibitID := range in.ExhibitIDs {
		number := fmt.Sprintf("%s%d%s", in.Prefix, in.Start+i, in.Suffix)
		item := BatchAssignItem{ExhibitID: exhibitID}
		if _, err := s.AssignNumber(ctx, AssignNumberInput{ExhibitID: exhibitID, Number: number}); err != nil {
			item.Error = apierr.From(err).Error()
			out.Failed++
		} else {
			item.Number = number
			out.Succeeded++
		}
		out.Items = append(out.Items, item)
	}
	s.log.Info("Batch exhibit numbering finished",
		"case_id", in.CaseID,
		"total", out.Total,
		"succeeded", out.Succeeded,
		"failed", out.Failed,
	)
	return out, nil
}

func (s *exhibitService) ExhibitList(ctx context.Context, caseID uuid.UUID) (*ExhibitList, error) {
	dbc := dbctx.Context{Ctx: ctx}
	exists, err := s.cases.Exists(dbc, caseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apierr.NotFound("case_not_found", fmt.Errorf("case %s not found", caseID))
	}
	exhibits, err := s.exhibits.ListByCase(dbc, caseID)
	if err != nil {
		return nil, err
	}
	list := &ExhibitList{CaseID: caseID, GeneratedAt: time.Now(), Rows: []ExhibitListRow{}}
	if len(exhibits) == 0 {
		return list, nil
	}

	docIDs := make([]uuid.UUID, 0, len(exhibits))
	seen := map[uuid.UUID]bool{}
	for _, e := range exhibits {
		if !seen[e.DocumentID] {
			seen[e.DocumentID] = true
			docIDs = append(docIDs, e.DocumentID)
		}
	}
	docs, err := s.documents.GetByIDs(dbc, docIDs)
	if err != nil {
		return nil, err
	}
	docByID := make(map[uuid.UUID]*types.Document, len(docs))
	for _, d := range docs {
		docByID[d.ID] = d
	}

	for _, e := range exhibits {
		row := ExhibitListRow{Title: e.Title, Description: e.Description, Status: e.Status}
		if e.ExhibitNumber != nil {
			row.ExhibitNumber = *e.ExhibitNumber
		}
		if d := docByID[e.DocumentID]; d != nil && d.BatesNumber != nil {
			row.BatesNumber = *d.BatesNumber
		}
		list.Rows = append(list.Rows, row)
	}
	return list, nil
}

func (s *exhibitService) StatusCounts(ctx context.Context, caseID uuid.UUID) ([]repos.ExhibitStatusCount, error) {
	return s.exhibits.CountsByStatus(dbctx.Context{Ctx: ctx}, caseID)
}

func (s *exhibitService) CreatePackage(ctx context.Context, in CreatePackageInput) (*types.ExhibitPackage, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if in.Name == "" {
		return nil, apierr.Invalid("name_required", errors.New("package name is required"))
	}
	if in.EventType == "" {
		in.EventType = types.ExhibitEventTypeOther
	}
	if !types.ExhibitValidEventType(in.EventType) {
		return nil, apierr.Invalid("event_type_invalid", fmt.Errorf("unknown event type %q", in.EventType))
	}
	exists, err := s.cases.Exists(dbc, in.CaseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apierr.NotFound("case_not_found", fmt.Errorf("case %s not found", in.CaseID))
	}
	for _, id := range in.ExhibitIDs {
		e, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if e.CaseID != in.CaseID {
			return nil, apierr.Invalid("exhibit_case_mismatch", fmt.Errorf("exhibit %s belongs to a different case", id))
		}
	}

	var created *types.ExhibitPackage
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}
		p := &types.ExhibitPackage{
			ID:          uuid.New(),
			CaseID:      in.CaseID,
			Name:        in.Name,
			Description: in.Description,
			EventType:   in.EventType,
			CreatedBy:   in.CreatedBy,
		}
		out, err := s.packages.Create(txc, p, in.ExhibitIDs)
		if err != nil {
			return err
		}
		created = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Exhibit package created", "package_id", created.ID, "case_id", created.CaseID, "members", len(in.ExhibitIDs))
	return created, nil
}

func (s *exhibitService) GetPackage(ctx context.Context, id uuid.UUID) (*types.ExhibitPackage, error) {
	p, err := s.packages.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("package_not_found", fmt.Errorf("exhibit package %s not found", id))
		}
		return nil, err
	}
	return p, nil
}

func (s *exhibitService) ListPackages(ctx context.Context, caseID uuid.UUID) ([]*types.ExhibitPackage, error) {
	return s.packages.ListByCase(dbctx.Context{Ctx: ctx}, caseID)
}
