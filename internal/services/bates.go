package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/pdf"
	"github.com/yungbote/lexbridge-backend/internal/platform/apierr"
	"github.com/yungbote/lexbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/envutil"
	"github.com/yungbote/lexbridge-backend/internal/platform/gcp"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

const (
	minPadding = 1
	maxPadding = 10
)

type CreateBatesConfigInput struct {
	CaseID      uuid.UUID  `json:"case_id"`
	Name        string     `json:"name"`
	Prefix      string     `json:"prefix"`
	Suffix      string     `json:"suffix"`
	StartNumber int64      `json:"start_number"`
	Padding     int        `json:"padding"`
	Format      string     `json:"format"`
	CreatedBy   *uuid.UUID `json:"-"`
}

// UpdateBatesConfigInput carries partial updates. Nil fields are left alone.
// Prefix, suffix and start number are rejected once the config has registry
// entries; name, padding and format stay editable.
type UpdateBatesConfigInput struct {
	Name        *string `json:"name"`
	Prefix      *string `json:"prefix"`
	Suffix      *string `json:"suffix"`
	StartNumber *int64  `json:"start_number"`
	Padding     *int    `json:"padding"`
	Format      *string `json:"format"`
}

type ApplyLabelInput struct {
	ConfigID      uuid.UUID `json:"config_id"`
	DocumentID    uuid.UUID `json:"document_id"`
	Position      string    `json:"position"`
	WatermarkText string    `json:"watermark_text"`
	AppliedBy     uuid.UUID `json:"-"`
}

type BatchApplyLabelsInput struct {
	ConfigID      uuid.UUID   `json:"config_id"`
	DocumentIDs   []uuid.UUID `json:"document_ids"`
	Position      string      `json:"position"`
	WatermarkText string      `json:"watermark_text"`
	AppliedBy     uuid.UUID   `json:"-"`
}

type LabelResult struct {
	Entry       *types.BatesRegistryEntry `json:"entry"`
	BatesNumber string                    `json:"bates_number"`
	LabeledKey  string                    `json:"labeled_key"`
	// Applied is false when the artifact type carries no visual stamp and
	// the labeled object is a byte copy of the original.
	Applied bool `json:"applied"`
}

type BatchLabelItem struct {
	DocumentID  uuid.UUID `json:"document_id"`
	BatesNumber string    `json:"bates_number,omitempty"`
	LabeledKey  string    `json:"labeled_key,omitempty"`
	Applied     bool      `json:"applied"`
	Error       string    `json:"error,omitempty"`
}

// BatchLabelResult reports per-document outcomes in request order. Failed
// items consume no sequence numbers.
type BatchLabelResult struct {
	Items     []BatchLabelItem `json:"items"`
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

type RegistryQuery struct {
	CaseID   *uuid.UUID
	ConfigID *uuid.UUID
	Pattern  string
	Offset   int
	Limit    int
}

type BatesReportRow struct {
	BatesNumber  string    `json:"bates_number"`
	DocumentName string    `json:"document_name"`
	AppliedBy    string    `json:"applied_by"`
	AppliedDate  time.Time `json:"applied_date"`
}

// ReportScope selects the entries a report covers: one config, or every
// config of a case.
type ReportScope struct {
	CaseID   *uuid.UUID
	ConfigID *uuid.UUID
}

type BatesReport struct {
	CaseID      *uuid.UUID       `json:"case_id,omitempty"`
	ConfigID    *uuid.UUID       `json:"config_id,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	Rows        []BatesReportRow `json:"rows"`
}

func (r *BatesReport) CSV() []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Bates Number", "Document Name", "Applied By", "Applied Date"})
	for _, row := range r.Rows {
		_ = w.Write([]string{
			row.BatesNumber,
			row.DocumentName,
			row.AppliedBy,
			row.AppliedDate.Format("2006-01-02"),
		})
	}
	w.Flush()
	return buf.Bytes()
}

type BatesService interface {
	CreateConfig(ctx context.Context, in CreateBatesConfigInput) (*types.BatesConfig, error)
	GetConfig(ctx context.Context, id uuid.UUID) (*types.BatesConfig, error)
	ListConfigs(ctx context.Context, caseID *uuid.UUID, offset, limit int) ([]*types.BatesConfig, int64, error)
	UpdateConfig(ctx context.Context, id uuid.UUID, in UpdateBatesConfigInput) (*types.BatesConfig, error)
	DeleteConfig(ctx context.Context, id uuid.UUID) error
	// NextNumber previews the label the config would assign next, without
	// consuming it.
	NextNumber(ctx context.Context, configID uuid.UUID) (string, int64, error)
	ApplyLabel(ctx context.Context, in ApplyLabelInput) (*LabelResult, error)
	BatchApplyLabels(ctx context.Context, in BatchApplyLabelsInput) (*BatchLabelResult, error)
	SearchRegistry(ctx context.Context, q RegistryQuery) ([]*types.BatesRegistryEntry, int64, error)
	Report(ctx context.Context, scope ReportScope) (*BatesReport, error)
}

type batesService struct {
	log          *logger.Logger
	runTx        TxRunner
	configs      repos.BatesConfigRepo
	registry     repos.BatesRegistryRepo
	documents    repos.DocumentRepo
	users        repos.UserRepo
	cases        repos.CaseRepo
	bucket       gcp.BucketService
	stamper      pdf.Stamper
	stampTimeout time.Duration
	locks        keyedMutex
}

func NewBatesService(
	baseLog *logger.Logger,
	runTx TxRunner,
	configs repos.BatesConfigRepo,
	registry repos.BatesRegistryRepo,
	documents repos.DocumentRepo,
	users repos.UserRepo,
	caseRepo repos.CaseRepo,
	bucket gcp.BucketService,
	stamper pdf.Stamper,
) BatesService {
	log := baseLog.With("service", "BatesService")
	timeout := time.Duration(envutil.GetEnvAsInt("STAMP_TIMEOUT_SECONDS", 30, log)) * time.Second
	return &batesService{
		log:          log,
		runTx:        runTx,
		configs:      configs,
		registry:     registry,
		documents:    documents,
		users:        users,
		cases:        caseRepo,
		bucket:       bucket,
		stamper:      stamper,
		stampTimeout: timeout,
	}
}

func (s *batesService) CreateConfig(ctx context.Context, in CreateBatesConfigInput) (*types.BatesConfig, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if in.Name == "" {
		return nil, apierr.Invalid("name_required", errors.New("config name is required"))
	}
	if in.CaseID == uuid.Nil {
		return nil, apierr.Invalid("case_id_required", errors.New("case_id is required"))
	}
	if in.StartNumber == 0 {
		in.StartNumber = 1
	}
	if in.StartNumber < 1 {
		return nil, apierr.Invalid("start_number_invalid", fmt.Errorf("start_number %d must be positive", in.StartNumber))
	}
	if in.Padding == 0 {
		in.Padding = 5
	}
	if in.Padding < minPadding || in.Padding > maxPadding {
		return nil, apierr.Invalid("padding_out_of_range", fmt.Errorf("padding %d outside [%d,%d]", in.Padding, minPadding, maxPadding))
	}
	if in.Format == "" {
		in.Format = types.BatesFormatSequential
	}
	if in.Format != types.BatesFormatSequential && in.Format != types.BatesFormatAlphanumeric {
		return nil, apierr.Invalid("format_invalid", fmt.Errorf("unknown format %q", in.Format))
	}
	exists, err := s.cases.Exists(dbc, in.CaseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apierr.NotFound("case_not_found", fmt.Errorf("case %s not found", in.CaseID))
	}
	cfg := &types.BatesConfig{
		ID:          uuid.New(),
		CaseID:      in.CaseID,
		Name:        in.Name,
		Prefix:      in.Prefix,
		Suffix:      in.Suffix,
		StartNumber: in.StartNumber,
		Padding:     in.Padding,
		Format:      in.Format,
		CreatedBy:   in.CreatedBy,
	}
	created, err := s.configs.Create(dbc, cfg)
	if err != nil {
		return nil, err
	}
	s.log.Info("Bates config created", "config_id", created.ID, "case_id", created.CaseID, "prefix", created.Prefix)
	return created, nil
}

func (s *batesService) GetConfig(ctx context.Context, id uuid.UUID) (*types.BatesConfig, error) {
	cfg, err := s.configs.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("config_not_found", fmt.Errorf("bates config %s not found", id))
		}
		return nil, err
	}
	return cfg, nil
}

func (s *batesService) ListConfigs(ctx context.Context, caseID *uuid.UUID, offset, limit int) ([]*types.BatesConfig, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.configs.List(dbctx.Context{Ctx: ctx}, caseID, offset, limit)
}

func (s *batesService) UpdateConfig(ctx context.Context, id uuid.UUID, in UpdateBatesConfigInput) (*types.BatesConfig, error) {
	dbc := dbctx.Context{Ctx: ctx}
	cfg, err := s.GetConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	inUse, err := s.registry.ExistsForConfig(dbc, id)
	if err != nil {
		return nil, err
	}
	if inUse {
		if (in.Prefix != nil && *in.Prefix != cfg.Prefix) ||
			(in.Suffix != nil && *in.Suffix != cfg.Suffix) ||
			(in.StartNumber != nil && *in.StartNumber != cfg.StartNumber) {
			return nil, apierr.Conflict("config_locked", errors.New("prefix, suffix and start_number cannot change after numbers are issued"))
		}
	}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, apierr.Invalid("name_required", errors.New("config name is required"))
		}
		cfg.Name = *in.Name
	}
	if in.Prefix != nil {
		cfg.Prefix = *in.Prefix
	}
	if in.Suffix != nil {
		cfg.Suffix = *in.Suffix
	}
	if in.StartNumber != nil {
		if *in.StartNumber < 1 {
			return nil, apierr.Invalid("start_number_invalid", fmt.Errorf("start_number %d must be positive", *in.StartNumber))
		}
		cfg.StartNumber = *in.StartNumber
	}
	if in.Padding != nil {
		if *in.Padding < minPadding || *in.Padding > maxPadding {
			return nil, apierr.Invalid("padding_out_of_range", fmt.Errorf("padding %d outside [%d,%d]", *in.Padding, minPadding, maxPadding))
		}
		cfg.Padding = *in.Padding
	}
	if in.Format != nil {
		if *in.Format != types.BatesFormatSequential && *in.Format != types.BatesFormatAlphanumeric {
			return nil, apierr.Invalid("format_invalid", fmt.Errorf("unknown format %q", *in.Format))
		}
		cfg.Format = *in.Format
	}
	if err := s.configs.Save(dbc, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *batesService) DeleteConfig(ctx context.Context, id uuid.UUID) error {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.GetConfig(ctx, id); err != nil {
		return err
	}
	inUse, err := s.registry.ExistsForConfig(dbc, id)
	if err != nil {
		return err
	}
	if inUse {
		return apierr.Conflict("config_in_use", errors.New("config has issued numbers and cannot be deleted"))
	}
	if err := s.configs.Delete(dbc, id); err != nil {
		return err
	}
	s.log.Info("Bates config deleted", "config_id", id)
	return nil
}

func (s *batesService) NextNumber(ctx context.Context, configID uuid.UUID) (string, int64, error) {
	dbc := dbctx.Context{Ctx: ctx}
	cfg, err := s.GetConfig(ctx, configID)
	if err != nil {
		return "", 0, err
	}
	next, err := s.nextSequence(dbc, cfg)
	if err != nil {
		return "", 0, err
	}
	return cfg.RenderLabel(next), next, nil
}

func (s *batesService) nextSequence(dbc dbctx.Context, cfg *types.BatesConfig) (int64, error) {
	maxSeq, ok, err := s.registry.MaxSequence(dbc, cfg.ID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return cfg.StartNumber, nil
	}
	return maxSeq + 1, nil
}

func (s *batesService) ApplyLabel(ctx context.Context, in ApplyLabelInput) (*LabelResult, error) {
	res, err := s.applyOne(ctx, in)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// applyOne labels a single document inside its own transaction. The sequence
// number is claimed and recorded in the same transaction as the document
// update, so a failure at any point leaves the number unconsumed.
func (s *batesService) applyOne(ctx context.Context, in ApplyLabelInput) (*LabelResult, error) {
	dbc := dbctx.Context{Ctx: ctx}

	doc, err := s.documents.GetByID(dbc, in.DocumentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("document_not_found", fmt.Errorf("document %s not found", in.DocumentID))
		}
		return nil, err
	}
	if doc.Labeled() {
		return nil, apierr.Conflict("document_already_labeled", fmt.Errorf("document %s already carries %s", doc.ID, *doc.BatesNumber))
	}
	cfg, err := s.GetConfig(ctx, in.ConfigID)
	if err != nil {
		return nil, err
	}
	if cfg.CaseID != doc.CaseID {
		return nil, apierr.Invalid("config_case_mismatch", fmt.Errorf("config %s belongs to a different case than document %s", cfg.ID, doc.ID))
	}

	content, err := s.downloadOriginal(ctx, doc.StorageKey)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(cfg.ID)
	defer unlock()

	var result *LabelResult
	err = s.runTx(ctx, func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: ctx, Tx: tx}

		locked, err := s.configs.GetByIDForUpdate(txc, cfg.ID)
		if err != nil {
			return err
		}
		next, err := s.nextSequence(txc, locked)
		if err != nil {
			return err
		}
		label := locked.RenderLabel(next)

		stamped, err := s.stampDocument(ctx, content, doc.MimeType, label, in)
		if err != nil {
			return err
		}

		labeledKey := labeledObjectKey(doc, label)
		if err := s.bucket.UploadFile(txc, gcp.BucketCategoryLabeled, labeledKey, bytes.NewReader(stamped.Content)); err != nil {
			return apierr.Storage("labeled_upload_failed", err)
		}

		entry, err := s.registry.Create(txc, &types.BatesRegistryEntry{
			ID:             uuid.New(),
			ConfigID:       locked.ID,
			DocumentID:     doc.ID,
			SequenceNumber: next,
			BatesNumber:    label,
			AppliedBy:      in.AppliedBy,
			OriginalKey:    doc.StorageKey,
			LabeledKey:     labeledKey,
		})
		if err != nil {
			if errors.Is(err, repos.ErrDuplicateSequence) {
				return apierr.Conflict("sequence_conflict", err)
			}
			return err
		}

		updated, err := s.documents.SetBatesLabel(txc, doc.ID, entry.ID, label)
		if err != nil {
			return err
		}
		if !updated {
			return apierr.Conflict("document_already_labeled", fmt.Errorf("document %s was labeled concurrently", doc.ID))
		}

		result = &LabelResult{
			Entry:       entry,
			BatesNumber: label,
			LabeledKey:  labeledKey,
			Applied:     stamped.Applied,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Bates label applied",
		"config_id", cfg.ID,
		"document_id", doc.ID,
		"bates_number", result.BatesNumber,
		"applied", result.Applied,
	)
	return result, nil
}

func (s *batesService) stampDocument(ctx context.Context, content []byte, mimeType, label string, in ApplyLabelInput) (pdf.Result, error) {
	stampCtx, cancel := context.WithTimeout(ctx, s.stampTimeout)
	defer cancel()

	stamped, err := s.stamper.StampText(stampCtx, content, mimeType, label, pdf.NormalizePosition(in.Position))
	if err != nil {
		return pdf.Result{}, err
	}
	if in.WatermarkText != "" && stamped.Applied {
		marked, err := s.stamper.StampWatermark(stampCtx, stamped.Content, mimeType, in.WatermarkText)
		if err != nil {
			return pdf.Result{}, err
		}
		stamped.Content = marked.Content
	}
	return stamped, nil
}

func (s *batesService) downloadOriginal(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.bucket.DownloadFile(ctx, gcp.BucketCategoryDocument, key)
	if err != nil {
		return nil, apierr.Storage("original_download_failed", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, apierr.Storage("original_download_failed", err)
	}
	return content, nil
}

func labeledObjectKey(doc *types.Document, label string) string {
	return fmt.Sprintf("cases/%s/labeled/%s_%s", doc.CaseID, label, path.Base(doc.StorageKey))
}

// BatchApplyLabels labels documents in request order. Each document gets its
// own transaction: a failed item reports its error in place and consumes no
// sequence number, and later items keep going.
func (s *batesService) BatchApplyLabels(ctx context.Context, in BatchApplyLabelsInput) (*BatchLabelResult, error) {
	if len(in.DocumentIDs) == 0 {
		return nil, apierr.Invalid("document_ids_required", errors.New("document_ids is required"))
	}
	if _, err := s.GetConfig(ctx, in.ConfigID); err != nil {
		return nil, err
	}

	out := &BatchLabelResult{Total: len(in.DocumentIDs)}
	for _, docID := range in.DocumentIDs {
		item := BatchLabelItem{DocumentID: docID}
		res, err := s.applyOne(ctx, ApplyLabelInput{
			ConfigID:      in.ConfigID,
			DocumentID:    docID,
			Position:      in.Position,
			WatermarkText: in.WatermarkText,
			AppliedBy:     in.AppliedBy,
		})
		if err != nil {
			// Per-item failures (conflicts, missing documents, render
			// errors) are reported in place; an infrastructure failure
			// aborts the rest of the batch.
			if ae := apierr.From(err); ae.Status >= http.StatusInternalServerError {
				return nil, err
			}
			item.Error = apierr.From(err).Error()
			out.Failed++
		} else {
			item.BatesNumber = res.BatesNumber
			item.LabeledKey = res.LabeledKey
			item.Applied = res.Applied
			out.Succeeded++
		}
		out.Items = append(out.Items, item)
	}
	s.log.Info("Batch labeling finished",
		"config_id", in.ConfigID,
		"total", out.Total,
		"succeeded", out.Succeeded,
		"failed", out.Failed,
	)
	return out, nil
}

func (s *batesService) SearchRegistry(ctx context.Context, q RegistryQuery) ([]*types.BatesRegistryEntry, int64, error) {
	dbc := dbctx.Context{Ctx: ctx}
	f := repos.RegistryFilter{Pattern: q.Pattern, Offset: q.Offset, Limit: q.Limit}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	switch {
	case q.ConfigID != nil:
		f.ConfigIDs = []uuid.UUID{*q.ConfigID}
	case q.CaseID != nil:
		ids, err := s.configs.IDsByCase(dbc, *q.CaseID)
		if err != nil {
			return nil, 0, err
		}
		if len(ids) == 0 {
			return []*types.BatesRegistryEntry{}, 0, nil
		}
		f.ConfigIDs = ids
	}
	return s.registry.List(dbc, f)
}

func (s *batesService) Report(ctx context.Context, scope ReportScope) (*BatesReport, error) {
	dbc := dbctx.Context{Ctx: ctx}
	var configIDs []uuid.UUID
	switch {
	case scope.ConfigID != nil:
		if _, err := s.GetConfig(ctx, *scope.ConfigID); err != nil {
			return nil, err
		}
		configIDs = []uuid.UUID{*scope.ConfigID}
	case scope.CaseID != nil:
		exists, err := s.cases.Exists(dbc, *scope.CaseID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apierr.NotFound("case_not_found", fmt.Errorf("case %s not found", *scope.CaseID))
		}
		configIDs, err = s.configs.IDsByCase(dbc, *scope.CaseID)
		if err != nil {
			return nil, err
		}
	default:
		return nil, apierr.Invalid("report_scope_required", errors.New("case_id or config_id is required"))
	}
	report := &BatesReport{CaseID: scope.CaseID, ConfigID: scope.ConfigID, GeneratedAt: time.Now(), Rows: []BatesReportRow{}}
	if len(configIDs) == 0 {
		return report, nil
	}
	entries, err := s.registry.ListAll(dbc, configIDs)
	if err != nil {
		return nil, err
	}

	docIDs := make([]uuid.UUID, 0, len(entries))
	userIDs := make([]uuid.UUID, 0, len(entries))
	seenDoc := map[uuid.UUID]bool{}
	seenUser := map[uuid.UUID]bool{}
	for _, e := range entries {
		if !seenDoc[e.DocumentID] {
			seenDoc[e.DocumentID] = true
			docIDs = append(docIDs, e.DocumentID)
		}
		if !seenUser[e.AppliedBy] {
			seenUser[e.AppliedBy] = true
			userIDs = append(userIDs, e.AppliedBy)
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
	users, err := s.users.GetByIDs(dbc, userIDs)
	if err != nil {
		return nil, err
	}
	userByID := make(map[uuid.UUID]*types.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}

	for _, e := range entries {
		row := BatesReportRow{
			BatesNumber: e.BatesNumber,
			AppliedDate: e.CreatedAt,
		}
		if d := docByID[e.DocumentID]; d != nil {
			row.DocumentName = d.Name
		}
		if u := userByID[e.AppliedBy]; u != nil {
			row.AppliedBy = u.FullName()
		}
		report.Rows = append(report.Rows, row)
	}
	return report, nil
}
