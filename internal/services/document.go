package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	types "github.com/yungbote/lexbridge-backend/internal/domain"
	"github.com/yungbote/lexbridge-backend/internal/platform/apierr"
	"github.com/yungbote/lexbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/lexbridge-backend/internal/platform/gcp"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
)

type UploadDocumentInput struct {
	CaseID     uuid.UUID
	Name       string
	MimeType   string
	SizeBytes  int64
	Category   string
	UploadedBy *uuid.UUID
	Content    io.Reader
}

type DocumentService interface {
	Upload(ctx context.Context, in UploadDocumentInput) (*types.Document, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Document, error)
	ListByCase(ctx context.Context, caseID uuid.UUID, category string, offset, limit int) ([]*types.Document, int64, error)
	// Download streams the original artifact. Originals stay byte-identical
	// after labeling; labeled copies live under their registry entry's key.
	Download(ctx context.Context, id uuid.UUID) (*types.Document, io.ReadCloser, error)
	// DownloadURL is the public URL of the original artifact.
	DownloadURL(doc *types.Document) string
}

type documentService struct {
	log       *logger.Logger
	documents repos.DocumentRepo
	cases     repos.CaseRepo
	bucket    gcp.BucketService
}

func NewDocumentService(
	baseLog *logger.Logger,
	documents repos.DocumentRepo,
	caseRepo repos.CaseRepo,
	bucket gcp.BucketService,
) DocumentService {
	return &documentService{
		log:       baseLog.With("service", "DocumentService"),
		documents: documents,
		cases:     caseRepo,
		bucket:    bucket,
	}
}

func (s *documentService) Upload(ctx context.Context, in UploadDocumentInput) (*types.Document, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if in.Name == "" {
		return nil, apierr.Invalid("name_required", errors.New("document name is required"))
	}
	if in.Content == nil {
		return nil, apierr.Invalid("content_required", errors.New("document content is required"))
	}
	if in.MimeType == "" {
		in.MimeType = "application/octet-stream"
	}
	exists, err := s.cases.Exists(dbc, in.CaseID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apierr.NotFound("case_not_found", fmt.Errorf("case %s not found", in.CaseID))
	}

	id := uuid.New()
	key := fmt.Sprintf("cases/%s/documents/%s_%s", in.CaseID, id, path.Base(in.Name))
	if err := s.bucket.UploadFile(dbc, gcp.BucketCategoryDocument, key, in.Content); err != nil {
		return nil, apierr.Storage("document_upload_failed", err)
	}

	doc := &types.Document{
		ID:         id,
		CaseID:     in.CaseID,
		Name:       in.Name,
		StorageKey: key,
		MimeType:   in.MimeType,
		SizeBytes:  in.SizeBytes,
		UploadedBy: in.UploadedBy,
	}
	if in.Category != "" {
		doc.Category = in.Category
	}
	created, err := s.documents.Create(dbc, doc)
	if err != nil {
		return nil, err
	}
	s.log.Info("Document uploaded", "document_id", created.ID, "case_id", created.CaseID, "mime_type", created.MimeType)
	return created, nil
}

func (s *documentService) Get(ctx context.Context, id uuid.UUID) (*types.Document, error) {
	doc, err := s.documents.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("document_not_found", fmt.Errorf("document %s not found", id))
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) ListByCase(ctx context.Context, caseID uuid.UUID, category string, offset, limit int) ([]*types.Document, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.documents.ListByCase(dbctx.Context{Ctx: ctx}, caseID, category, offset, limit)
}

func (s *documentService) DownloadURL(doc *types.Document) string {
	return s.bucket.GetPublicURL(gcp.BucketCategoryDocument, doc.StorageKey)
}

func (s *documentService) Download(ctx context.Context, id uuid.UUID) (*types.Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.bucket.DownloadFile(ctx, gcp.BucketCategoryDocument, doc.StorageKey)
	if err != nil {
		return nil, nil, apierr.Storage("document_download_failed", err)
	}
	return doc, rc, nil
}
