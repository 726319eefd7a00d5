package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lexbridge-backend/internal/http/response"
	"github.com/yungbote/lexbridge-backend/internal/platform/apierr"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
	"github.com/yungbote/lexbridge-backend/internal/services"
)

type DocumentHandler struct {
	log       *logger.Logger
	documents services.DocumentService
}

func NewDocumentHandler(baseLog *logger.Logger, documents services.DocumentService) *DocumentHandler {
	return &DocumentHandler{log: baseLog.With("handler", "DocumentHandler"), documents: documents}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	rd, err := principal(c)
	if err != nil {
		response.Err(c, err)
		return
	}
	caseID, err := uuid.Parse(c.PostForm("case_id"))
	if err != nil {
		response.Err(c, apierr.Invalid("invalid_case_id", err))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Err(c, apierr.Invalid("file_required", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Err(c, apierr.Invalid("file_unreadable", err))
		return
	}
	defer file.Close()

	name := c.PostForm("name")
	if name == "" {
		name = fileHeader.Filename
	}
	doc, err := h.documents.Upload(c.Request.Context(), services.UploadDocumentInput{
		CaseID:     caseID,
		Name:       name,
		MimeType:   fileHeader.Header.Get("Content-Type"),
		SizeBytes:  fileHeader.Size,
		Category:   c.PostForm("category"),
		UploadedBy: &rd.UserID,
		Content:    file,
	})
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusCreated, doc)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Err(c, err)
		return
	}
	doc, err := h.documents.Get(c.Request.Context(), id)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"document": doc, "download_url": h.documents.DownloadURL(doc)})
}

func (h *DocumentHandler) List(c *gin.Context) {
	caseID, err := queryUUID(c, "case_id")
	if err != nil {
		response.Err(c, err)
		return
	}
	if caseID == nil {
		response.Err(c, apierr.Invalid("case_id_required", errors.New("case_id is required")))
		return
	}
	offset, limit := paging(c)
	docs, total, err := h.documents.ListByCase(c.Request.Context(), *caseID, c.Query("category"), offset, limit)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"documents": docs, "total": total})
}

func (h *DocumentHandler) Download(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Err(c, err)
		return
	}
	doc, rc, err := h.documents.Download(c.Request.Context(), id)
	if err != nil {
		response.Err(c, err)
		return
	}
	defer rc.Close()
	c.Header("Content-Disposition", `attachment; filename="`+doc.Name+`"`)
	c.Header("Content-Type", doc.MimeType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.log.Error("Document stream interrupted", "document_id", id, "error", err)
	}
}
