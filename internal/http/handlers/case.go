package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lexbridge-backend/internal/http/response"
	"github.com/yungbote/lexbridge-backend/internal/platform/apierr"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
	"github.com/yungbote/lexbridge-backend/internal/services"
)

type CaseHandler struct {
	log   *logger.Logger
	cases services.CaseService
}

func NewCaseHandler(baseLog *logger.Logger, cases services.CaseService) *CaseHandler {
	return &CaseHandler{log: baseLog.With("handler", "CaseHandler"), cases: cases}
}

func (h *CaseHandler) Create(c *gin.Context) {
	rd, err := principal(c)
	if err != nil {
		response.Err(c, err)
		return
	}
	var in services.CreateCaseInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Err(c, apierr.Invalid("invalid_body", err))
		return
	}
	in.CreatedBy = &rd.UserID
	created, err := h.cases.Create(c.Request.Context(), in)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusCreated, created)
}

func (h *CaseHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Err(c, err)
		return
	}
	found, err := h.cases.Get(c.Request.Context(), id)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, found)
}

func (h *CaseHandler) List(c *gin.Context) {
	offset, limit := paging(c)
	list, total, err := h.cases.List(c.Request.Context(), c.Query("status"), offset, limit)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"cases": list, "total": total})
}
