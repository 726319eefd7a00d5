package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lexbridge-backend/internal/data/repos"
	"github.com/yungbote/lexbridge-backend/internal/http/response"
	"github.com/yungbote/lexbridge-backend/internal/platform/apierr"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
	"github.com/yungbote/lexbridge-backend/internal/services"
)

type ExhibitHandler struct {
	log      *logger.Logger
	exhibits services.ExhibitService
}

func NewExhibitHandler(baseLog *logger.Logger, exhibits services.ExhibitService) *ExhibitHandler {
	return &ExhibitHandler{log: baseLog.With("handler", "ExhibitHandler"), exhibits: exhibits}
}

func (h *ExhibitHandler) Create(c *gin.Context) {
	rd, err := principal(c)
	if err != nil {
		response.Err(c, err)
		return
	}
	var in services.CreateExhibitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Err(c, apierr.Invalid("invalid_body", err))
		return
	}
	in.CreatedBy = &rd.UserID
	ex, err := h.exhibits.Create(c.Request.Context(), in)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusCreated, ex)
}

func (h *ExhibitHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Err(c, err)
		return
	}
	ex, err := h.exhibits.Get(c.Request.Context(), id)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, ex)
}

func (h *ExhibitHandler) List(c *gin.Context) {
	caseID, err := queryUUID(c, "case_id")
	if err != nil {
		response.Err(c, err)
		return
	}
	offset, limit := paging(c)
	exhibits, total, err := h.exhibits.List(c.Request.Context(), repos.ExhibitFilter{
		CaseID: caseID,
		Status: c.Query("status"),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"exhibits": exhibits, "total": total})
}

func (h *ExhibitHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Err(c, err)
		return
	}
	var in services.UpdateExhibitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Err(c, apierr.Invalid("invalid_body", err))
		return
	}
	ex, err := h.exhibits.Update(c.Request.Context(), id, in)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, ex)
}

func (h *ExhibitHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Err(c, err)
		return
	}
	if err := h.exhibits.Delete(c.Request.Context(), id); err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"deleted": id})
}

func (h *ExhibitHandler) AssignNumber(c *gin.Context) {
	var in services.AssignNumberInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Err(c, apierr.Invalid("invalid_body", err))
		return
	}
	ex, err := h.exhibits.AssignNumber(c.Request.Context(), in)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, ex)
}

func (h *ExhibitHandler) BatchAssignNumbers(c *gin.Context) {
	var in services.BatchAssignNumbersInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Err(c, apierr.Invalid("invalid_body", err))
		return
	}
	res, err := h.exhibits.BatchAssignNumbers(c.Request.Context(), in)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, res)
}

func (h *ExhibitHandler) UpdateStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Err(c, err)
		return
	}
	var in struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Err(c, apierr.Invalid("invalid_body", err))
		return
	}
	ex, err := h.exhibits.UpdateStatus(c.Request.Context(), id, in.Status)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, ex)
}

func (h *ExhibitHandler) ExhibitList(c *gin.Context) {
	caseID, err := queryUUID(c, "case_id")
	if err != nil {
		response.Err(c, err)
		return
	}
	if caseID == nil {
		response.Err(c, apierr.Invalid("case_id_required", errors.New("case_id is required")))
		return
	}
	list, err := h.exhibits.ExhibitList(c.Request.Context(), *caseID)
	if err != nil {
		response.Err(c, err)
		return
	}
	if c.Query("format") == "csv" {
		c.Header("Content-Disposition", `attachment; filename="exhibit-list.csv"`)
		c.Data(http.StatusOK, "text/csv", list.CSV())
		return
	}
	response.OK(c, http.StatusOK, list)
}

func (h *ExhibitHandler) StatusCounts(c *gin.Context) {
	caseID, err := queryUUID(c, "case_id")
	if err != nil {
		response.Err(c, err)
		return
	}
	if caseID == nil {
		response.Err(c, apierr.Invalid("case_id_required", errors.New("case_id is required")))
		return
	}
	counts, err := h.exhibits.StatusCounts(c.Request.Context(), *caseID)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"counts": counts})
}

func (h *ExhibitHandler) CreatePackage(c *gin.Context) {
	rd, err := principal(c)
	if err != nil {
		response.Err(c, err)
		return
	}
	var in services.CreatePackageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Err(c, apierr.Invalid("invalid_body", err))
		return
	}
	in.CreatedBy = &rd.UserID
	pkg, err := h.exhibits.CreatePackage(c.Request.Context(), in)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusCreated, pkg)
}

func (h *ExhibitHandler) GetPackage(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Err(c, err)
		return
	}
	pkg, err := h.exhibits.GetPackage(c.Request.Context(), id)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, pkg)
}

func (h *ExhibitHandler) ListPackages(c *gin.Context) {
	caseID, err := queryUUID(c, "case_id")
	if err != nil {
		response.Err(c, err)
		return
	}
	if caseID == nil {
		response.Err(c, apierr.Invalid("case_id_required", errors.New("case_id is required")))
		return
	}
	pkgs, err := h.exhibits.ListPackages(c.Request.Context(), *caseID)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"packages": pkgs})
}
