package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lexbridge-backend/internal/http/response"
	"github.com/yungbote/lexbridge-backend/internal/platform/apierr"
	"github.com/yungbote/lexbridge-backend/internal/platform/logger"
	"github.com/yungbote/lexbridge-backend/internal/platform/requestdata"
	"github.com/yungbote/lexbridge-backend/internal/services"
)

type BatesHandler struct {
	log   *logger.Logger
	bates services.BatesService
}

func NewBatesHandler(baseLog *logger.Logger, bates services.BatesService) *BatesHandler {
	return &BatesHandler{log: baseLog.With("handler", "BatesHandler"), bates: bates}
}

func principal(c *gin.Context) (*requestdata.RequestData, error) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("no authenticated principal"))
	}
	return rd, nil
}

func pathID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apierr.Invalid("invalid_id", err)
	}
	return id, nil
}

func queryUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apierr.Invalid("invalid_"+name, err)
	}
	return &id, nil
}

func paging(c *gin.Context) (offset, limit int) {
	type q struct {
		Offset int `form:"offset"`
		Limit  int `form:"limit"`
	}
	var p q
	_ = c.ShouldBindQuery(&p)
	return p.Offset, p.Limit
}

func (h *BatesHandler) CreateConfig(c *gin.Context) {
	rd, err := principal(c)
	if err != nil {
		response.Err(c, err)
		return
	}
	var in services.CreateBatesConfigInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Err(c, apierr.Invalid("invalid_body", err))
		return
	}
	in.CreatedBy = &rd.UserID
	cfg, err := h.bates.CreateConfig(c.Request.Context(), in)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusCreated, cfg)
}

func (h *BatesHandler) GetConfig(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Err(c, err)
		return
	}
	cfg, err := h.bates.GetConfig(c.Request.Context(), id)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, cfg)
}

func (h *BatesHandler) ListConfigs(c *gin.Context) {
	caseID, err := queryUUID(c, "case_id")
	if err != nil {
		response.Err(c, err)
		return
	}
	offset, limit := paging(c)
	configs, total, err := h.bates.ListConfigs(c.Request.Context(), caseID, offset, limit)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"configs": configs, "total": total})
}

func (h *BatesHandler) UpdateConfig(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Err(c, err)
		return
	}
	var in services.UpdateBatesConfigInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Err(c, apierr.Invalid("invalid_body", err))
		return
	}
	cfg, err := h.bates.UpdateConfig(c.Request.Context(), id, in)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, cfg)
}

func (h *BatesHandler) DeleteConfig(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Err(c, err)
		return
	}
	if err := h.bates.DeleteConfig(c.Request.Context(), id); err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"deleted": id})
}

func (h *BatesHandler) NextNumber(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Err(c, err)
		return
	}
	label, seq, err := h.bates.NextNumber(c.Request.Context(), id)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"next_number": label, "sequence": seq})
}

func (h *BatesHandler) ApplyLabel(c *gin.Context) {
	rd, err := principal(c)
	if err != nil {
		response.Err(c, err)
		return
	}
	var in services.ApplyLabelInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Err(c, apierr.Invalid("invalid_body", err))
		return
	}
	in.AppliedBy = rd.UserID
	res, err := h.bates.ApplyLabel(c.Request.Context(), in)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, res)
}

func (h *BatesHandler) BatchApplyLabels(c *gin.Context) {
	rd, err := principal(c)
	if err != nil {
		response.Err(c, err)
		return
	}
	var in services.BatchApplyLabelsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Err(c, apierr.Invalid("invalid_body", err))
		return
	}
	in.AppliedBy = rd.UserID
	res, err := h.bates.BatchApplyLabels(c.Request.Context(), in)
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, res)
}

func (h *BatesHandler) SearchRegistry(c *gin.Context) {
	caseID, err := queryUUID(c, "case_id")
	if err != nil {
		response.Err(c, err)
		return
	}
	configID, err := queryUUID(c, "config_id")
	if err != nil {
		response.Err(c, err)
		return
	}
	offset, limit := paging(c)
	entries, total, err := h.bates.SearchRegistry(c.Request.Context(), services.RegistryQuery{
		CaseID:   caseID,
		ConfigID: configID,
		Pattern:  c.Query("q"),
		Offset:   offset,
		Limit:    limit,
	})
	if err != nil {
		response.Err(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"entries": entries, "total": total})
}

func (h *BatesHandler) Report(c *gin.Context) {
	caseID, err := queryUUID(c, "case_id")
	if err != nil {
		response.Err(c, err)
		return
	}
	configID, err := queryUUID(c, "config_id")
	if err != nil {
		response.Err(c, err)
		return
	}
	report, err := h.bates.Report(c.Request.Context(), services.ReportScope{CaseID: caseID, ConfigID: configID})
	if err != nil {
		response.Err(c, err)
		return
	}
	if c.Query("format") == "csv" {
		c.Header("Content-Disposition", `attachment; filename="bates-report.csv"`)
		c.Data(http.StatusOK, "text/csv", report.CSV())
		return
	}
	response.OK(c, http.StatusOK, report)
}
