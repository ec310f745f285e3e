package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/dispatch-admin-api/internal/models"
	"github.com/fieldserve/dispatch-admin-api/internal/service"
	appErrors "github.com/fieldserve/dispatch-admin-api/pkg/errors"
	"github.com/fieldserve/dispatch-admin-api/pkg/response"
)

// AuditHandler handles audit trail endpoints.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// List godoc
// @Summary List audit events
// @Description Filtered, paginated view of the audit trail
// @Tags Audit
// @Produce json
// @Param action query string false "Action code filter"
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Param role query string false "Actor role filter"
// @Param entity query string false "Entity text filter"
// @Param search query string false "Free-text search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter, err := parseAuditFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.service.List(c.Request.Context(), c.Query("action"), filter, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportCSV godoc
// @Summary Export audit events
// @Description CSV export of the full filtered event set
// @Tags Audit
// @Produce text/csv
// @Param action query string false "Action code filter"
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Param role query string false "Actor role filter"
// @Param entity query string false "Entity text filter"
// @Param search query string false "Free-text search"
// @Success 200 {file} binary
// @Router /audit-logs/export [get]
func (h *AuditHandler) ExportCSV(c *gin.Context) {
	filter, err := parseAuditFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	payload, filename, err := h.service.ExportCSV(c.Request.Context(), c.Query("action"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Download(c, filename, "text/csv", payload)
}

func parseAuditFilter(c *gin.Context) (models.AuditLocalFilter, error) {
	var filter models.AuditLocalFilter

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
		}
		filter.From = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
		}
		// inclusive end of day
		end := parsed.AddDate(0, 0, 1)
		filter.To = &end
	}
	filter.Role = c.Query("role")
	filter.EntityText = c.Query("entity")
	filter.Search = c.Query("search")
	return filter, nil
}
