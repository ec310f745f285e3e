package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/dispatch-admin-api/internal/models"
	"github.com/fieldserve/dispatch-admin-api/internal/service"
	"github.com/fieldserve/dispatch-admin-api/pkg/response"
)

// TechnicianHandler handles technician roster endpoints.
type TechnicianHandler struct {
	service *service.TechnicianService
}

// NewTechnicianHandler creates a new technician handler.
func NewTechnicianHandler(svc *service.TechnicianService) *TechnicianHandler {
	return &TechnicianHandler{service: svc}
}

// List godoc
// @Summary List technicians
// @Description List technicians with pagination and filtering
// @Tags Technicians
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param type query string false "Technician type filter"
// @Param blocked query bool false "Blocked filter"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /technicians [get]
func (h *TechnicianHandler) List(c *gin.Context) {
	var filter models.TechnicianFilter

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if techType := c.Query("type"); techType != "" {
		t := models.TechnicianType(techType)
		filter.Type = &t
	}
	if blocked := c.Query("blocked"); blocked != "" {
		if val, err := strconv.ParseBool(blocked); err == nil {
			filter.Blocked = &val
		}
	}
	filter.Search = c.Query("search")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	technicians, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, technicians, pagination)
}

// Get godoc
// @Summary Get technician
// @Description Get technician detail
// @Tags Technicians
// @Produce json
// @Param id path string true "Technician ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id} [get]
func (h *TechnicianHandler) Get(c *gin.Context) {
	technician, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, technician, nil)
}

// Block godoc
// @Summary Block technician
// @Description Block a technician from accruing new commissions
// @Tags Technicians
// @Produce json
// @Param id path string true "Technician ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id}/block [post]
func (h *TechnicianHandler) Block(c *gin.Context) {
	h.setBlocked(c, true)
}

// Unblock godoc
// @Summary Unblock technician
// @Description Re-enable commission accrual for a technician
// @Tags Technicians
// @Produce json
// @Param id path string true "Technician ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /technicians/{id}/unblock [post]
func (h *TechnicianHandler) Unblock(c *gin.Context) {
	h.setBlocked(c, false)
}

func (h *TechnicianHandler) setBlocked(c *gin.Context, blocked bool) {
	technician, err := h.service.SetBlocked(c.Request.Context(), c.Param("id"), blocked, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, technician, nil)
}
