package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/dispatch-admin-api/internal/dto"
	"github.com/fieldserve/dispatch-admin-api/internal/models"
	"github.com/fieldserve/dispatch-admin-api/internal/service"
	appErrors "github.com/fieldserve/dispatch-admin-api/pkg/errors"
	"github.com/fieldserve/dispatch-admin-api/pkg/response"
)

// RateHandler handles rate configuration endpoints.
type RateHandler struct {
	service *service.RateService
}

// NewRateHandler creates a new rate handler.
func NewRateHandler(svc *service.RateService) *RateHandler {
	return &RateHandler{service: svc}
}

// List godoc
// @Summary List rates
// @Description List configured rates, optionally filtered by type and technician type
// @Tags Rates
// @Produce json
// @Param type query string false "Rate type filter (COMMISSION or BONUS)"
// @Param tech_type query string false "Technician type filter (FREELANCER or INTERNAL)"
// @Success 200 {object} response.Envelope
// @Router /rates [get]
func (h *RateHandler) List(c *gin.Context) {
	var filter models.RateFilter
	if rateType := c.Query("type"); rateType != "" {
		t := models.RateType(rateType)
		filter.Type = &t
	}
	if techType := c.Query("tech_type"); techType != "" {
		t := models.TechnicianType(techType)
		filter.TechType = &t
	}

	rates, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rates, nil)
}

// Groups godoc
// @Summary Rate group summary
// @Description Per-group rate counts with each group's current default
// @Tags Rates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rates/summary [get]
func (h *RateHandler) Groups(c *gin.Context) {
	groups, err := h.service.Groups(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Default godoc
// @Summary Resolve default rate
// @Description Resolve the default rate applicable to a technician type
// @Tags Rates
// @Produce json
// @Param type path string true "Technician type (FREELANCER or INTERNAL)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rates/default/{type} [get]
func (h *RateHandler) Default(c *gin.Context) {
	rate, err := h.service.Default(c.Request.Context(), models.TechnicianType(c.Param("type")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rate, nil)
}

// Get godoc
// @Summary Get rate
// @Description Get a single rate by ID
// @Tags Rates
// @Produce json
// @Param id path string true "Rate ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rates/{id} [get]
func (h *RateHandler) Get(c *gin.Context) {
	rate, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rate, nil)
}

// Create godoc
// @Summary Create rate
// @Description Create a new commission or bonus rate
// @Tags Rates
// @Accept json
// @Produce json
// @Param payload body dto.CreateRateRequest true "Create rate payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /rates [post]
func (h *RateHandler) Create(c *gin.Context) {
	var req dto.CreateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	rate, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rate)
}

// Update godoc
// @Summary Update rate
// @Description Partially update a rate; the default flag is immutable here
// @Tags Rates
// @Accept json
// @Produce json
// @Param id path string true "Rate ID"
// @Param payload body dto.UpdateRateRequest true "Update rate payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rates/{id} [put]
func (h *RateHandler) Update(c *gin.Context) {
	var req dto.UpdateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	rate, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rate, nil)
}

// Delete godoc
// @Summary Delete rate
// @Description Delete a non-default rate
// @Tags Rates
// @Produce json
// @Param id path string true "Rate ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rates/{id} [delete]
func (h *RateHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetDefault godoc
// @Summary Set default rate
// @Description Promote a rate to its group's default, demoting the previous one
// @Tags Rates
// @Produce json
// @Param id path string true "Rate ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rates/{id}/default [post]
func (h *RateHandler) SetDefault(c *gin.Context) {
	rate, err := h.service.SetDefault(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rate, nil)
}
