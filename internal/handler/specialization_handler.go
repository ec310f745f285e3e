package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/dispatch-admin-api/internal/dto"
	"github.com/fieldserve/dispatch-admin-api/internal/service"
	appErrors "github.com/fieldserve/dispatch-admin-api/pkg/errors"
	"github.com/fieldserve/dispatch-admin-api/pkg/response"
)

// SpecializationHandler handles service-category catalog endpoints.
type SpecializationHandler struct {
	service *service.SpecializationService
}

// NewSpecializationHandler creates a new specialization handler.
func NewSpecializationHandler(svc *service.SpecializationService) *SpecializationHandler {
	return &SpecializationHandler{service: svc}
}

// List godoc
// @Summary List specializations
// @Tags Specializations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /specializations [get]
func (h *SpecializationHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get specialization
// @Tags Specializations
// @Produce json
// @Param id path string true "Specialization ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /specializations/{id} [get]
func (h *SpecializationHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create specialization
// @Tags Specializations
// @Accept json
// @Produce json
// @Param payload body dto.CreateSpecializationRequest true "Create payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /specializations [post]
func (h *SpecializationHandler) Create(c *gin.Context) {
	var req dto.CreateSpecializationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	item, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update specialization
// @Tags Specializations
// @Accept json
// @Produce json
// @Param id path string true "Specialization ID"
// @Param payload body dto.UpdateSpecializationRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /specializations/{id} [put]
func (h *SpecializationHandler) Update(c *gin.Context) {
	var req dto.UpdateSpecializationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	item, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Delete specialization
// @Tags Specializations
// @Produce json
// @Param id path string true "Specialization ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /specializations/{id} [delete]
func (h *SpecializationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
