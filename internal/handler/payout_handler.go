package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/dispatch-admin-api/internal/dto"
	"github.com/fieldserve/dispatch-admin-api/internal/service"
	appErrors "github.com/fieldserve/dispatch-admin-api/pkg/errors"
	"github.com/fieldserve/dispatch-admin-api/pkg/response"
)

// PayoutHandler handles payout ledger, batch and early request endpoints.
type PayoutHandler struct {
	service *service.PayoutService
}

// NewPayoutHandler creates a new payout handler.
func NewPayoutHandler(svc *service.PayoutService) *PayoutHandler {
	return &PayoutHandler{service: svc}
}

// Summary godoc
// @Summary Payout dashboard summary
// @Description Aggregated KPIs: pending totals, early requests, paid this month, next payout date
// @Tags Payouts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payouts/summary [get]
func (h *PayoutHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ListPending godoc
// @Summary List pending commissions
// @Description Payout-eligible commission lines not yet batched or absorbed
// @Tags Payouts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payouts/pending [get]
func (h *PayoutHandler) ListPending(c *gin.Context) {
	items, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListBatches godoc
// @Summary List payout batches
// @Description All payout batches with normalized display statuses
// @Tags Payouts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payouts/batches [get]
func (h *PayoutHandler) ListBatches(c *gin.Context) {
	batches, err := h.service.ListBatches(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, nil)
}

// CreateBatch godoc
// @Summary Create payout batch
// @Description Snapshot all pending commissions into a new batch
// @Tags Payouts
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payouts/batches [post]
func (h *PayoutHandler) CreateBatch(c *gin.Context) {
	batch, err := h.service.CreateBatch(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// BatchDetails godoc
// @Summary Payout batch details
// @Description Batch with its per-technician breakdown
// @Tags Payouts
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payouts/batches/{id} [get]
func (h *PayoutHandler) BatchDetails(c *gin.Context) {
	details, err := h.service.BatchDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}

// ConfirmBatch godoc
// @Summary Confirm payout batch
// @Description Move a batch from PENDING to CONFIRMED
// @Tags Payouts
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payouts/batches/{id}/confirm [post]
func (h *PayoutHandler) ConfirmBatch(c *gin.Context) {
	batch, err := h.service.ConfirmBatch(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// MarkPaid godoc
// @Summary Mark payout batch paid
// @Description Move a CONFIRMED batch to PAID with payment evidence
// @Tags Payouts
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param payload body dto.MarkPaidRequest true "Payment evidence"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payouts/batches/{id}/paid [post]
func (h *PayoutHandler) MarkPaid(c *gin.Context) {
	var req dto.MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	batch, err := h.service.MarkPaid(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batch, nil)
}

// BatchStatement godoc
// @Summary Export batch statement
// @Description PDF statement with per-technician breakdown
// @Tags Payouts
// @Produce application/pdf
// @Param id path string true "Batch ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /payouts/batches/{id}/statement [get]
func (h *PayoutHandler) BatchStatement(c *gin.Context) {
	payload, filename, err := h.service.BatchStatement(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Download(c, filename, "application/pdf", payload)
}

// History godoc
// @Summary Payout history
// @Description Paid batches in a date window, defaulting to the current month
// @Tags Payouts
// @Produce json
// @Param from query string false "Window start (RFC 3339 date)"
// @Param to query string false "Window end (RFC 3339 date)"
// @Success 200 {object} response.Envelope
// @Router /payouts/history [get]
func (h *PayoutHandler) History(c *gin.Context) {
	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD"))
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD"))
			return
		}
		to = parsed
	}

	entries, err := h.service.History(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ListEarlyRequests godoc
// @Summary List early payout requests
// @Description All early payout requests, newest first
// @Tags Payouts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payouts/early-requests [get]
func (h *PayoutHandler) ListEarlyRequests(c *gin.Context) {
	items, err := h.service.ListEarlyRequests(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ApproveEarlyRequest godoc
// @Summary Approve early payout request
// @Description Approve a pending request, absorbing the technician's pending commissions
// @Tags Payouts
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ApproveEarlyRequest false "Optional approval note"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payouts/early-requests/{id}/approve [post]
func (h *PayoutHandler) ApproveEarlyRequest(c *gin.Context) {
	var req dto.ApproveEarlyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	item, err := h.service.ApproveEarlyRequest(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// RejectEarlyRequest godoc
// @Summary Reject early payout request
// @Description Reject a pending request with a mandatory reason
// @Tags Payouts
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RejectEarlyRequest true "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payouts/early-requests/{id}/reject [post]
func (h *PayoutHandler) RejectEarlyRequest(c *gin.Context) {
	var req dto.RejectEarlyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "rejection reason is required"))
		return
	}

	item, err := h.service.RejectEarlyRequest(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}
