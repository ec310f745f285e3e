package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/dispatch-admin-api/internal/middleware"
	"github.com/fieldserve/dispatch-admin-api/internal/models"
	"github.com/fieldserve/dispatch-admin-api/internal/service"
)

func newPayoutHandlerForParsing() *PayoutHandler {
	// Parsing failures never reach the repository, so none is wired.
	svc := service.NewPayoutService(nil, nil, nil, nil, nil, nil, service.PayoutServiceConfig{})
	return NewPayoutHandler(svc)
}

func TestPayoutHandlerMarkPaidInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPayoutHandlerForParsing()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payouts/batches/batch-1/paid", bytes.NewReader([]byte(`not-json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "batch-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.MarkPaid(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayoutHandlerHistoryRejectsBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPayoutHandlerForParsing()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/payouts/history?from=yesterday", nil)
	c.Request = req

	handler.History(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayoutHandlerRejectEarlyRequestRequiresBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newPayoutHandlerForParsing()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/payouts/early-requests/req-1/reject", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.RejectEarlyRequest(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
