package balance

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"leaveflow/internal/shared/apperror"
	"leaveflow/internal/shared/response"
)

type Handler struct {
	ledger Ledger
	logger *zap.Logger
	// group collapses bursts of identical summary reads (dashboard polling)
	// into one repository round-trip.
	group singleflight.Group
}

func NewHandler(ledger Ledger, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("balance.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.handler")
	}
	return &Handler{ledger: ledger, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("balance request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) queryYear(c *gin.Context) int {
	year, err := strconv.Atoi(c.DefaultQuery("year", ""))
	if err != nil || year == 0 {
		return time.Now().UTC().Year()
	}
	return year
}

// GetMine returns the calling employee's ledger rows for a year.
func (h *Handler) GetMine(c *gin.Context) {
	companyID := c.GetString("company_id")
	employeeID := c.GetString("employee_id")
	year := h.queryYear(c)

	resp, err := h.summary(c, companyID, employeeID, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

// GetByEmployee returns another employee's ledger rows (admin/HR view).
func (h *Handler) GetByEmployee(c *gin.Context) {
	companyID := c.GetString("company_id")
	employeeID := c.Param("employeeId")
	year := h.queryYear(c)

	resp, err := h.summary(c, companyID, employeeID, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) summary(c *gin.Context, companyID, employeeID string, year int) ([]BalanceResponse, error) {
	key := fmt.Sprintf("%s:%s:%d", companyID, employeeID, year)
	v, err, _ := h.group.Do(key, func() (interface{}, error) {
		return h.ledger.GetSummary(c.Request.Context(), companyID, employeeID, year)
	})
	if err != nil {
		return nil, err
	}
	return v.([]BalanceResponse), nil
}

// RunCarryForward rolls year-end balances forward (admin trigger).
func (h *Handler) RunCarryForward(c *gin.Context) {
	companyID := c.GetString("company_id")

	var req CarryForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapped := apperror.ToHTTP(apperror.MapValidationError(err))
		response.Error(c, mapped.Status, mapped.Code, mapped.Message, nil)
		return
	}

	report, err := h.ledger.RunCarryForward(c.Request.Context(), companyID, req.FromYear)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, report, nil)
}

// ExpireCarryForward lapses carried balances past their expiry window.
func (h *Handler) ExpireCarryForward(c *gin.Context) {
	companyID := c.GetString("company_id")

	var req ExpireCarryForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapped := apperror.ToHTTP(apperror.MapValidationError(err))
		response.Error(c, mapped.Status, mapped.Code, mapped.Message, nil)
		return
	}

	expired, err := h.ledger.ExpireCarryForward(c.Request.Context(), companyID, req.Year, time.Now().UTC())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"expired_rows": expired}, nil)
}
