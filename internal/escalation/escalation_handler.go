package escalation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leaveflow/internal/shared/apperror"
	"leaveflow/internal/shared/response"
)

type Handler struct {
	scheduler *Scheduler
	logger    *zap.Logger
}

func NewHandler(scheduler *Scheduler, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("escalation.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("escalation.handler")
	}
	return &Handler{scheduler: scheduler, logger: l}
}

func (h *Handler) Status(c *gin.Context) {
	response.Success(c, http.StatusOK, h.scheduler.Status(), nil)
}

func (h *Handler) Start(c *gin.Context) {
	h.scheduler.Start()
	response.Success(c, http.StatusOK, h.scheduler.Status(), nil)
}

func (h *Handler) Stop(c *gin.Context) {
	h.scheduler.Stop()
	response.Success(c, http.StatusOK, h.scheduler.Status(), nil)
}

// Trigger runs one sweep synchronously and returns its report.
func (h *Handler) Trigger(c *gin.Context) {
	report, err := h.scheduler.TriggerManual(c.Request.Context())
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, nil)
		return
	}
	response.Success(c, http.StatusOK, report, nil)
}
