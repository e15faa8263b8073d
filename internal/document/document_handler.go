package document

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leaveflow/internal/shared/apperror"
	"leaveflow/internal/shared/response"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("document.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("document.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("document request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Generate(c *gin.Context) {
	companyID := c.GetString("company_id")
	actorID := c.GetString("employee_id")

	doc, err := h.service.Generate(c.Request.Context(), companyID, actorID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"document_number": doc.DocumentNumber,
		"request_id":      doc.RequestID.String(),
		"content_type":    doc.ContentType,
		"size_bytes":      len(doc.Content),
		"created_at":      doc.CreatedAt,
	}, nil)
}

func (h *Handler) Download(c *gin.Context) {
	companyID := c.GetString("company_id")

	doc, err := h.service.Get(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.DocumentNumber+`.pdf"`)
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}
