package document

import (
	"github.com/gin-gonic/gin"

	"leaveflow/internal/middleware"
	"leaveflow/internal/rbac"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
) {
	docs := r.Group("/requests/:id/document")
	docs.Use(middleware.AuthMiddleware())
	{
		docs.POST("", middleware.RBACAuthorize(rbacService, "leave_document", "generate"), handler.Generate)
		docs.GET("", handler.Download)
	}
}
