package escalation

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
	scheduler := r.Group("/scheduler")
	scheduler.Use(middleware.AuthMiddleware())
	scheduler.Use(middleware.RBACAuthorize(rbacService, "scheduler", "admin"))
	{
		scheduler.GET("/status", handler.Status)
		scheduler.POST("/start", handler.Start)
		scheduler.POST("/stop", handler.Stop)
		scheduler.POST("/trigger", handler.Trigger)
	}
}
