package balance

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
	balances := r.Group("/balances")
	balances.Use(middleware.AuthMiddleware())
	{
		balances.GET("", handler.GetMine)
		balances.GET("/:employeeId", middleware.RBACAuthorize(rbacService, "balance", "read_all"), handler.GetByEmployee)
		balances.POST("/carry-forward", middleware.RBACAuthorize(rbacService, "balance", "admin"), handler.RunCarryForward)
		balances.POST("/carry-forward/expire", middleware.RBACAuthorize(rbacService, "balance", "admin"), handler.ExpireCarryForward)
	}
}
