package request

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"leaveflow/internal/middleware"
	"leaveflow/internal/rbac"
)

func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	rbacService rbac.Service,
	redisClient *redis.Client,
) {
	requests := r.Group("/requests")
	requests.Use(middleware.AuthMiddleware())
	{
		requests.GET("", middleware.RBACAuthorize(rbacService, "leave_request", "read_all"), handler.GetAll)
		requests.GET("/mine", handler.GetMine)
		requests.GET("/:id", handler.GetById)
		requests.POST("",
			middleware.RBACAuthorize(rbacService, "leave_request", "create"),
			middleware.Idempotency(redisClient),
			handler.Create,
		)

		requests.POST("/:id/levels/:levelId/approve",
			middleware.RBACAuthorize(rbacService, "leave_request", "decide"),
			middleware.Idempotency(redisClient),
			handler.Approve,
		)
		requests.POST("/:id/levels/:levelId/reject",
			middleware.RBACAuthorize(rbacService, "leave_request", "decide"),
			middleware.Idempotency(redisClient),
			handler.Reject,
		)
		requests.POST("/:id/cancel", handler.Cancel)
		requests.POST("/:id/verification",
			middleware.RBACAuthorize(rbacService, "leave_request", "verify"),
			handler.Verify,
		)
	}
}
