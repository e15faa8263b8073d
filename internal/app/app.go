package app

import (
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"leaveflow/internal/escalation"
	"leaveflow/internal/shared/connection"
)

// BuildApp wires infrastructure and modules into the router and returns the
// escalation scheduler so the entrypoint can stop it on shutdown.
func BuildApp(router *gin.Engine) (*escalation.Scheduler, error) {
	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}

	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return nil, err
	}

	scheduler, err := registerModules(router, sqlDB, gormDB, redisClient)
	if err != nil {
		return nil, err
	}

	scheduler.Start()
	zap.L().Info("application wired")
	return scheduler, nil
}
