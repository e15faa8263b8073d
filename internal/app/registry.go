package app

import (
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"leaveflow/internal/audit"
	"leaveflow/internal/balance"
	"leaveflow/internal/document"
	"leaveflow/internal/employee"
	"leaveflow/internal/escalation"
	"leaveflow/internal/leavetype"
	"leaveflow/internal/messaging/kafka"
	"leaveflow/internal/middleware"
	"leaveflow/internal/rbac"
	"leaveflow/internal/rbac/infra"
	"leaveflow/internal/request"
	"leaveflow/internal/shared/counter"
	"leaveflow/internal/signature"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) (*escalation.Scheduler, error) {
	// --- Repositories ---
	rbacRepo := rbac.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	leaveTypeRepo := leavetype.NewRepository(gormDB)
	balanceRepo := balance.NewRepository(gormDB, db)
	requestRepo := request.NewRepository(gormDB, db)
	documentRepo := document.NewRepository(gormDB, db)
	signatureRepo := signature.NewRepository(gormDB)
	counterRepo := counter.NewRepository(db)
	outboxRepo := kafka.NewOutboxRepository(db)

	recorder := audit.NewRecorder(gormDB)
	notifier := kafka.NewNotifier(outboxRepo)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer(filepath.Join("internal", "rbac", "infra", "model.conf"))
	if err != nil {
		return nil, err
	}
	rbacService := rbac.NewService(rbacRepo, enforcer)

	// --- Services ---
	leaveTypeService := leavetype.NewService(leaveTypeRepo)
	ledger := balance.NewLedger(db, balanceRepo, leaveTypeRepo, recorder)
	chainBuilder := request.NewChainBuilder(employeeRepo)
	requestService := request.NewService(
		db, requestRepo, employeeRepo, leaveTypeRepo,
		ledger, chainBuilder, request.NewWeekdayCalculator(),
		counterRepo, notifier, recorder,
	)
	documentService := document.NewService(
		db, documentRepo, requestRepo, employeeRepo,
		signatureRepo, notifier, recorder,
	)

	evaluator := escalation.NewEvaluator(
		db, requestRepo, employeeRepo, notifier, recorder,
		envDuration("ESCALATION_THRESHOLD", 72*time.Hour),
	)
	scheduler := escalation.NewScheduler(
		evaluator,
		envDuration("ESCALATION_SWEEP_INTERVAL", 15*time.Minute),
	)

	// --- Handlers ---
	leaveTypeHandler := leavetype.NewHandler(leaveTypeService)
	balanceHandler := balance.NewHandler(ledger)
	requestHandler := request.NewHandler(requestService)
	documentHandler := document.NewHandler(documentService)
	escalationHandler := escalation.NewHandler(scheduler)

	// --- Routes Registration ---
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimitByIP(rate.Limit(envInt("RATE_LIMIT_RPS", 20)), envInt("RATE_LIMIT_BURST", 40)))

	api := router.Group("/api/v1")
	{
		leavetype.RegisterRoutes(api, leaveTypeHandler, rbacService)
		balance.RegisterRoutes(api, balanceHandler, rbacService)
		request.RegisterRoutes(api, requestHandler, rbacService, rdb)
		document.RegisterRoutes(api, documentHandler, rbacService)
		escalation.RegisterRoutes(api, escalationHandler, rbacService)
	}

	return scheduler, nil
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
