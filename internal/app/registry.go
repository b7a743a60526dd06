package app

import (
	"database/sql"
	"net/http"

	"go-payroll/internal/audit"
	"go-payroll/internal/compensation"
	"go-payroll/internal/deduction"
	"go-payroll/internal/department"
	"go-payroll/internal/employee"
	"go-payroll/internal/mail"
	"go-payroll/internal/messaging/kafka"
	"go-payroll/internal/middleware"
	"go-payroll/internal/notification"
	"go-payroll/internal/payroll"
	"go-payroll/internal/rbac"
	"go-payroll/internal/rbac/infra"
	"go-payroll/internal/salarygrade"
	"go-payroll/internal/shared/config"
	"go-payroll/internal/shared/counter"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newFanout builds the in-process consumer of payroll events. The API uses
// it directly when kafka is not configured; the consumer process feeds it
// from the topics.
func newFanout(cfg *config.Config, gormDB *gorm.DB, trail audit.Trail, logger *zap.Logger) *notification.Fanout {
	var mailer mail.Dispatcher
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPDispatcher(cfg.SMTP, logger.Named("mail"))
	}
	return notification.NewFanout(
		trail,
		notification.NewRepository(gormDB),
		employee.NewRepository(gormDB),
		mailer,
		logger.Named("notification.fanout"),
	)
}

func newTrail(gormDB *gorm.DB, logger *zap.Logger) audit.Trail {
	return audit.Multi(audit.NewStore(gormDB), audit.NewLogTrail(logger.Named("audit")))
}

func registerModules(
	router *gin.Engine,
	cfg *config.Config,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	rbacRepo rbac.Repository,
	trail audit.Trail,
	logger *zap.Logger,
) error {
	// --- Repositories ---
	employeeRepo := employee.NewRepository(gormDB)
	departmentRepo := department.NewRepository(gormDB)
	gradeRepo := salarygrade.NewRepository(gormDB)
	compensationRepo := compensation.NewRepository(gormDB)
	deductionRepo := deduction.NewRepository(gormDB)
	counterRepo := counter.NewRepository(gormDB)

	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(rbacRepo, enforcer, logger)

	// --- Payroll ---
	deps := payroll.Deps{
		DB:          db,
		Repo:        payroll.NewRepository(gormDB),
		Batches:     payroll.NewBatchRepository(gormDB),
		Payments:    payroll.NewPaymentRepository(gormDB),
		Employees:   employeeRepo,
		Departments: departmentRepo,
		Resolver:    payroll.NewSalaryResolver(gradeRepo, compensationRepo, deductionRepo, logger.Named("payroll.resolver")),
		Counter:     counterRepo,
		Locker:      payroll.NewRedisPeriodLocker(rdb, cfg.Payroll.LockTTL, logger.Named("payroll.locker")),
		Authorizer:  rbacService,
		Concurrency: cfg.Payroll.BatchConcurrency,
		Logger:      logger,
	}
	if cfg.Kafka.Broker != "" {
		deps.Outbox = kafka.NewOutboxRepository(db)
	} else {
		deps.Dispatcher = newFanout(cfg, gormDB, trail, logger)
	}

	// --- Services ---
	payrollService := payroll.NewService(deps)
	batchProcessor := payroll.NewBatchProcessor(deps)
	paymentManager := payroll.NewPaymentManager(deps)
	deductionService := deduction.NewService(db, deductionRepo, employeeRepo, logger.Named("deduction.service"))

	// --- Handlers ---
	payrollHandler := payroll.NewHandlerWithRedis(payrollService, batchProcessor, paymentManager, rdb)
	deductionHandler := deduction.NewHandler(deductionService)

	// --- Routes Registration ---
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := router.Group("/api/v1")
	api.Use(middleware.ContextLogger(logger), middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		payroll.RegisterRoutes(api, payrollHandler, rbacService, rdb)
		deduction.RegisterRoutes(api, deductionHandler, rbacService)
	}

	return nil
}
