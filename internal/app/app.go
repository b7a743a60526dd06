package app

import (
	"context"
	"errors"

	"go-payroll/internal/audit"
	"go-payroll/internal/rbac"
	"go-payroll/internal/shared/config"
	"go-payroll/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// App holds what the API process needs after the router is built.
type App struct {
	Trail   audit.Trail
	closers []func() error
}

// Close releases the database and redis connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func BuildApp(router *gin.Engine, cfg *config.Config) (*App, error) {
	logger := zap.L().Named("app")

	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	// 1. Setup Infrastructure
	gormDB, err := connection.ConnectGORMWithRetry(cfg.Database)
	if err != nil {
		return nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}
	a := &App{closers: []func() error{sqlDB.Close}}

	redisClient, err := connection.ConnectRedisWithRetry(cfg.Redis.Addr, cfg.Database.MaxRetries)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, redisClient.Close)

	// 2. Schema
	rbacRepo := rbac.NewRepository(gormDB)
	if err := migrate(context.Background(), gormDB, rbacRepo); err != nil {
		_ = a.Close()
		return nil, err
	}
	logger.Info("schema migrated")

	a.Trail = newTrail(gormDB, logger)

	// 3. Register Modules & Routes
	if err := registerModules(router, cfg, sqlDB, gormDB, redisClient, rbacRepo, a.Trail, logger); err != nil {
		_ = a.Close()
		return nil, err
	}

	return a, nil
}
