package app

import (
	"context"
	"fmt"

	"go-payroll/internal/audit"
	"go-payroll/internal/compensation"
	"go-payroll/internal/deduction"
	"go-payroll/internal/department"
	"go-payroll/internal/employee"
	"go-payroll/internal/notification"
	"go-payroll/internal/payroll"
	"go-payroll/internal/rbac"
	"go-payroll/internal/salarygrade"

	"gorm.io/gorm"
)

// Tables written through raw SQL rather than gorm models.
var rawDDL = []string{
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id UUID PRIMARY KEY,
		request_id VARCHAR(64),
		aggregate_type VARCHAR(40) NOT NULL,
		aggregate_id VARCHAR(64) NOT NULL,
		event_type VARCHAR(80) NOT NULL,
		topic VARCHAR(120) NOT NULL,
		payload JSONB NOT NULL,
		status VARCHAR(20) NOT NULL,
		retry_count INT NOT NULL DEFAULT 0,
		next_retry_at TIMESTAMPTZ,
		error_message VARCHAR(500),
		processed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_events_pending ON outbox_events (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS company_counters (
		company_id UUID NOT NULL,
		counter_type VARCHAR(40) NOT NULL,
		last_value BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (company_id, counter_type)
	)`,
}

func migrate(ctx context.Context, db *gorm.DB, rbacRepo rbac.Repository) error {
	err := db.WithContext(ctx).AutoMigrate(
		&department.Department{},
		&employee.Employee{},
		&salarygrade.SalaryGrade{},
		&salarygrade.GradeComponent{},
		&compensation.Allowance{},
		&compensation.Bonus{},
		&deduction.Deduction{},
		&deduction.DeductionAssignment{},
		&deduction.DeductionHistory{},
		&payroll.PayrollRecord{},
		&payroll.BatchSummary{},
		&payroll.Payment{},
		&notification.Notification{},
		&audit.AuditLog{},
		&rbac.Role{},
		&rbac.Permission{},
		&rbac.EmployeeRole{},
		&rbac.RolePermission{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, stmt := range rawDDL {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("raw ddl: %w", err)
		}
	}

	return rbacRepo.SeedPermissions(ctx, rbac.Catalog)
}
