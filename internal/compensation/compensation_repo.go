package compensation

import (
	"context"
	"database/sql"
	"time"

	"go-payroll/internal/shared/dbutil"
	"go-payroll/internal/tenant"

	"gorm.io/gorm"
)

// Target identifies who an allowance lookup is for.
type Target struct {
	EmployeeID   string
	DepartmentID string
	GradeLevel   string
}

//go:generate mockgen -source=compensation_repo.go -destination=mock/compensation_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindApplicableAllowances(ctx context.Context, companyID string, target Target, start, end time.Time) ([]Allowance, error)
	FindApprovedBonuses(ctx context.Context, companyID, employeeID string, start, end time.Time) ([]Bonus, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) FindApplicableAllowances(
	ctx context.Context,
	companyID string,
	target Target,
	start, end time.Time,
) ([]Allowance, error) {
	var allowances []Allowance

	db := dbutil.Conn(ctx, r.db, r.tx)
	scopeFilter := db.Where("scope = ?", ScopeCompany)
	if target.DepartmentID != "" {
		scopeFilter = scopeFilter.Or("scope = ? AND department_id = ?", ScopeDepartment, target.DepartmentID)
	}
	if target.GradeLevel != "" {
		scopeFilter = scopeFilter.Or("scope = ? AND grade_level = ?", ScopeGrade, target.GradeLevel)
	}
	scopeFilter = scopeFilter.Or("scope = ? AND employee_id = ?", ScopeIndividual, target.EmployeeID)

	err := db.
		Scopes(tenant.Scope(companyID)).
		Where("is_active = ? AND status = ?", true, ApprovalApproved).
		Where("effective_from <= ?", end).
		Where("effective_to IS NULL OR effective_to >= ?", start).
		Where(scopeFilter).
		Order("effective_from ASC, name ASC, id ASC").
		Find(&allowances).Error
	return allowances, err
}

func (r *repository) FindApprovedBonuses(
	ctx context.Context,
	companyID, employeeID string,
	start, end time.Time,
) ([]Bonus, error) {
	var bonuses []Bonus
	err := dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ? AND status = ?", employeeID, ApprovalApproved).
		Where("payment_date BETWEEN ? AND ?", start, end).
		Order("payment_date ASC, id ASC").
		Find(&bonuses).Error
	return bonuses, err
}
