package deduction

import (
	"context"
	"database/sql"
	"time"

	"go-payroll/internal/shared/dbutil"
	"go-payroll/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=deduction_repo.go -destination=mock/deduction_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*Deduction, error)
	FindApplicable(ctx context.Context, companyID, employeeID, departmentID string, start, end time.Time) ([]Deduction, error)
	FindAssignment(ctx context.Context, companyID, deductionID, employeeID string) (*DeductionAssignment, error)
	SaveAssignment(ctx context.Context, assignment *DeductionAssignment) error
	AppendHistory(ctx context.Context, entry *DeductionHistory) error
	ListHistory(ctx context.Context, companyID, deductionID string) ([]DeductionHistory, error)
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

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Deduction, error) {
	var d Deduction
	err := dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		First(&d, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// FindApplicable merges company-wide deductions, deductions scoped to the
// employee's department and deductions individually assigned to the employee.
// Period filtering beyond the effective window is left to AppliesInPeriod.
func (r *repository) FindApplicable(
	ctx context.Context,
	companyID, employeeID, departmentID string,
	start, end time.Time,
) ([]Deduction, error) {
	db := dbutil.Conn(ctx, r.db, r.tx)

	assigned := db.Model(&DeductionAssignment{}).
		Select("deduction_id").
		Where("employee_id = ? AND is_active = ?", employeeID, true)

	scopeFilter := db.Where("deductions.scope = ?", ScopeCompany).
		Or("deductions.id IN (?)", assigned)
	if departmentID != "" {
		scopeFilter = scopeFilter.Or("deductions.scope = ? AND deductions.department_id = ?", ScopeDepartment, departmentID)
	}

	var deductions []Deduction
	err := db.
		Scopes(tenant.ScopeTable("deductions", companyID)).
		Where("deductions.is_active = ?", true).
		Where("deductions.effective_date <= ?", end).
		Where("deductions.expiry_date IS NULL OR deductions.expiry_date >= ?", start).
		Where(scopeFilter).
		Order("deductions.kind ASC, deductions.name ASC, deductions.id ASC").
		Find(&deductions).Error
	return deductions, err
}

func (r *repository) FindAssignment(ctx context.Context, companyID, deductionID, employeeID string) (*DeductionAssignment, error) {
	var a DeductionAssignment
	err := dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		Where("deduction_id = ? AND employee_id = ?", deductionID, employeeID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) SaveAssignment(ctx context.Context, assignment *DeductionAssignment) error {
	return dbutil.Conn(ctx, r.db, r.tx).Save(assignment).Error
}

func (r *repository) AppendHistory(ctx context.Context, entry *DeductionHistory) error {
	return dbutil.Conn(ctx, r.db, r.tx).Create(entry).Error
}

func (r *repository) ListHistory(ctx context.Context, companyID, deductionID string) ([]DeductionHistory, error) {
	var entries []DeductionHistory
	err := dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		Where("deduction_id = ?", deductionID).
		Order("created_at ASC").
		Find(&entries).Error
	return entries, err
}
