package employee

import (
	"context"
	"database/sql"

	"go-payroll/internal/shared/dbutil"
	"go-payroll/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=employee_repo.go -destination=mock/employee_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Employee, error)
	FindActiveByCompany(ctx context.Context, companyID string) ([]Employee, error)
	FindActiveByDepartment(ctx context.Context, companyID string, departmentID string) ([]Employee, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{
		db: r.db,
		tx: tx,
	}
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Employee, error) {
	var empl Employee
	err := dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		First(&empl, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &empl, nil
}

// FindActiveByCompany returns every active employee ordered by employee
// number so batch outcome lists come out in a stable order.
func (r *repository) FindActiveByCompany(ctx context.Context, companyID string) ([]Employee, error) {
	var empls []Employee
	err := dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		Where("employment_status = ?", StatusActive).
		Order("employee_number ASC, id ASC").
		Find(&empls).Error
	return empls, err
}

func (r *repository) FindActiveByDepartment(ctx context.Context, companyID string, departmentID string) ([]Employee, error) {
	var empls []Employee
	err := dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		Where("department_id = ?", departmentID).
		Where("employment_status = ?", StatusActive).
		Order("employee_number ASC, id ASC").
		Find(&empls).Error
	return empls, err
}
