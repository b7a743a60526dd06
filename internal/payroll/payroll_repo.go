package payroll

import (
	"context"
	"database/sql"

	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/shared/dbutil"
	"go-payroll/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=payroll_repo.go -destination=mock/payroll_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, record *PayrollRecord) error
	FindByIDAndCompany(ctx context.Context, companyID string, id string) (*PayrollRecord, error)
	FindByPaymentReference(ctx context.Context, companyID string, reference string) (*PayrollRecord, error)
	ExistsForPeriod(ctx context.Context, companyID string, employeeID string, period Period) (bool, error)
	// Update persists record only if its stored status still equals expected.
	Update(ctx context.Context, record *PayrollRecord, expected Status) error
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

func (r *repository) Create(ctx context.Context, record *PayrollRecord) error {
	return mapRepositoryError(dbutil.Conn(ctx, r.db, r.tx).Create(record).Error)
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*PayrollRecord, error) {
	var record PayrollRecord
	err := dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		First(&record, "id = ?", id).Error
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return &record, nil
}

func (r *repository) FindByPaymentReference(ctx context.Context, companyID string, reference string) (*PayrollRecord, error) {
	var record PayrollRecord
	err := dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		Where("payment ->> 'reference' = ?", reference).
		First(&record).Error
	if err != nil {
		return nil, mapRepositoryError(err)
	}
	return &record, nil
}

func (r *repository) ExistsForPeriod(ctx context.Context, companyID string, employeeID string, period Period) (bool, error) {
	var count int64
	err := dbutil.Conn(ctx, r.db, r.tx).
		Model(&PayrollRecord{}).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ? AND month = ? AND year = ? AND frequency = ?",
			employeeID, period.Month, period.Year, period.Frequency).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) Update(ctx context.Context, record *PayrollRecord, expected Status) error {
	result := dbutil.Conn(ctx, r.db, r.tx).
		Model(record).
		Where("company_id = ? AND status = ?", record.CompanyID, expected).
		Select("*").
		Omit("id", "company_id", "employee_id", "created_at", "created_by").
		Updates(record)
	if result.Error != nil {
		return mapRepositoryError(result.Error)
	}
	if result.RowsAffected == 0 {
		return payrollerrors.ErrInvalidStatus
	}
	return nil
}
