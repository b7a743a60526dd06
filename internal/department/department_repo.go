package department

import (
	"context"
	"database/sql"

	"go-payroll/internal/shared/dbutil"
	"go-payroll/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=department_repo.go -destination=mock/department_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Department, error)
	// Exists reports whether an active department with id belongs to the company.
	Exists(ctx context.Context, companyID string, id string) (bool, error)
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

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*Department, error) {
	var dept Department
	err := dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		First(&dept, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *repository) Exists(ctx context.Context, companyID string, id string) (bool, error) {
	var count int64
	err := dbutil.Conn(ctx, r.db, r.tx).
		Model(&Department{}).
		Scopes(tenant.Scope(companyID)).
		Where("id = ? AND is_active = ?", id, true).
		Count(&count).Error
	return count > 0, err
}
