package salarygrade

import (
	"context"
	"database/sql"

	"go-payroll/internal/shared/dbutil"
	"go-payroll/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=salary_grade_repo.go -destination=mock/salary_grade_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	FindActiveByLevel(ctx context.Context, companyID string, level string) (*SalaryGrade, error)
	FindActiveByID(ctx context.Context, companyID string, id string) (*SalaryGrade, error)
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

func (r *repository) FindActiveByLevel(ctx context.Context, companyID string, level string) (*SalaryGrade, error) {
	var grade SalaryGrade
	err := r.activeGrades(ctx, companyID).
		First(&grade, "level = ?", level).Error
	if err != nil {
		return nil, err
	}
	return &grade, nil
}

func (r *repository) FindActiveByID(ctx context.Context, companyID string, id string) (*SalaryGrade, error) {
	var grade SalaryGrade
	err := r.activeGrades(ctx, companyID).
		First(&grade, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &grade, nil
}

func (r *repository) activeGrades(ctx context.Context, companyID string) *gorm.DB {
	return dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		Where("is_active = ?", true).
		Preload("Components", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, name ASC")
		})
}
