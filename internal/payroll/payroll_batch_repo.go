package payroll

import (
	"context"
	"database/sql"
	"errors"

	payrollerrors "go-payroll/internal/payroll/errors"
	"go-payroll/internal/shared/dbutil"
	"go-payroll/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=payroll_batch_repo.go -destination=mock/payroll_batch_repo_mock.go -package=mock
type BatchRepository interface {
	WithTx(tx *sql.Tx) BatchRepository
	Create(ctx context.Context, summary *BatchSummary) error
	FindByIDAndCompany(ctx context.Context, companyID string, id string) (*BatchSummary, error)
}

type batchRepository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) WithTx(tx *sql.Tx) BatchRepository {
	return &batchRepository{db: r.db, tx: tx}
}

func (r *batchRepository) Create(ctx context.Context, summary *BatchSummary) error {
	return dbutil.Conn(ctx, r.db, r.tx).Create(summary).Error
}

func (r *batchRepository) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*BatchSummary, error) {
	var summary BatchSummary
	err := dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		First(&summary, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, payrollerrors.ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
