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

//go:generate mockgen -source=payroll_payment_repo.go -destination=mock/payroll_payment_repo_mock.go -package=mock
type PaymentRepository interface {
	WithTx(tx *sql.Tx) PaymentRepository
	Create(ctx context.Context, payment *Payment) error
	FindPendingByPayroll(ctx context.Context, companyID string, payrollID string) (*Payment, error)
	ListByPayroll(ctx context.Context, companyID string, payrollID string) ([]Payment, error)
	// Finalize moves a pending entry to its final status.
	Finalize(ctx context.Context, payment *Payment) error
}

type paymentRepository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) WithTx(tx *sql.Tx) PaymentRepository {
	return &paymentRepository{db: r.db, tx: tx}
}

func (r *paymentRepository) Create(ctx context.Context, payment *Payment) error {
	return mapRepositoryError(dbutil.Conn(ctx, r.db, r.tx).Create(payment).Error)
}

func (r *paymentRepository) FindPendingByPayroll(ctx context.Context, companyID string, payrollID string) (*Payment, error) {
	var payment Payment
	err := dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		Where("payroll_id = ? AND status = ?", payrollID, PaymentPending).
		Order("created_at DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, payrollerrors.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) ListByPayroll(ctx context.Context, companyID string, payrollID string) ([]Payment, error) {
	var payments []Payment
	err := dbutil.Conn(ctx, r.db, r.tx).
		Scopes(tenant.Scope(companyID)).
		Where("payroll_id = ?", payrollID).
		Order("created_at ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) Finalize(ctx context.Context, payment *Payment) error {
	result := dbutil.Conn(ctx, r.db, r.tx).
		Model(&Payment{}).
		Where("id = ? AND status = ?", payment.ID, PaymentPending).
		Updates(map[string]any{
			"status":       payment.Status,
			"remarks":      payment.Remarks,
			"processed_by": payment.ProcessedBy,
			"processed_at": payment.ProcessedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return payrollerrors.ErrInvalidStatus
	}
	return nil
}
