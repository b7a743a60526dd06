package payroll

import (
	"errors"
	"strings"

	payrollerrors "go-payroll/internal/payroll/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	constraintPayrollPeriod    = "uq_payroll_period"
	constraintPaymentReference = "uq_payment_reference"
)

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return payrollerrors.ErrPayrollNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case constraintPayrollPeriod:
			return payrollerrors.ErrDuplicatePeriod
		case constraintPaymentReference:
			return payrollerrors.ErrReferenceConflict
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key value") {
		switch {
		case strings.Contains(errMsg, constraintPayrollPeriod):
			return payrollerrors.ErrDuplicatePeriod
		case strings.Contains(errMsg, constraintPaymentReference):
			return payrollerrors.ErrReferenceConflict
		}
	}

	return err
}
