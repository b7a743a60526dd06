package payrollerrors

import (
	"net/http"

	"go-payroll/internal/shared/apperror"
)

// Validation errors.
var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrInvalidPayrollID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid payroll id",
		http.StatusBadRequest,
	)
	ErrInvalidFrequency = apperror.New(
		apperror.CodeInvalidInput,
		"invalid pay frequency, expected weekly, biweekly, monthly, quarterly or annual",
		http.StatusBadRequest,
	)
	ErrInvalidPeriod = apperror.New(
		apperror.CodeInvalidInput,
		"invalid period, month must be 1-12 and year 2000-2100",
		http.StatusBadRequest,
	)
	ErrInvalidScope = apperror.New(
		apperror.CodeInvalidInput,
		"invalid batch scope",
		http.StatusBadRequest,
	)
	ErrInvalidStatusValue = apperror.New(
		apperror.CodeInvalidInput,
		"unknown payroll status",
		http.StatusBadRequest,
	)
	ErrInvalidPaymentMethod = apperror.New(
		apperror.CodeInvalidInput,
		"invalid payment method",
		http.StatusBadRequest,
	)
)

// Configuration errors.
var (
	ErrNoGradeAssigned = apperror.New(
		apperror.CodeConfiguration,
		"employee has no salary grade assigned",
		http.StatusUnprocessableEntity,
	)
	ErrNoActiveGradeForLevel = apperror.New(
		apperror.CodeConfiguration,
		"no active salary grade for the employee's grade level",
		http.StatusUnprocessableEntity,
	)
	ErrMissingDeductionConfig = apperror.New(
		apperror.CodeConfiguration,
		"deduction configuration is incomplete",
		http.StatusUnprocessableEntity,
	)
	ErrCalculation = apperror.New(
		apperror.CodeConfiguration,
		"payroll calculation failed",
		http.StatusUnprocessableEntity,
	)
)

// State errors.
var (
	ErrDuplicatePeriod = apperror.New(
		apperror.CodeConflict,
		"payroll already exists for this employee, period and frequency",
		http.StatusConflict,
	)
	ErrInvalidTransition = apperror.New(
		apperror.CodeInvalidState,
		"invalid payroll status transition",
		http.StatusConflict,
	)
	ErrInvalidStatus = apperror.New(
		apperror.CodeInvalidState,
		"payroll is not in a status that allows this operation",
		http.StatusConflict,
	)
	ErrPeriodLocked = apperror.New(
		apperror.CodeConflict,
		"payroll for this employee and period is being created by another request",
		http.StatusConflict,
	)
	ErrPaymentManaged = apperror.New(
		apperror.CodeInvalidState,
		"payment statuses are changed through the payment operations",
		http.StatusConflict,
	)
	ErrReferenceConflict = apperror.New(
		apperror.CodeConflict,
		"payment reference already in use, retry the request",
		http.StatusConflict,
	)
)

// Lookup errors.
var (
	ErrPayrollNotFound = apperror.New(
		apperror.CodeNotFound,
		"payroll not found",
		http.StatusNotFound,
	)
	ErrPaymentNotFound = apperror.New(
		apperror.CodeNotFound,
		"payment not found",
		http.StatusNotFound,
	)
	ErrBatchNotFound = apperror.New(
		apperror.CodeNotFound,
		"payroll batch not found",
		http.StatusNotFound,
	)
	ErrUnknownDepartment = apperror.New(
		apperror.CodeNotFound,
		"department not found",
		http.StatusNotFound,
	)
	ErrUnknownEmployee = apperror.New(
		apperror.CodeNotFound,
		"employee not found",
		http.StatusNotFound,
	)
	ErrEmployeeInactive = apperror.New(
		apperror.CodeInvalidState,
		"employee is not active",
		http.StatusConflict,
	)
)
