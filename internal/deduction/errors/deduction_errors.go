package deductionerrors

import (
	"net/http"

	"go-payroll/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidDeductionID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid deduction id",
		http.StatusBadRequest,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrDeductionNotFound = apperror.New(
		apperror.CodeNotFound,
		"deduction not found",
		http.StatusNotFound,
	)
	ErrEmployeeNotFound = apperror.New(
		apperror.CodeNotFound,
		"employee not found",
		http.StatusNotFound,
	)
	ErrNotAssignable = apperror.New(
		apperror.CodeInvalidState,
		"only department or individual deductions can be assigned",
		http.StatusConflict,
	)
	ErrDeductionInactive = apperror.New(
		apperror.CodeInvalidState,
		"deduction is not active",
		http.StatusConflict,
	)
	ErrAlreadyAssigned = apperror.New(
		apperror.CodeConflict,
		"deduction is already assigned to this employee",
		http.StatusConflict,
	)
	ErrNotAssigned = apperror.New(
		apperror.CodeNotFound,
		"deduction is not assigned to this employee",
		http.StatusNotFound,
	)
)
