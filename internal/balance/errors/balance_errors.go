package balanceerrors

import (
	"fmt"
	"net/http"

	"leaveflow/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrInvalidDays = apperror.New(
		apperror.CodeInvalidInput,
		"days must be greater than zero",
		http.StatusBadRequest,
	)
	ErrBalanceNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave balance not found for employee, leave type and year",
		http.StatusNotFound,
	)
)

// InsufficientBalance reports the requested vs available amounts so the
// caller can show them.
func InsufficientBalance(requested, available int) *apperror.AppError {
	return apperror.New(
		apperror.CodeInsufficientBalance,
		fmt.Sprintf("insufficient balance: requested %d day(s), %d available", requested, available),
		http.StatusUnprocessableEntity,
	)
}
