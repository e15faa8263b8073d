package lterrors

import (
	"net/http"

	"leaveflow/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrLeaveTypeNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave type not found",
		http.StatusNotFound,
	)
	ErrCarryForwardCapRequired = apperror.New(
		apperror.CodeInvalidInput,
		"max_carry_forward is required when carry forward is enabled",
		http.StatusBadRequest,
	)
)
