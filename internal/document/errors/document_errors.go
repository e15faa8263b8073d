package documenterrors

import (
	"net/http"

	"leaveflow/internal/shared/apperror"
)

var (
	ErrRequestNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave request not found",
		http.StatusNotFound,
	)
	ErrDocumentNotFound = apperror.New(
		apperror.CodeNotFound,
		"no document has been generated for this request",
		http.StatusNotFound,
	)
	ErrRequestNotApproved = apperror.New(
		apperror.CodeInvalidState,
		"documents can only be generated for approved requests",
		http.StatusConflict,
	)
)
