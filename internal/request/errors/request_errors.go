package requesterrors

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
	ErrInvalidDateFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid date format, expected YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrInvalidDateRange = apperror.New(
		apperror.CodeInvalidInput,
		"start_date must be before or equal end_date",
		http.StatusBadRequest,
	)
	ErrSelectedDatesOutsideRange = apperror.New(
		apperror.CodeInvalidInput,
		"selected dates must fall within the request date range",
		http.StatusBadRequest,
	)
	ErrZeroWorkingDays = apperror.New(
		apperror.CodeInvalidInput,
		"request covers no working days",
		http.StatusBadRequest,
	)
	ErrLeaveTypeNotFound = apperror.New(
		apperror.CodeInvalidInput,
		"leave type not found",
		http.StatusBadRequest,
	)
	ErrRequestNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave request not found",
		http.StatusNotFound,
	)
	ErrLevelNotFound = apperror.New(
		apperror.CodeNotFound,
		"approval level not found",
		http.StatusNotFound,
	)
	ErrRequestOverlap = apperror.New(
		apperror.CodeConflict,
		"leave already exists in overlapping period",
		http.StatusConflict,
	)
	ErrNotOwnRequest = apperror.New(
		apperror.CodeForbidden,
		"requests can only be created for yourself",
		http.StatusForbidden,
	)
	ErrNotAssignedApprover = apperror.New(
		apperror.CodeForbidden,
		"you are not the assigned approver for this level",
		http.StatusForbidden,
	)
	ErrNotRequester = apperror.New(
		apperror.CodeForbidden,
		"only the requester may cancel this request",
		http.StatusForbidden,
	)
	ErrNotAdminCanceller = apperror.New(
		apperror.CodeForbidden,
		"your role cannot cancel requests administratively",
		http.StatusForbidden,
	)
	ErrNotVerifier = apperror.New(
		apperror.CodeForbidden,
		"your role cannot verify leave documents",
		http.StatusForbidden,
	)
	ErrRequestTerminal = apperror.New(
		apperror.CodeConflict,
		"request is already in a terminal state",
		http.StatusConflict,
	)
	ErrLevelAlreadyDecided = apperror.New(
		apperror.CodeConflict,
		"approval level has already been decided",
		http.StatusConflict,
	)
	ErrVerificationPending = apperror.New(
		apperror.CodeInvalidState,
		"request is awaiting HR document verification",
		http.StatusConflict,
	)
	ErrVerificationNotPending = apperror.New(
		apperror.CodeInvalidState,
		"request has no pending document verification",
		http.StatusConflict,
	)
	ErrLeaveAlreadyStarted = apperror.New(
		apperror.CodeInvalidState,
		"an approved leave that has started cannot be cancelled",
		http.StatusConflict,
	)
	ErrRejectionCommentRequired = apperror.New(
		apperror.CodeInvalidInput,
		"comments are required when rejecting",
		http.StatusBadRequest,
	)
	ErrCancelReasonRequired = apperror.New(
		apperror.CodeInvalidInput,
		"reason is required for administrative cancellation",
		http.StatusBadRequest,
	)
	ErrPeerApproverRequired = apperror.New(
		apperror.CodeInvalidInput,
		"executive requests must name a peer executive approver",
		http.StatusBadRequest,
	)
	ErrPeerApproverInvalid = apperror.New(
		apperror.CodeInvalidInput,
		"peer approver must be another executive",
		http.StatusBadRequest,
	)
	ErrNoApproverAvailable = apperror.New(
		apperror.CodeInvalidState,
		"no approver could be determined for this request",
		http.StatusUnprocessableEntity,
	)
	ErrLevelSuperseded = apperror.New(
		apperror.CodeConflict,
		"approval level has been escalated to another approver",
		http.StatusConflict,
	)
	ErrLevelNotActive = apperror.New(
		apperror.CodeInvalidState,
		"approval level is not active yet",
		http.StatusConflict,
	)
)
