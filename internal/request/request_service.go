package request

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leaveflow/internal/audit"
	"leaveflow/internal/balance"
	"leaveflow/internal/domain"
	"leaveflow/internal/employee"
	"leaveflow/internal/events"
	"leaveflow/internal/leavetype"
	"leaveflow/internal/messaging/kafka"
	requesterrors "leaveflow/internal/request/errors"
	"leaveflow/internal/shared/counter"
)

const dateLayout = "2006-01-02"

//go:generate mockgen -source=request_service.go -destination=mock/request_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, companyID, actorID string, req CreateRequest) (*RequestResponse, error)
	Approve(ctx context.Context, companyID, actorID, requestID, levelID string, req DecisionRequest) (*RequestResponse, error)
	Reject(ctx context.Context, companyID, actorID, requestID, levelID string, req DecisionRequest) (*RequestResponse, error)
	Cancel(ctx context.Context, companyID, actorID, requestID string, req CancelRequest) (*RequestResponse, error)
	Verify(ctx context.Context, companyID, actorID, requestID string, req VerificationRequest) (*RequestResponse, error)
	GetByID(ctx context.Context, companyID, requestID string) (*RequestResponse, error)
	GetAllByCompany(ctx context.Context, companyID string) ([]RequestResponse, error)
	GetAllByEmployee(ctx context.Context, companyID, employeeID string) ([]RequestResponse, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	employees employee.Repository
	types     leavetype.Repository
	ledger    balance.Ledger
	chain     *ChainBuilder
	calendar  WorkingDayCalculator
	counters  counter.Repository
	notifier  *kafka.Notifier
	recorder  audit.Recorder
	logger    *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	employees employee.Repository,
	types leavetype.Repository,
	ledger balance.Ledger,
	chain *ChainBuilder,
	calendar WorkingDayCalculator,
	counters counter.Repository,
	notifier *kafka.Notifier,
	recorder audit.Recorder,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("request.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("request.service")
	}
	return &service{
		db:        db,
		repo:      repo,
		employees: employees,
		types:     types,
		ledger:    ledger,
		chain:     chain,
		calendar:  calendar,
		counters:  counters,
		notifier:  notifier,
		recorder:  recorder,
		logger:    l,
	}
}

func (s *service) Create(ctx context.Context, companyID, actorID string, req CreateRequest) (*RequestResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return nil, requesterrors.ErrInvalidCompanyID
	}
	if actorID != req.EmployeeID {
		return nil, requesterrors.ErrNotOwnRequest
	}

	requester, err := s.employees.FindByIDAndCompany(ctx, companyID, req.EmployeeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, requesterrors.ErrInvalidEmployeeID
	}
	if err != nil {
		return nil, err
	}

	lt, err := s.types.FindByIDAndCompany(ctx, companyID, req.LeaveTypeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, requesterrors.ErrLeaveTypeNotFound
	}
	if err != nil {
		return nil, err
	}

	startDate, endDate, selectedDates, err := parsePeriod(req)
	if err != nil {
		return nil, err
	}

	workingDays := s.calendar.CountRange(startDate, endDate)
	if len(selectedDates) > 0 {
		workingDays = s.calendar.CountDates(selectedDates)
	}
	if workingDays == 0 {
		return nil, requesterrors.ErrZeroWorkingDays
	}

	overlap, err := s.repo.HasOverlappingPeriod(ctx, companyID, req.EmployeeID, startDate, endDate, nil)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, requesterrors.ErrRequestOverlap
	}

	// The ledger row for this (employee, type, year) may not exist yet; create
	// it before the reservation transaction so the FOR UPDATE lock finds it.
	if err := s.ledger.EnsureForYear(ctx, companyID, req.EmployeeID, requester.JoinDate, *lt, startDate.Year()); err != nil {
		return nil, err
	}

	plan, err := s.chain.Build(ctx, companyID, requester, req.PeerApproverID)
	if err != nil {
		return nil, err
	}

	verification := VerificationNotRequired
	if lt.RequiresVerification {
		verification = VerificationPending
	}

	now := time.Now().UTC()
	leaveReq := &LeaveRequest{
		ID:                 uuid.New(),
		CompanyID:          companyUUID,
		EmployeeID:         requester.ID,
		LeaveTypeID:        lt.ID,
		StartDate:          startDate,
		EndDate:            endDate,
		WorkingDays:        workingDays,
		Reason:             req.Reason,
		Status:             StatusPending,
		VerificationStatus: verification,
		CreatedBy:          requester.ID,
		CreatedAt:          now,
	}

	key := balance.Key{
		CompanyID:   companyID,
		EmployeeID:  req.EmployeeID,
		LeaveTypeID: req.LeaveTypeID,
		Year:        startDate.Year(),
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		qtx := s.repo.WithTx(tx)

		number, err := s.counters.WithTx(tx).GetNextValue(ctx, companyID, counter.TypeLeaveRequest)
		if err != nil {
			return err
		}
		leaveReq.RequestNumber = number

		if err := qtx.InsertRequest(ctx, leaveReq); err != nil {
			return err
		}

		days := make([]RequestDay, len(selectedDates))
		for i, d := range selectedDates {
			days[i] = RequestDay{ID: uuid.New(), RequestID: leaveReq.ID, Day: d}
		}
		if len(days) > 0 {
			if err := qtx.InsertDays(ctx, days); err != nil {
				return err
			}
		}

		for _, p := range plan {
			level := &ApprovalLevel{
				ID:         uuid.New(),
				RequestID:  leaveReq.ID,
				Ordinal:    p.Ordinal,
				ApproverID: p.Approver.ID,
				Status:     LevelPending,
			}
			// The first level's escalation clock only starts once the request
			// is actionable; a verification-gated request stays dormant.
			if p.Ordinal == 1 && verification != VerificationPending {
				at := now
				level.ActivatedAt = &at
			}
			if err := qtx.InsertLevel(ctx, level); err != nil {
				return err
			}
		}

		if err := s.ledger.ReserveInTx(ctx, tx, key, workingDays); err != nil {
			return err
		}

		return s.notifier.EnqueueInTx(ctx, tx, events.LeaveLifecycleEvent{
			EventType:   events.TypeChainCreated,
			RequestID:   leaveReq.ID.String(),
			CompanyID:   companyID,
			EmployeeID:  req.EmployeeID,
			RecipientID: plan[0].Approver.ID.String(),
			Ordinal:     1,
			OccurredAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, companyID, "REQUEST_CREATE", "leave_request", leaveReq.ID.String(), req.Reason, nil, leaveReq)
	s.logger.Info("leave request created",
		zap.String("request_id", leaveReq.ID.String()),
		zap.String("employee_id", req.EmployeeID),
		zap.Int64("request_number", leaveReq.RequestNumber),
		zap.Int("working_days", workingDays),
		zap.Int("levels", len(plan)),
	)

	return s.GetByID(ctx, companyID, leaveReq.ID.String())
}

func (s *service) Approve(ctx context.Context, companyID, actorID, requestID, levelID string, req DecisionRequest) (*RequestResponse, error) {
	return s.decide(ctx, companyID, actorID, requestID, levelID, LevelApproved, req)
}

func (s *service) Reject(ctx context.Context, companyID, actorID, requestID, levelID string, req DecisionRequest) (*RequestResponse, error) {
	if req.Comments == "" {
		return nil, requesterrors.ErrRejectionCommentRequired
	}
	return s.decide(ctx, companyID, actorID, requestID, levelID, LevelRejected, req)
}

func (s *service) decide(ctx context.Context, companyID, actorID, requestID, levelID, outcome string, req DecisionRequest) (*RequestResponse, error) {
	now := time.Now().UTC()

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		qtx := s.repo.WithTx(tx)

		leaveReq, err := qtx.LockRequest(ctx, companyID, requestID)
		if err != nil {
			return err
		}
		if leaveReq == nil {
			return requesterrors.ErrRequestNotFound
		}
		if leaveReq.VerificationStatus == VerificationPending {
			return requesterrors.ErrVerificationPending
		}

		level, err := qtx.LockLevel(ctx, requestID, levelID)
		if err != nil {
			return err
		}
		if level == nil {
			return requesterrors.ErrLevelNotFound
		}
		if level.Superseded() {
			return requesterrors.ErrLevelSuperseded
		}
		if level.ActivatedAt == nil {
			return requesterrors.ErrLevelNotActive
		}
		if level.ApproverID.String() != actorID {
			return requesterrors.ErrNotAssignedApprover
		}
		if level.Status != LevelPending {
			// Repeating the decision that already stands is a no-op, even
			// after the request finalized; flipping it is a conflict.
			if level.Status == outcome {
				return nil
			}
			return requesterrors.ErrLevelAlreadyDecided
		}
		if leaveReq.IsTerminal() {
			return requesterrors.ErrRequestTerminal
		}

		level.Status = outcome
		if req.Comments != "" {
			level.Comments = &req.Comments
		}
		level.SignaturePayload = req.Signature
		level.DecidedAt = &now
		if err := qtx.UpdateLevelDecision(ctx, level); err != nil {
			return err
		}

		if err := s.notifier.EnqueueInTx(ctx, tx, events.LeaveLifecycleEvent{
			EventType:   events.TypeApprovalDecided,
			RequestID:   requestID,
			CompanyID:   companyID,
			EmployeeID:  leaveReq.EmployeeID.String(),
			RecipientID: leaveReq.EmployeeID.String(),
			LevelID:     levelID,
			Ordinal:     level.Ordinal,
			Outcome:     outcome,
			OccurredAt:  now,
		}); err != nil {
			return err
		}

		key := balance.Key{
			CompanyID:   companyID,
			EmployeeID:  leaveReq.EmployeeID.String(),
			LeaveTypeID: leaveReq.LeaveTypeID.String(),
			Year:        leaveReq.StartDate.Year(),
		}

		if outcome == LevelRejected {
			return s.rejectInTx(ctx, tx, leaveReq, key, "superseded by rejection at level "+strconv.Itoa(level.Ordinal), now)
		}

		// Approval: wake the next ordinal, then finalize if nothing blocks.
		if err := qtx.ActivateLevels(ctx, requestID, level.Ordinal+1, now); err != nil {
			return err
		}
		blocking, err := qtx.CountBlockingLevels(ctx, requestID)
		if err != nil {
			return err
		}
		if blocking > 0 {
			return nil
		}

		leaveReq.Status = StatusApproved
		leaveReq.ApprovedAt = &now
		if err := qtx.UpdateRequestState(ctx, leaveReq); err != nil {
			return err
		}
		if err := s.ledger.CommitInTx(ctx, tx, key, leaveReq.WorkingDays); err != nil {
			return err
		}
		return s.notifier.EnqueueInTx(ctx, tx, events.LeaveLifecycleEvent{
			EventType:   events.TypeRequestApproved,
			RequestID:   requestID,
			CompanyID:   companyID,
			EmployeeID:  leaveReq.EmployeeID.String(),
			RecipientID: leaveReq.EmployeeID.String(),
			OccurredAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, companyID, "REQUEST_DECIDE", "leave_request", requestID, req.Comments, nil, map[string]string{
		"level_id": levelID,
		"outcome":  outcome,
	})
	return s.GetByID(ctx, companyID, requestID)
}

// rejectInTx finishes a request as REJECTED inside the caller's transaction:
// remaining pending levels are closed with a system comment and the reserved
// days go back to the ledger.
func (s *service) rejectInTx(ctx context.Context, tx *sql.Tx, leaveReq *LeaveRequest, key balance.Key, systemComment string, now time.Time) error {
	qtx := s.repo.WithTx(tx)

	leaveReq.Status = StatusRejected
	if err := qtx.UpdateRequestState(ctx, leaveReq); err != nil {
		return err
	}
	if _, err := qtx.RejectPendingLevels(ctx, leaveReq.ID.String(), systemComment, now); err != nil {
		return err
	}
	if err := s.ledger.ReleaseInTx(ctx, tx, key, leaveReq.WorkingDays, false); err != nil {
		return err
	}
	return s.notifier.EnqueueInTx(ctx, tx, events.LeaveLifecycleEvent{
		EventType:   events.TypeRequestRejected,
		RequestID:   leaveReq.ID.String(),
		CompanyID:   key.CompanyID,
		EmployeeID:  leaveReq.EmployeeID.String(),
		RecipientID: leaveReq.EmployeeID.String(),
		Reason:      systemComment,
		OccurredAt:  now,
	})
}

func (s *service) Verify(ctx context.Context, companyID, actorID, requestID string, req VerificationRequest) (*RequestResponse, error) {
	actor, err := s.employees.FindByIDAndCompany(ctx, companyID, actorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, requesterrors.ErrInvalidActorID
	}
	if err != nil {
		return nil, err
	}
	if !domain.Capabilities(actor.OrgRole()).CanVerifyDocuments {
		return nil, requesterrors.ErrNotVerifier
	}
	if req.Passed == nil {
		return nil, requesterrors.ErrVerificationNotPending
	}

	now := time.Now().UTC()
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		qtx := s.repo.WithTx(tx)

		leaveReq, err := qtx.LockRequest(ctx, companyID, requestID)
		if err != nil {
			return err
		}
		if leaveReq == nil {
			return requesterrors.ErrRequestNotFound
		}
		if leaveReq.IsTerminal() {
			return requesterrors.ErrRequestTerminal
		}
		if leaveReq.VerificationStatus != VerificationPending {
			return requesterrors.ErrVerificationNotPending
		}

		if *req.Passed {
			leaveReq.VerificationStatus = VerificationPassed
			if err := qtx.UpdateRequestState(ctx, leaveReq); err != nil {
				return err
			}
			// Passing the gate activates level 1, which also starts its
			// escalation clock.
			return qtx.ActivateLevels(ctx, requestID, 1, now)
		}

		leaveReq.VerificationStatus = VerificationFailed
		key := balance.Key{
			CompanyID:   companyID,
			EmployeeID:  leaveReq.EmployeeID.String(),
			LeaveTypeID: leaveReq.LeaveTypeID.String(),
			Year:        leaveReq.StartDate.Year(),
		}
		return s.rejectInTx(ctx, tx, leaveReq, key, "document verification failed", now)
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, companyID, "REQUEST_VERIFY", "leave_request", requestID, req.Comments, nil, map[string]bool{
		"passed": *req.Passed,
	})
	return s.GetByID(ctx, companyID, requestID)
}

func (s *service) Cancel(ctx context.Context, companyID, actorID, requestID string, req CancelRequest) (*RequestResponse, error) {
	actor, err := s.employees.FindByIDAndCompany(ctx, companyID, actorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, requesterrors.ErrInvalidActorID
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		qtx := s.repo.WithTx(tx)

		leaveReq, err := qtx.LockRequest(ctx, companyID, requestID)
		if err != nil {
			return err
		}
		if leaveReq == nil {
			return requesterrors.ErrRequestNotFound
		}
		// Cancelling twice is a no-op, not an error.
		if leaveReq.Status == StatusCancelled {
			return nil
		}
		if leaveReq.Status == StatusRejected {
			return requesterrors.ErrRequestTerminal
		}

		selfCancel := leaveReq.EmployeeID.String() == actorID
		if !selfCancel {
			if !domain.Capabilities(actor.OrgRole()).CanAdminCancel {
				return requesterrors.ErrNotAdminCanceller
			}
			if req.Reason == "" {
				return requesterrors.ErrCancelReasonRequired
			}
		}

		wasApproved := leaveReq.Status == StatusApproved
		if wasApproved {
			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			if !leaveReq.StartDate.After(today) {
				return requesterrors.ErrLeaveAlreadyStarted
			}
		}

		leaveReq.Status = StatusCancelled
		leaveReq.CancelledBy = &actor.ID
		if req.Reason != "" {
			leaveReq.CancelReason = &req.Reason
		}
		if err := qtx.UpdateRequestState(ctx, leaveReq); err != nil {
			return err
		}
		if !wasApproved {
			if _, err := qtx.RejectPendingLevels(ctx, requestID, "request cancelled", now); err != nil {
				return err
			}
		}

		key := balance.Key{
			CompanyID:   companyID,
			EmployeeID:  leaveReq.EmployeeID.String(),
			LeaveTypeID: leaveReq.LeaveTypeID.String(),
			Year:        leaveReq.StartDate.Year(),
		}
		if err := s.ledger.ReleaseInTx(ctx, tx, key, leaveReq.WorkingDays, wasApproved); err != nil {
			return err
		}

		return s.notifier.EnqueueInTx(ctx, tx, events.LeaveLifecycleEvent{
			EventType:   events.TypeRequestCancelled,
			RequestID:   requestID,
			CompanyID:   companyID,
			EmployeeID:  leaveReq.EmployeeID.String(),
			RecipientID: leaveReq.EmployeeID.String(),
			Reason:      req.Reason,
			OccurredAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, companyID, "REQUEST_CANCEL", "leave_request", requestID, req.Reason, nil, nil)
	return s.GetByID(ctx, companyID, requestID)
}

func (s *service) GetByID(ctx context.Context, companyID, requestID string) (*RequestResponse, error) {
	leaveReq, err := s.repo.FindByIDAndCompany(ctx, companyID, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, requesterrors.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return mapToResponse(leaveReq), nil
}

func (s *service) GetAllByCompany(ctx context.Context, companyID string) ([]RequestResponse, error) {
	reqs, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return mapAllToResponse(reqs), nil
}

func (s *service) GetAllByEmployee(ctx context.Context, companyID, employeeID string) ([]RequestResponse, error) {
	reqs, err := s.repo.FindAllByEmployee(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}
	return mapAllToResponse(reqs), nil
}

func mapAllToResponse(reqs []LeaveRequest) []RequestResponse {
	resp := make([]RequestResponse, len(reqs))
	for i := range reqs {
		resp[i] = *mapToResponse(&reqs[i])
	}
	return resp
}

func parsePeriod(req CreateRequest) (time.Time, time.Time, []time.Time, error) {
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, nil, requesterrors.ErrInvalidDateFormat
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, nil, requesterrors.ErrInvalidDateFormat
	}
	if endDate.Before(startDate) {
		return time.Time{}, time.Time{}, nil, requesterrors.ErrInvalidDateRange
	}

	selected := make([]time.Time, 0, len(req.SelectedDates))
	for _, raw := range req.SelectedDates {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, nil, requesterrors.ErrInvalidDateFormat
		}
		if d.Before(startDate) || d.After(endDate) {
			return time.Time{}, time.Time{}, nil, requesterrors.ErrSelectedDatesOutsideRange
		}
		selected = append(selected, d)
	}

	return startDate, endDate, selected, nil
}

func (s *service) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("begin tx failed", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
