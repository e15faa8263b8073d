package request

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"leaveflow/internal/tenant"
)

// EscalationCandidate is a pending approval level whose clock may have run
// out, joined with enough request context to pick an escalation target.
type EscalationCandidate struct {
	LevelID     string
	RequestID   string
	CompanyID   string
	Ordinal     int
	ApproverID  string
	ActivatedAt time.Time
}

// Repository mixes gorm reads with raw SQL on the caller's transaction for
// every write on the decision path, so the row locks and the "all levels
// approved" check share one unit of work.
//
//go:generate mockgen -source=request_repo.go -destination=mock/request_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	FindByIDAndCompany(ctx context.Context, companyID, id string) (*LeaveRequest, error)
	FindAllByCompany(ctx context.Context, companyID string) ([]LeaveRequest, error)
	FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]LeaveRequest, error)
	HasOverlappingPeriod(ctx context.Context, companyID, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error)
	FindEscalationCandidates(ctx context.Context, activatedBefore time.Time, limit int) ([]EscalationCandidate, error)

	InsertRequest(ctx context.Context, r *LeaveRequest) error
	InsertDays(ctx context.Context, days []RequestDay) error
	InsertLevel(ctx context.Context, l *ApprovalLevel) error
	// LockRequest takes a FOR UPDATE lock; the request row serializes every
	// concurrent decision/cancel on the same request.
	LockRequest(ctx context.Context, companyID, id string) (*LeaveRequest, error)
	LockLevel(ctx context.Context, requestID, levelID string) (*ApprovalLevel, error)
	UpdateLevelDecision(ctx context.Context, l *ApprovalLevel) error
	UpdateRequestState(ctx context.Context, r *LeaveRequest) error
	// CountBlockingLevels counts levels that still gate finalization: PENDING
	// and not superseded by an escalation.
	CountBlockingLevels(ctx context.Context, requestID string) (int, error)
	// ActivateLevels stamps activated_at on the given ordinal's levels that
	// have not been activated yet (starts their escalation clock).
	ActivateLevels(ctx context.Context, requestID string, ordinal int, at time.Time) error
	// RejectPendingLevels force-rejects every still-pending level with a
	// system comment; used by cancellation. Already-decided levels are left
	// untouched.
	RejectPendingLevels(ctx context.Context, requestID, comment string, at time.Time) (int64, error)
	// ClaimEscalation atomically stamps the escalation fields, returning
	// false when another evaluator run already claimed the level.
	ClaimEscalation(ctx context.Context, levelID, targetID, reason string, at time.Time) (bool, error)
}

type repository struct {
	db    *gorm.DB
	sqlDB *sql.DB
	tx    *sql.Tx
}

func NewRepository(db *gorm.DB, sqlDB *sql.DB) Repository {
	return &repository{db: db, sqlDB: sqlDB}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, sqlDB: r.sqlDB, tx: tx}
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*LeaveRequest, error) {
	var req LeaveRequest
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Levels", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordinal ASC, created_at ASC")
		}).
		Preload("Days").
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string) ([]LeaveRequest, error) {
	var reqs []LeaveRequest
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Levels", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordinal ASC, created_at ASC")
		}).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *repository) FindAllByEmployee(ctx context.Context, companyID, employeeID string) ([]LeaveRequest, error) {
	var reqs []LeaveRequest
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Preload("Levels", func(db *gorm.DB) *gorm.DB {
			return db.Order("ordinal ASC, created_at ASC")
		}).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, err
}

func (r *repository) HasOverlappingPeriod(ctx context.Context, companyID, employeeID string, startDate, endDate time.Time, excludeID *string) (bool, error) {
	db := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Where("status NOT IN ?", []string{StatusCancelled, StatusRejected}).
		Where("NOT (end_date < ? OR start_date > ?)", startDate, endDate)

	if excludeID != nil && *excludeID != "" {
		db = db.Where("id <> ?", *excludeID)
	}

	var count int64
	err := db.Count(&count).Error
	return count > 0, err
}

func (r *repository) FindEscalationCandidates(ctx context.Context, activatedBefore time.Time, limit int) ([]EscalationCandidate, error) {
	query := `
SELECT
	l.id::text,
	l.request_id::text,
	req.company_id::text,
	l.ordinal,
	l.approver_id::text,
	l.activated_at
FROM approval_levels l
JOIN leave_requests req ON req.id = l.request_id
WHERE l.status = $1
	AND l.escalated_to_id IS NULL
	AND l.activated_at IS NOT NULL
	AND l.activated_at <= $2
	AND req.status = $3
ORDER BY l.activated_at ASC
LIMIT $4
`
	rows, err := r.sqlDB.QueryContext(ctx, query, LevelPending, activatedBefore, StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]EscalationCandidate, 0, limit)
	for rows.Next() {
		var c EscalationCandidate
		if err := rows.Scan(&c.LevelID, &c.RequestID, &c.CompanyID, &c.Ordinal, &c.ApproverID, &c.ActivatedAt); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (r *repository) InsertRequest(ctx context.Context, req *LeaveRequest) error {
	query := `
INSERT INTO leave_requests (
	id, company_id, employee_id, leave_type_id, request_number,
	start_date, end_date, working_days, reason, status, verification_status,
	created_by, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)
`
	now := time.Now().UTC()
	_, err := r.execer().ExecContext(ctx, query,
		req.ID.String(), req.CompanyID.String(), req.EmployeeID.String(), req.LeaveTypeID.String(),
		req.RequestNumber, req.StartDate, req.EndDate, req.WorkingDays, req.Reason,
		req.Status, req.VerificationStatus, req.CreatedBy.String(), now,
	)
	return err
}

func (r *repository) InsertDays(ctx context.Context, days []RequestDay) error {
	query := `INSERT INTO leave_request_days (id, request_id, day) VALUES ($1, $2, $3)`
	for _, d := range days {
		if _, err := r.execer().ExecContext(ctx, query, d.ID.String(), d.RequestID.String(), d.Day); err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) InsertLevel(ctx context.Context, l *ApprovalLevel) error {
	query := `
INSERT INTO approval_levels (
	id, request_id, ordinal, approver_id, status, activated_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
`
	now := time.Now().UTC()
	_, err := r.execer().ExecContext(ctx, query,
		l.ID.String(), l.RequestID.String(), l.Ordinal, l.ApproverID.String(),
		l.Status, l.ActivatedAt, now,
	)
	return err
}

func (r *repository) LockRequest(ctx context.Context, companyID, id string) (*LeaveRequest, error) {
	query := `
SELECT
	id::text, employee_id::text, leave_type_id::text, request_number,
	start_date, end_date, working_days, status, verification_status, created_at
FROM leave_requests
WHERE company_id = $1 AND id = $2
FOR UPDATE
`
	row := r.querier().QueryRowContext(ctx, query, companyID, id)

	var (
		reqID, employeeID, leaveTypeID string
		req                            LeaveRequest
	)
	err := row.Scan(&reqID, &employeeID, &leaveTypeID, &req.RequestNumber,
		&req.StartDate, &req.EndDate, &req.WorkingDays, &req.Status, &req.VerificationStatus, &req.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	req.ID = uuid.MustParse(reqID)
	req.CompanyID = uuid.MustParse(companyID)
	req.EmployeeID = uuid.MustParse(employeeID)
	req.LeaveTypeID = uuid.MustParse(leaveTypeID)
	return &req, nil
}

func (r *repository) LockLevel(ctx context.Context, requestID, levelID string) (*ApprovalLevel, error) {
	query := `
SELECT id::text, ordinal, approver_id::text, status, comments, decided_at, activated_at, escalated_to_id::text
FROM approval_levels
WHERE request_id = $1 AND id = $2
FOR UPDATE
`
	row := r.querier().QueryRowContext(ctx, query, requestID, levelID)

	var (
		id, approverID string
		escalatedTo    sql.NullString
		l              ApprovalLevel
	)
	err := row.Scan(&id, &l.Ordinal, &approverID, &l.Status, &l.Comments, &l.DecidedAt, &l.ActivatedAt, &escalatedTo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	l.ID = uuid.MustParse(id)
	l.RequestID = uuid.MustParse(requestID)
	l.ApproverID = uuid.MustParse(approverID)
	if escalatedTo.Valid {
		target := uuid.MustParse(escalatedTo.String)
		l.EscalatedToID = &target
	}
	return &l, nil
}

func (r *repository) UpdateLevelDecision(ctx context.Context, l *ApprovalLevel) error {
	query := `
UPDATE approval_levels
SET status = $2, comments = $3, signature_payload = $4, decided_at = $5, updated_at = NOW()
WHERE id = $1
`
	_, err := r.execer().ExecContext(ctx, query,
		l.ID.String(), l.Status, l.Comments, l.SignaturePayload, l.DecidedAt,
	)
	return err
}

func (r *repository) UpdateRequestState(ctx context.Context, req *LeaveRequest) error {
	query := `
UPDATE leave_requests
SET status = $2, verification_status = $3, approved_at = $4,
	cancelled_by = $5, cancel_reason = $6, updated_at = NOW()
WHERE id = $1
`
	var cancelledBy *string
	if req.CancelledBy != nil {
		v := req.CancelledBy.String()
		cancelledBy = &v
	}
	_, err := r.execer().ExecContext(ctx, query,
		req.ID.String(), req.Status, req.VerificationStatus, req.ApprovedAt,
		cancelledBy, req.CancelReason,
	)
	return err
}

func (r *repository) CountBlockingLevels(ctx context.Context, requestID string) (int, error) {
	query := `
SELECT COUNT(*)
FROM approval_levels
WHERE request_id = $1 AND status = $2 AND escalated_to_id IS NULL
`
	var count int
	err := r.querier().QueryRowContext(ctx, query, requestID, LevelPending).Scan(&count)
	return count, err
}

func (r *repository) ActivateLevels(ctx context.Context, requestID string, ordinal int, at time.Time) error {
	query := `
UPDATE approval_levels
SET activated_at = $3, updated_at = NOW()
WHERE request_id = $1 AND ordinal = $2 AND status = $4 AND activated_at IS NULL
`
	_, err := r.execer().ExecContext(ctx, query, requestID, ordinal, at, LevelPending)
	return err
}

func (r *repository) RejectPendingLevels(ctx context.Context, requestID, comment string, at time.Time) (int64, error) {
	query := `
UPDATE approval_levels
SET status = $2, comments = $3, decided_at = $4, updated_at = NOW()
WHERE request_id = $1 AND status = $5
`
	res, err := r.execer().ExecContext(ctx, query, requestID, LevelRejected, comment, at, LevelPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) ClaimEscalation(ctx context.Context, levelID, targetID, reason string, at time.Time) (bool, error) {
	query := `
UPDATE approval_levels
SET escalated_to_id = $2, escalated_at = $3, escalation_reason = $4, updated_at = NOW()
WHERE id = $1 AND escalated_to_id IS NULL AND status = $5
`
	res, err := r.execer().ExecContext(ctx, query, levelID, targetID, at, reason, LevelPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.sqlDB
}

func (r *repository) querier() interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.sqlDB
}
