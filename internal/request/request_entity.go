package request

import (
	"time"

	"github.com/google/uuid"
)

// Request status values. PENDING is the only non-terminal state; CANCELLED is
// additionally reachable from APPROVED while the leave has not started.
const (
	StatusPending   = "PENDING"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
	StatusCancelled = "CANCELLED"
)

// Approval level status values.
const (
	LevelPending  = "PENDING"
	LevelApproved = "APPROVED"
	LevelRejected = "REJECTED"
)

// HR verification pre-gate states. The approval chain is inactive until a
// flagged request passes verification.
const (
	VerificationNotRequired = "NOT_REQUIRED"
	VerificationPending     = "PENDING"
	VerificationPassed      = "PASSED"
	VerificationFailed      = "FAILED"
)

type LeaveRequest struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index:idx_requests_company_status"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;index:idx_requests_employee_dates"`

	LeaveTypeID uuid.UUID `gorm:"type:uuid;not null"`
	// RequestNumber is the human-facing sequence shown on documents.
	RequestNumber int64     `gorm:"type:bigint;not null"`
	StartDate     time.Time `gorm:"type:date;not null;index:idx_requests_employee_dates"`
	EndDate       time.Time `gorm:"type:date;not null;index:idx_requests_employee_dates"`
	// WorkingDays is the reserved quantity: computed working days only, also
	// for explicit selected-dates requests.
	WorkingDays int    `gorm:"type:int;not null"`
	Reason      string `gorm:"type:text"`

	Status             string `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_requests_company_status"`
	VerificationStatus string `gorm:"type:varchar(20);not null;default:'NOT_REQUIRED'"`

	CreatedBy    uuid.UUID  `gorm:"type:uuid;not null"`
	CancelledBy  *uuid.UUID `gorm:"type:uuid"`
	CancelReason *string    `gorm:"type:text"`

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ApprovedAt *time.Time

	Levels []ApprovalLevel `gorm:"foreignKey:RequestID"`
	Days   []RequestDay    `gorm:"foreignKey:RequestID"`
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}

// IsTerminal reports whether no further transitions are permitted (modulo the
// APPROVED -> CANCELLED late-cancel path).
func (r *LeaveRequest) IsTerminal() bool {
	return r.Status != StatusPending
}

// ApprovalLevel is one ordinal step of a request's approval chain, owned by
// one approver. Escalation never deletes a level; it stamps the escalation
// fields and inserts a replacement level with the same ordinal.
type ApprovalLevel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index"`
	Ordinal   int       `gorm:"type:int;not null"`

	ApproverID uuid.UUID `gorm:"type:uuid;not null"`
	Status     string    `gorm:"type:varchar(20);not null;default:'PENDING'"`
	Comments   *string   `gorm:"type:text"`
	// SignaturePayload is the captured signature image/stroke data, carried
	// through to the generated document.
	SignaturePayload *string    `gorm:"type:text"`
	DecidedAt        *time.Time

	// ActivatedAt is when the level became actionable: chain activation for
	// ordinal 1, the prior level's decision otherwise. The escalation clock
	// starts here. Null while the HR verification gate is still closed.
	ActivatedAt *time.Time

	EscalatedToID    *uuid.UUID `gorm:"type:uuid"`
	EscalatedAt      *time.Time
	EscalationReason *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ApprovalLevel) TableName() string {
	return "approval_levels"
}

// Superseded reports whether this level has been escalated away; a
// superseded level no longer blocks finalization.
func (l *ApprovalLevel) Superseded() bool {
	return l.EscalatedToID != nil
}

// RequestDay is one explicitly selected (possibly non-contiguous) leave day.
type RequestDay struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;index"`
	Day       time.Time `gorm:"type:date;not null"`
}

func (RequestDay) TableName() string {
	return "leave_request_days"
}
