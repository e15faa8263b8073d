package balance

import (
	"time"

	"github.com/google/uuid"
)

// LeaveBalance is one ledger row per (employee, leave type, year).
//
// Invariant after every mutation:
//
//	available = entitled + carried_forward - used - pending
//
// The row is mutated only through the ledger service's reserve/commit/release
// operations, never by direct field writes.
type LeaveBalance struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_balances_key"`
	EmployeeID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_balances_key"`
	LeaveTypeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_balances_key"`
	Year        int       `gorm:"type:int;not null;uniqueIndex:idx_balances_key"`

	Entitled       int `gorm:"type:int;not null;default:0"`
	Used           int `gorm:"type:int;not null;default:0"`
	Pending        int `gorm:"type:int;not null;default:0"`
	Available      int `gorm:"type:int;not null;default:0"`
	CarriedForward int `gorm:"type:int;not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (LeaveBalance) TableName() string {
	return "leave_balances"
}

// InvariantHolds reports whether the ledger arithmetic is intact. Violations
// are data-integrity bugs surfaced through the audit log, not user errors.
func (b *LeaveBalance) InvariantHolds() bool {
	return b.Available == b.Entitled+b.CarriedForward-b.Used-b.Pending
}
