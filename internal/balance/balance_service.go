package balance

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leaveflow/internal/audit"
	balanceerrors "leaveflow/internal/balance/errors"
	"leaveflow/internal/leavetype"
)

// Ledger owns every mutation of LeaveBalance rows. Reserve/Commit/Release are
// the only three write paths; each locks the row first so concurrent calls on
// the same key serialize instead of losing updates.
//
//go:generate mockgen -source=balance_service.go -destination=mock/balance_service_mock.go -package=mock
type Ledger interface {
	Reserve(ctx context.Context, key Key, days int) error
	Commit(ctx context.Context, key Key, days int) error
	Release(ctx context.Context, key Key, days int, wasApproved bool) error

	// Tx variants run inside a caller-owned transaction so the request
	// lifecycle can reserve/commit/release atomically with its own writes.
	ReserveInTx(ctx context.Context, tx *sql.Tx, key Key, days int) error
	CommitInTx(ctx context.Context, tx *sql.Tx, key Key, days int) error
	ReleaseInTx(ctx context.Context, tx *sql.Tx, key Key, days int, wasApproved bool) error

	// EnsureForYear creates the ledger row for (employee, type, year) when it
	// does not exist yet, pro-rating the entitlement by join date.
	EnsureForYear(ctx context.Context, companyID, employeeID string, joinDate time.Time, lt leavetype.LeaveType, year int) error

	GetSummary(ctx context.Context, companyID, employeeID string, year int) ([]BalanceResponse, error)

	// RunCarryForward rolls unused balance of fromYear into fromYear+1 for
	// every carry-forward-enabled leave type, capped per type.
	RunCarryForward(ctx context.Context, companyID string, fromYear int) (CarryForwardReport, error)
	// ExpireCarryForward lapses carried balances once the configured number
	// of months into year has passed.
	ExpireCarryForward(ctx context.Context, companyID string, year int, now time.Time) (int, error)
}

type ledger struct {
	db       *sql.DB
	repo     Repository
	types    leavetype.Repository
	recorder audit.Recorder
	logger   *zap.Logger
}

func NewLedger(db *sql.DB, repo Repository, types leavetype.Repository, recorder audit.Recorder, logger ...*zap.Logger) Ledger {
	l := zap.L().Named("balance.ledger")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.ledger")
	}
	return &ledger{db: db, repo: repo, types: types, recorder: recorder, logger: l}
}

func (s *ledger) Reserve(ctx context.Context, key Key, days int) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.ReserveInTx(ctx, tx, key, days)
	})
}

func (s *ledger) Commit(ctx context.Context, key Key, days int) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.CommitInTx(ctx, tx, key, days)
	})
}

func (s *ledger) Release(ctx context.Context, key Key, days int, wasApproved bool) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.ReleaseInTx(ctx, tx, key, days, wasApproved)
	})
}

func (s *ledger) ReserveInTx(ctx context.Context, tx *sql.Tx, key Key, days int) error {
	if days <= 0 {
		return balanceerrors.ErrInvalidDays
	}

	qtx := s.repo.WithTx(tx)
	b, err := qtx.GetForUpdate(ctx, key)
	if err != nil {
		s.logger.Error("reserve lock failed", zap.Error(err))
		return err
	}
	if b == nil {
		return balanceerrors.ErrBalanceNotFound
	}

	if b.Available < days {
		s.logger.Info("reserve rejected, insufficient balance",
			zap.String("employee_id", key.EmployeeID),
			zap.String("leave_type_id", key.LeaveTypeID),
			zap.Int("requested", days),
			zap.Int("available", b.Available),
		)
		return balanceerrors.InsufficientBalance(days, b.Available)
	}

	before := *b
	b.Pending += days
	b.Available -= days
	s.checkInvariant(ctx, key, b)

	if err := qtx.Save(ctx, b); err != nil {
		s.logger.Error("reserve persist failed", zap.Error(err))
		return err
	}

	s.recorder.Record(ctx, key.CompanyID, "BALANCE_RESERVE", "leave_balance", b.ID.String(), "", before, b)
	s.logger.Info("balance reserved",
		zap.String("employee_id", key.EmployeeID),
		zap.Int("days", days),
		zap.Int("available", b.Available),
		zap.Int("pending", b.Pending),
	)
	return nil
}

func (s *ledger) CommitInTx(ctx context.Context, tx *sql.Tx, key Key, days int) error {
	if days <= 0 {
		return balanceerrors.ErrInvalidDays
	}

	qtx := s.repo.WithTx(tx)
	b, err := qtx.GetForUpdate(ctx, key)
	if err != nil {
		return err
	}
	if b == nil {
		return balanceerrors.ErrBalanceNotFound
	}

	before := *b
	b.Pending = s.clamped(ctx, key, "pending", b.Pending-days)
	b.Used += days
	// Available stays put: it was already decremented at reserve time.
	s.checkInvariant(ctx, key, b)

	if err := qtx.Save(ctx, b); err != nil {
		return err
	}

	s.recorder.Record(ctx, key.CompanyID, "BALANCE_COMMIT", "leave_balance", b.ID.String(), "", before, b)
	return nil
}

func (s *ledger) ReleaseInTx(ctx context.Context, tx *sql.Tx, key Key, days int, wasApproved bool) error {
	if days <= 0 {
		return balanceerrors.ErrInvalidDays
	}

	qtx := s.repo.WithTx(tx)
	b, err := qtx.GetForUpdate(ctx, key)
	if err != nil {
		return err
	}
	if b == nil {
		return balanceerrors.ErrBalanceNotFound
	}

	before := *b
	if wasApproved {
		// Late cancellation of an approved request: the days already moved to
		// used, so hand them back from there.
		b.Used = s.clamped(ctx, key, "used", b.Used-days)
	} else {
		b.Pending = s.clamped(ctx, key, "pending", b.Pending-days)
	}
	b.Available += days
	s.checkInvariant(ctx, key, b)

	if err := qtx.Save(ctx, b); err != nil {
		return err
	}

	s.recorder.Record(ctx, key.CompanyID, "BALANCE_RELEASE", "leave_balance", b.ID.String(), "", before, b)
	return nil
}

func (s *ledger) EnsureForYear(ctx context.Context, companyID, employeeID string, joinDate time.Time, lt leavetype.LeaveType, year int) error {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return balanceerrors.ErrInvalidCompanyID
	}
	employeeUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return balanceerrors.ErrInvalidEmployeeID
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		qtx := s.repo.WithTx(tx)
		key := Key{CompanyID: companyID, EmployeeID: employeeID, LeaveTypeID: lt.ID.String(), Year: year}
		existing, err := qtx.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		entitled := ProrateEntitlement(joinDate, year, lt.AnnualEntitlement)
		b := &LeaveBalance{
			ID:          uuid.New(),
			CompanyID:   companyUUID,
			EmployeeID:  employeeUUID,
			LeaveTypeID: lt.ID,
			Year:        year,
			Entitled:    entitled,
			Available:   entitled,
		}
		if err := qtx.Insert(ctx, b); err != nil {
			return err
		}

		s.recorder.Record(ctx, companyID, "BALANCE_CREATE", "leave_balance", b.ID.String(), "", nil, b)
		s.logger.Info("balance row created",
			zap.String("employee_id", employeeID),
			zap.String("leave_type_id", lt.ID.String()),
			zap.Int("year", year),
			zap.Int("entitled", entitled),
		)
		return nil
	})
}

func (s *ledger) GetSummary(ctx context.Context, companyID, employeeID string, year int) ([]BalanceResponse, error) {
	balances, err := s.repo.FindAllByEmployee(ctx, companyID, employeeID, year)
	if err != nil {
		return nil, err
	}
	resp := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		resp[i] = mapToResponse(b)
	}
	return resp, nil
}

func (s *ledger) RunCarryForward(ctx context.Context, companyID string, fromYear int) (CarryForwardReport, error) {
	report := CarryForwardReport{FromYear: fromYear, ToYear: fromYear + 1}

	types, err := s.types.FindCarryForwardEnabled(ctx, companyID)
	if err != nil {
		return report, err
	}

	for _, lt := range types {
		rows, err := s.repo.FindAllByTypeAndYear(ctx, companyID, lt.ID.String(), fromYear)
		if err != nil {
			return report, err
		}

		for _, row := range rows {
			if err := s.carryForwardRow(ctx, lt, row); err != nil {
				s.logger.Error("carry forward row failed",
					zap.String("balance_id", row.ID.String()),
					zap.Error(err),
				)
				report.Failed++
				continue
			}
			report.RowsRolled++
		}
	}

	s.logger.Info("carry forward run complete",
		zap.String("company_id", companyID),
		zap.Int("from_year", fromYear),
		zap.Int("rows", report.RowsRolled),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *ledger) carryForwardRow(ctx context.Context, lt leavetype.LeaveType, row LeaveBalance) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		qtx := s.repo.WithTx(tx)

		key := Key{
			CompanyID:   row.CompanyID.String(),
			EmployeeID:  row.EmployeeID.String(),
			LeaveTypeID: row.LeaveTypeID.String(),
			Year:        row.Year,
		}
		current, err := qtx.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if current == nil {
			return nil
		}

		carry := current.Available
		if carry > lt.MaxCarryForward {
			carry = lt.MaxCarryForward
		}
		if carry < 0 {
			carry = 0
		}

		nextKey := key
		nextKey.Year = row.Year + 1
		next, err := qtx.GetForUpdate(ctx, nextKey)
		if err != nil {
			return err
		}

		if next == nil {
			next = &LeaveBalance{
				ID:             uuid.New(),
				CompanyID:      row.CompanyID,
				EmployeeID:     row.EmployeeID,
				LeaveTypeID:    row.LeaveTypeID,
				Year:           nextKey.Year,
				Entitled:       lt.AnnualEntitlement,
				CarriedForward: carry,
				Available:      lt.AnnualEntitlement + carry,
			}
			if err := qtx.Insert(ctx, next); err != nil {
				return err
			}
		} else {
			before := *next
			next.Available += carry - next.CarriedForward
			next.CarriedForward = carry
			s.checkInvariant(ctx, nextKey, next)
			if err := qtx.Save(ctx, next); err != nil {
				return err
			}
			s.recorder.Record(ctx, nextKey.CompanyID, "BALANCE_CARRY_FORWARD", "leave_balance", next.ID.String(), "", before, next)
			return nil
		}

		s.recorder.Record(ctx, nextKey.CompanyID, "BALANCE_CARRY_FORWARD", "leave_balance", next.ID.String(), "", nil, next)
		return nil
	})
}

func (s *ledger) ExpireCarryForward(ctx context.Context, companyID string, year int, now time.Time) (int, error) {
	types, err := s.types.FindCarryForwardEnabled(ctx, companyID)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, lt := range types {
		if lt.CarryForwardExpiryMonths <= 0 {
			continue
		}
		cutoff := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).
			AddDate(0, lt.CarryForwardExpiryMonths, 0)
		if now.Before(cutoff) {
			continue
		}

		rows, err := s.repo.FindAllByTypeAndYear(ctx, companyID, lt.ID.String(), year)
		if err != nil {
			return expired, err
		}

		for _, row := range rows {
			if row.CarriedForward <= 0 {
				continue
			}
			if err := s.expireRow(ctx, row); err != nil {
				s.logger.Error("carry forward expiry failed",
					zap.String("balance_id", row.ID.String()),
					zap.Error(err),
				)
				continue
			}
			expired++
		}
	}

	return expired, nil
}

func (s *ledger) expireRow(ctx context.Context, row LeaveBalance) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		qtx := s.repo.WithTx(tx)
		key := Key{
			CompanyID:   row.CompanyID.String(),
			EmployeeID:  row.EmployeeID.String(),
			LeaveTypeID: row.LeaveTypeID.String(),
			Year:        row.Year,
		}
		b, err := qtx.GetForUpdate(ctx, key)
		if err != nil || b == nil {
			return err
		}
		if b.CarriedForward <= 0 {
			return nil
		}

		before := *b
		b.Available = s.clamped(ctx, key, "available", b.Available-b.CarriedForward)
		// Entitled absorbs nothing; the carried portion simply lapses.
		b.CarriedForward = 0

		if err := qtx.Save(ctx, b); err != nil {
			return err
		}
		s.recorder.Record(ctx, key.CompanyID, "BALANCE_CARRY_FORWARD_EXPIRE", "leave_balance", b.ID.String(), "", before, b)
		return nil
	})
}

// ProrateEntitlement computes the first-year grant for an employee joining
// mid-year: ceil(remainingCalendarDays / totalYearDays * annual). Joiners at
// or before year start get the full amount.
func ProrateEntitlement(joinDate time.Time, year, annual int) int {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !joinDate.After(yearStart) {
		return annual
	}
	nextYearStart := yearStart.AddDate(1, 0, 0)
	if !joinDate.Before(nextYearStart) {
		return 0
	}

	totalDays := int(nextYearStart.Sub(yearStart).Hours() / 24)
	remaining := int(nextYearStart.Sub(joinDate).Hours() / 24)

	return (remaining*annual + totalDays - 1) / totalDays
}

func (s *ledger) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
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

// clamped floors a quantity at zero. Going negative means reserve/commit/
// release were called out of order somewhere; that is a bug to surface, not
// an error to propagate.
func (s *ledger) clamped(ctx context.Context, key Key, field string, v int) int {
	if v >= 0 {
		return v
	}
	s.logger.Warn("balance underflow clamped",
		zap.String("field", field),
		zap.Int("value", v),
		zap.String("employee_id", key.EmployeeID),
		zap.String("leave_type_id", key.LeaveTypeID),
		zap.Int("year", key.Year),
	)
	s.recorder.Record(ctx, key.CompanyID, "BALANCE_UNDERFLOW_CLAMPED", "leave_balance", key.EmployeeID, field, v, 0)
	return 0
}

func (s *ledger) checkInvariant(ctx context.Context, key Key, b *LeaveBalance) {
	if b.InvariantHolds() {
		return
	}
	s.logger.Warn("balance invariant violated",
		zap.String("balance_id", b.ID.String()),
		zap.Int("entitled", b.Entitled),
		zap.Int("carried_forward", b.CarriedForward),
		zap.Int("used", b.Used),
		zap.Int("pending", b.Pending),
		zap.Int("available", b.Available),
	)
	s.recorder.Record(ctx, key.CompanyID, "BALANCE_INVARIANT_VIOLATION", "leave_balance", b.ID.String(), "", nil, b)
}
