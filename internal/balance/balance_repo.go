package balance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"leaveflow/internal/tenant"
)

// Key addresses one ledger row.
type Key struct {
	CompanyID   string
	EmployeeID  string
	LeaveTypeID string
	Year        int
}

//go:generate mockgen -source=balance_repo.go -destination=mock/balance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	// GetForUpdate locks the row for the duration of the surrounding
	// transaction. Returns nil when the row does not exist. The lock is what
	// serializes concurrent reserve/commit/release on the same key.
	GetForUpdate(ctx context.Context, key Key) (*LeaveBalance, error)
	Save(ctx context.Context, b *LeaveBalance) error
	Insert(ctx context.Context, b *LeaveBalance) error
	FindByKey(ctx context.Context, key Key) (*LeaveBalance, error)
	FindAllByEmployee(ctx context.Context, companyID, employeeID string, year int) ([]LeaveBalance, error)
	FindAllByTypeAndYear(ctx context.Context, companyID, leaveTypeID string, year int) ([]LeaveBalance, error)
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

// Row-level mutations run as raw SQL on the transaction so the lock and the
// write share one unit of work. Reads without locking go through gorm.

func (r *repository) GetForUpdate(ctx context.Context, key Key) (*LeaveBalance, error) {
	query := `
SELECT id::text, entitled, used, pending, available, carried_forward
FROM leave_balances
WHERE company_id = $1 AND employee_id = $2 AND leave_type_id = $3 AND year = $4
FOR UPDATE
`
	row := r.querier().QueryRowContext(ctx, query, key.CompanyID, key.EmployeeID, key.LeaveTypeID, key.Year)

	var id string
	b := LeaveBalance{Year: key.Year}
	err := row.Scan(&id, &b.Entitled, &b.Used, &b.Pending, &b.Available, &b.CarriedForward)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	b.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	b.CompanyID = uuid.MustParse(key.CompanyID)
	b.EmployeeID = uuid.MustParse(key.EmployeeID)
	b.LeaveTypeID = uuid.MustParse(key.LeaveTypeID)
	return &b, nil
}

func (r *repository) Save(ctx context.Context, b *LeaveBalance) error {
	query := `
UPDATE leave_balances
SET entitled = $2, used = $3, pending = $4, available = $5, carried_forward = $6, updated_at = NOW()
WHERE id = $1
`
	_, err := r.execer().ExecContext(ctx, query,
		b.ID.String(), b.Entitled, b.Used, b.Pending, b.Available, b.CarriedForward,
	)
	return err
}

func (r *repository) Insert(ctx context.Context, b *LeaveBalance) error {
	query := `
INSERT INTO leave_balances (
	id, company_id, employee_id, leave_type_id, year,
	entitled, used, pending, available, carried_forward, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
`
	now := time.Now().UTC()
	_, err := r.execer().ExecContext(ctx, query,
		b.ID.String(), b.CompanyID.String(), b.EmployeeID.String(), b.LeaveTypeID.String(), b.Year,
		b.Entitled, b.Used, b.Pending, b.Available, b.CarriedForward, now,
	)
	return err
}

func (r *repository) FindByKey(ctx context.Context, key Key) (*LeaveBalance, error) {
	var b LeaveBalance
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(key.CompanyID)).
		Where("employee_id = ?", key.EmployeeID).
		Where("leave_type_id = ?", key.LeaveTypeID).
		Where("year = ?", key.Year).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) FindAllByEmployee(ctx context.Context, companyID, employeeID string, year int) ([]LeaveBalance, error) {
	var balances []LeaveBalance
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("employee_id = ?", employeeID).
		Where("year = ?", year).
		Find(&balances).Error
	return balances, err
}

func (r *repository) FindAllByTypeAndYear(ctx context.Context, companyID, leaveTypeID string, year int) ([]LeaveBalance, error) {
	var balances []LeaveBalance
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("leave_type_id = ?", leaveTypeID).
		Where("year = ?", year).
		Find(&balances).Error
	return balances, err
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
