package balance_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"leaveflow/internal/audit"
	"leaveflow/internal/balance"
	"leaveflow/internal/leavetype"
)

type fakeBalanceRepository struct {
	withTxFn               func(tx *sql.Tx) balance.Repository
	getForUpdateFn         func(ctx context.Context, key balance.Key) (*balance.LeaveBalance, error)
	saveFn                 func(ctx context.Context, b *balance.LeaveBalance) error
	insertFn               func(ctx context.Context, b *balance.LeaveBalance) error
	findByKeyFn            func(ctx context.Context, key balance.Key) (*balance.LeaveBalance, error)
	findAllByEmployeeFn    func(ctx context.Context, companyID, employeeID string, year int) ([]balance.LeaveBalance, error)
	findAllByTypeAndYearFn func(ctx context.Context, companyID, leaveTypeID string, year int) ([]balance.LeaveBalance, error)
}

func (f *fakeBalanceRepository) WithTx(tx *sql.Tx) balance.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeBalanceRepository) GetForUpdate(ctx context.Context, key balance.Key) (*balance.LeaveBalance, error) {
	if f.getForUpdateFn != nil {
		return f.getForUpdateFn(ctx, key)
	}
	return nil, nil
}

func (f *fakeBalanceRepository) Save(ctx context.Context, b *balance.LeaveBalance) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, b)
	}
	return nil
}

func (f *fakeBalanceRepository) Insert(ctx context.Context, b *balance.LeaveBalance) error {
	if f.insertFn != nil {
		return f.insertFn(ctx, b)
	}
	return nil
}

func (f *fakeBalanceRepository) FindByKey(ctx context.Context, key balance.Key) (*balance.LeaveBalance, error) {
	if f.findByKeyFn != nil {
		return f.findByKeyFn(ctx, key)
	}
	return nil, nil
}

func (f *fakeBalanceRepository) FindAllByEmployee(ctx context.Context, companyID, employeeID string, year int) ([]balance.LeaveBalance, error) {
	if f.findAllByEmployeeFn != nil {
		return f.findAllByEmployeeFn(ctx, companyID, employeeID, year)
	}
	return nil, nil
}

func (f *fakeBalanceRepository) FindAllByTypeAndYear(ctx context.Context, companyID, leaveTypeID string, year int) ([]balance.LeaveBalance, error) {
	if f.findAllByTypeAndYearFn != nil {
		return f.findAllByTypeAndYearFn(ctx, companyID, leaveTypeID, year)
	}
	return nil, nil
}

type fakeLeaveTypeRepository struct {
	createFn                  func(ctx context.Context, lt *leavetype.LeaveType) error
	findAllByCompanyFn        func(ctx context.Context, companyID string) ([]leavetype.LeaveType, error)
	findByIDAndCompanyFn      func(ctx context.Context, companyID, id string) (*leavetype.LeaveType, error)
	findCarryForwardEnabledFn func(ctx context.Context, companyID string) ([]leavetype.LeaveType, error)
}

func (f *fakeLeaveTypeRepository) Create(ctx context.Context, lt *leavetype.LeaveType) error {
	if f.createFn != nil {
		return f.createFn(ctx, lt)
	}
	return nil
}

func (f *fakeLeaveTypeRepository) FindAllByCompany(ctx context.Context, companyID string) ([]leavetype.LeaveType, error) {
	if f.findAllByCompanyFn != nil {
		return f.findAllByCompanyFn(ctx, companyID)
	}
	return nil, nil
}

func (f *fakeLeaveTypeRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*leavetype.LeaveType, error) {
	if f.findByIDAndCompanyFn != nil {
		return f.findByIDAndCompanyFn(ctx, companyID, id)
	}
	return nil, nil
}

func (f *fakeLeaveTypeRepository) FindCarryForwardEnabled(ctx context.Context, companyID string) ([]leavetype.LeaveType, error) {
	if f.findCarryForwardEnabledFn != nil {
		return f.findCarryForwardEnabledFn(ctx, companyID)
	}
	return nil, nil
}

type ledgerDeps struct {
	db      *sql.DB
	sqlMock sqlmock.Sqlmock
	ledger  balance.Ledger
	repo    *fakeBalanceRepository
	types   *fakeLeaveTypeRepository
}

func setupLedgerTest(t *testing.T) *ledgerDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeBalanceRepository{}
	types := &fakeLeaveTypeRepository{}
	ledger := balance.NewLedger(db, repo, types, audit.Nop())

	return &ledgerDeps{
		db:      db,
		sqlMock: sqlMock,
		ledger:  ledger,
		repo:    repo,
		types:   types,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func testKey() balance.Key {
	return balance.Key{
		CompanyID:   uuid.New().String(),
		EmployeeID:  uuid.New().String(),
		LeaveTypeID: uuid.New().String(),
		Year:        2026,
	}
}

func rowFor(key balance.Key, entitled, used, pending, available, carried int) *balance.LeaveBalance {
	return &balance.LeaveBalance{
		ID:             uuid.New(),
		CompanyID:      uuid.MustParse(key.CompanyID),
		EmployeeID:     uuid.MustParse(key.EmployeeID),
		LeaveTypeID:    uuid.MustParse(key.LeaveTypeID),
		Year:           key.Year,
		Entitled:       entitled,
		Used:           used,
		Pending:        pending,
		Available:      available,
		CarriedForward: carried,
	}
}

func TestLedger_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("success moves days to pending", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		key := testKey()
		expectTx(t, deps.sqlMock, true)

		deps.repo.getForUpdateFn = func(ctx context.Context, k balance.Key) (*balance.LeaveBalance, error) {
			assert.Equal(t, key, k)
			return rowFor(key, 12, 0, 0, 12, 0), nil
		}
		var saved *balance.LeaveBalance
		deps.repo.saveFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			saved = b
			return nil
		}

		err := deps.ledger.Reserve(ctx, key, 3)

		assert.NoError(t, err)
		assert.Equal(t, 3, saved.Pending)
		assert.Equal(t, 9, saved.Available)
		assert.Equal(t, 0, saved.Used)
		assert.True(t, saved.InvariantHolds())
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative insufficient balance", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		key := testKey()
		expectTx(t, deps.sqlMock, false)

		deps.repo.getForUpdateFn = func(ctx context.Context, k balance.Key) (*balance.LeaveBalance, error) {
			return rowFor(key, 12, 8, 2, 2, 0), nil
		}
		deps.repo.saveFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			t.Fatal("save must not be called")
			return nil
		}

		err := deps.ledger.Reserve(ctx, key, 3)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "insufficient balance")
		assert.Contains(t, err.Error(), "requested 3")
		assert.Contains(t, err.Error(), "2 available")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative zero days", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)

		err := deps.ledger.Reserve(ctx, testKey(), 0)

		assert.Error(t, err)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative missing row", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)

		err := deps.ledger.Reserve(ctx, testKey(), 2)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestLedger_CommitAndRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("commit moves pending to used", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		key := testKey()
		expectTx(t, deps.sqlMock, true)

		deps.repo.getForUpdateFn = func(ctx context.Context, k balance.Key) (*balance.LeaveBalance, error) {
			return rowFor(key, 12, 0, 3, 9, 0), nil
		}
		var saved *balance.LeaveBalance
		deps.repo.saveFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			saved = b
			return nil
		}

		err := deps.ledger.Commit(ctx, key, 3)

		assert.NoError(t, err)
		assert.Equal(t, 0, saved.Pending)
		assert.Equal(t, 3, saved.Used)
		assert.Equal(t, 9, saved.Available)
		assert.True(t, saved.InvariantHolds())
	})

	t.Run("release of a pending reservation restores available", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		key := testKey()
		expectTx(t, deps.sqlMock, true)

		deps.repo.getForUpdateFn = func(ctx context.Context, k balance.Key) (*balance.LeaveBalance, error) {
			return rowFor(key, 12, 0, 3, 9, 0), nil
		}
		var saved *balance.LeaveBalance
		deps.repo.saveFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			saved = b
			return nil
		}

		err := deps.ledger.Release(ctx, key, 3, false)

		assert.NoError(t, err)
		assert.Equal(t, 0, saved.Pending)
		assert.Equal(t, 12, saved.Available)
		assert.True(t, saved.InvariantHolds())
	})

	t.Run("release after approval hands back used days", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		key := testKey()
		expectTx(t, deps.sqlMock, true)

		deps.repo.getForUpdateFn = func(ctx context.Context, k balance.Key) (*balance.LeaveBalance, error) {
			return rowFor(key, 12, 3, 0, 9, 0), nil
		}
		var saved *balance.LeaveBalance
		deps.repo.saveFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			saved = b
			return nil
		}

		err := deps.ledger.Release(ctx, key, 3, true)

		assert.NoError(t, err)
		assert.Equal(t, 0, saved.Used)
		assert.Equal(t, 12, saved.Available)
		assert.True(t, saved.InvariantHolds())
	})

	t.Run("reserve then release round trip is identity", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		key := testKey()
		row := rowFor(key, 12, 2, 0, 10, 0)
		expectTx(t, deps.sqlMock, true)
		expectTx(t, deps.sqlMock, true)

		deps.repo.getForUpdateFn = func(ctx context.Context, k balance.Key) (*balance.LeaveBalance, error) {
			copied := *row
			return &copied, nil
		}
		deps.repo.saveFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			*row = *b
			return nil
		}

		assert.NoError(t, deps.ledger.Reserve(ctx, key, 4))
		assert.NoError(t, deps.ledger.Release(ctx, key, 4, false))

		assert.Equal(t, 10, row.Available)
		assert.Equal(t, 0, row.Pending)
		assert.Equal(t, 2, row.Used)
		assert.True(t, row.InvariantHolds())
	})

	t.Run("over-release clamps at zero instead of going negative", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		key := testKey()
		expectTx(t, deps.sqlMock, true)

		deps.repo.getForUpdateFn = func(ctx context.Context, k balance.Key) (*balance.LeaveBalance, error) {
			return rowFor(key, 12, 0, 1, 11, 0), nil
		}
		var saved *balance.LeaveBalance
		deps.repo.saveFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			saved = b
			return nil
		}

		err := deps.ledger.Release(ctx, key, 3, false)

		assert.NoError(t, err)
		assert.Equal(t, 0, saved.Pending)
		assert.Equal(t, 14, saved.Available)
	})

	t.Run("negative repo error rolls back", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)

		deps.repo.getForUpdateFn = func(ctx context.Context, k balance.Key) (*balance.LeaveBalance, error) {
			return nil, errors.New("db error")
		}

		err := deps.ledger.Commit(ctx, testKey(), 1)

		assert.Error(t, err)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}

func TestLedger_EnsureForYear(t *testing.T) {
	ctx := context.Background()

	t.Run("creates prorated row for mid-year joiner", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		key := testKey()
		expectTx(t, deps.sqlMock, true)

		lt := leavetype.LeaveType{
			ID:                uuid.MustParse(key.LeaveTypeID),
			AnnualEntitlement: 12,
		}
		joinDate := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

		var inserted *balance.LeaveBalance
		deps.repo.insertFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			inserted = b
			return nil
		}

		err := deps.ledger.EnsureForYear(ctx, key.CompanyID, key.EmployeeID, joinDate, lt, 2026)

		assert.NoError(t, err)
		assert.Equal(t, balance.ProrateEntitlement(joinDate, 2026, 12), inserted.Entitled)
		assert.Equal(t, inserted.Entitled, inserted.Available)
		assert.True(t, inserted.InvariantHolds())
	})

	t.Run("existing row is left alone", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		key := testKey()
		expectTx(t, deps.sqlMock, true)

		deps.repo.getForUpdateFn = func(ctx context.Context, k balance.Key) (*balance.LeaveBalance, error) {
			return rowFor(key, 12, 1, 0, 11, 0), nil
		}
		deps.repo.insertFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			t.Fatal("insert must not be called")
			return nil
		}

		err := deps.ledger.EnsureForYear(ctx, key.CompanyID, key.EmployeeID, time.Now(), leavetype.LeaveType{ID: uuid.MustParse(key.LeaveTypeID)}, 2026)

		assert.NoError(t, err)
	})
}

func TestProrateEntitlement(t *testing.T) {
	t.Run("joiner before year start gets full grant", func(t *testing.T) {
		join := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 12, balance.ProrateEntitlement(join, 2026, 12))
	})

	t.Run("joiner on january first gets full grant", func(t *testing.T) {
		join := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 12, balance.ProrateEntitlement(join, 2026, 12))
	})

	t.Run("mid-year joiner gets rounded-up fraction", func(t *testing.T) {
		join := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
		// 184 remaining days of 365, 12 * 184/365 = 6.05 -> 7 with ceil.
		assert.Equal(t, 7, balance.ProrateEntitlement(join, 2026, 12))
	})

	t.Run("joiner after year end gets nothing", func(t *testing.T) {
		join := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 0, balance.ProrateEntitlement(join, 2026, 12))
	})
}

func TestLedger_RunCarryForward(t *testing.T) {
	ctx := context.Background()

	t.Run("caps carried amount and seeds the next year", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		key := testKey()
		lt := leavetype.LeaveType{
			ID:                  uuid.MustParse(key.LeaveTypeID),
			AnnualEntitlement:   12,
			CarryForwardEnabled: true,
			MaxCarryForward:     5,
		}

		deps.types.findCarryForwardEnabledFn = func(ctx context.Context, companyID string) ([]leavetype.LeaveType, error) {
			return []leavetype.LeaveType{lt}, nil
		}
		deps.repo.findAllByTypeAndYearFn = func(ctx context.Context, companyID, leaveTypeID string, year int) ([]balance.LeaveBalance, error) {
			assert.Equal(t, 2026, year)
			return []balance.LeaveBalance{*rowFor(key, 12, 4, 0, 8, 0)}, nil
		}

		expectTx(t, deps.sqlMock, true)
		deps.repo.getForUpdateFn = func(ctx context.Context, k balance.Key) (*balance.LeaveBalance, error) {
			if k.Year == 2026 {
				return rowFor(key, 12, 4, 0, 8, 0), nil
			}
			// Next year row does not exist yet.
			return nil, nil
		}
		var inserted *balance.LeaveBalance
		deps.repo.insertFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			inserted = b
			return nil
		}

		report, err := deps.ledger.RunCarryForward(ctx, key.CompanyID, 2026)

		assert.NoError(t, err)
		assert.Equal(t, 1, report.RowsRolled)
		assert.Equal(t, 0, report.Failed)
		assert.Equal(t, 2027, inserted.Year)
		// 8 available but the cap is 5.
		assert.Equal(t, 5, inserted.CarriedForward)
		assert.Equal(t, 17, inserted.Available)
		assert.True(t, inserted.InvariantHolds())
	})
}

func TestLedger_ExpireCarryForward(t *testing.T) {
	ctx := context.Background()

	t.Run("lapses carried balance after the expiry window", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		key := testKey()
		key.Year = 2027
		lt := leavetype.LeaveType{
			ID:                       uuid.MustParse(key.LeaveTypeID),
			CarryForwardEnabled:      true,
			CarryForwardExpiryMonths: 3,
		}

		deps.types.findCarryForwardEnabledFn = func(ctx context.Context, companyID string) ([]leavetype.LeaveType, error) {
			return []leavetype.LeaveType{lt}, nil
		}
		deps.repo.findAllByTypeAndYearFn = func(ctx context.Context, companyID, leaveTypeID string, year int) ([]balance.LeaveBalance, error) {
			return []balance.LeaveBalance{*rowFor(key, 12, 0, 0, 17, 5)}, nil
		}

		expectTx(t, deps.sqlMock, true)
		deps.repo.getForUpdateFn = func(ctx context.Context, k balance.Key) (*balance.LeaveBalance, error) {
			return rowFor(key, 12, 0, 0, 17, 5), nil
		}
		var saved *balance.LeaveBalance
		deps.repo.saveFn = func(ctx context.Context, b *balance.LeaveBalance) error {
			saved = b
			return nil
		}

		expired, err := deps.ledger.ExpireCarryForward(ctx, key.CompanyID, 2027, time.Date(2027, 4, 2, 0, 0, 0, 0, time.UTC))

		assert.NoError(t, err)
		assert.Equal(t, 1, expired)
		assert.Equal(t, 0, saved.CarriedForward)
		assert.Equal(t, 12, saved.Available)
		assert.True(t, saved.InvariantHolds())
	})

	t.Run("before the window nothing expires", func(t *testing.T) {
		deps := setupLedgerTest(t)
		defer deps.db.Close()

		lt := leavetype.LeaveType{
			ID:                       uuid.New(),
			CarryForwardEnabled:      true,
			CarryForwardExpiryMonths: 3,
		}
		deps.types.findCarryForwardEnabledFn = func(ctx context.Context, companyID string) ([]leavetype.LeaveType, error) {
			return []leavetype.LeaveType{lt}, nil
		}
		deps.repo.findAllByTypeAndYearFn = func(ctx context.Context, companyID, leaveTypeID string, year int) ([]balance.LeaveBalance, error) {
			t.Fatal("rows must not be scanned before the window")
			return nil, nil
		}

		expired, err := deps.ledger.ExpireCarryForward(ctx, uuid.New().String(), 2027, time.Date(2027, 2, 1, 0, 0, 0, 0, time.UTC))

		assert.NoError(t, err)
		assert.Equal(t, 0, expired)
	})
}
