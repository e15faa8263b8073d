package escalation_test

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
	"leaveflow/internal/domain"
	"leaveflow/internal/employee"
	"leaveflow/internal/escalation"
	"leaveflow/internal/messaging/kafka"
	"leaveflow/internal/request"
)

type fakeEmployeeRepository struct {
	findByIDAndCompanyFn func(ctx context.Context, companyID, id string) (*employee.Employee, error)
	managerOfFn          func(ctx context.Context, companyID, employeeID string) (*employee.Employee, error)
	directorOfFn         func(ctx context.Context, companyID, employeeID string) (*employee.Employee, error)
	firstWithRoleFn      func(ctx context.Context, companyID string, roles ...string) (*employee.Employee, error)
}

func (f *fakeEmployeeRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*employee.Employee, error) {
	if f.findByIDAndCompanyFn != nil {
		return f.findByIDAndCompanyFn(ctx, companyID, id)
	}
	return nil, nil
}

func (f *fakeEmployeeRepository) ManagerOf(ctx context.Context, companyID, employeeID string) (*employee.Employee, error) {
	if f.managerOfFn != nil {
		return f.managerOfFn(ctx, companyID, employeeID)
	}
	return nil, nil
}

func (f *fakeEmployeeRepository) DirectorOf(ctx context.Context, companyID, employeeID string) (*employee.Employee, error) {
	if f.directorOfFn != nil {
		return f.directorOfFn(ctx, companyID, employeeID)
	}
	return nil, nil
}

func (f *fakeEmployeeRepository) FirstWithRole(ctx context.Context, companyID string, roles ...string) (*employee.Employee, error) {
	if f.firstWithRoleFn != nil {
		return f.firstWithRoleFn(ctx, companyID, roles...)
	}
	return nil, nil
}

type fakeRequestRepository struct {
	request.Repository

	findEscalationCandidatesFn func(ctx context.Context, activatedBefore time.Time, limit int) ([]request.EscalationCandidate, error)
	findByIDAndCompanyFn       func(ctx context.Context, companyID, id string) (*request.LeaveRequest, error)
	claimEscalationFn          func(ctx context.Context, levelID, targetID, reason string, at time.Time) (bool, error)
	insertLevelFn              func(ctx context.Context, l *request.ApprovalLevel) error
}

func (f *fakeRequestRepository) WithTx(tx *sql.Tx) request.Repository { return f }

func (f *fakeRequestRepository) FindEscalationCandidates(ctx context.Context, activatedBefore time.Time, limit int) ([]request.EscalationCandidate, error) {
	return f.findEscalationCandidatesFn(ctx, activatedBefore, limit)
}

func (f *fakeRequestRepository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*request.LeaveRequest, error) {
	return f.findByIDAndCompanyFn(ctx, companyID, id)
}

func (f *fakeRequestRepository) ClaimEscalation(ctx context.Context, levelID, targetID, reason string, at time.Time) (bool, error) {
	return f.claimEscalationFn(ctx, levelID, targetID, reason, at)
}

func (f *fakeRequestRepository) InsertLevel(ctx context.Context, l *request.ApprovalLevel) error {
	if f.insertLevelFn != nil {
		return f.insertLevelFn(ctx, l)
	}
	return nil
}

type fakeOutboxRepository struct {
	events []kafka.OutboxEvent
}

func (f *fakeOutboxRepository) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }

func (f *fakeOutboxRepository) Create(ctx context.Context, event kafka.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutboxRepository) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepository) MarkSent(ctx context.Context, id string) error { return nil }

func (f *fakeOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return nil
}

type evaluatorDeps struct {
	db        *sql.DB
	sqlMock   sqlmock.Sqlmock
	evaluator escalation.Evaluator
	requests  *fakeRequestRepository
	employees *fakeEmployeeRepository
	outbox    *fakeOutboxRepository
}

func setupEvaluatorTest(t *testing.T) *evaluatorDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	requests := &fakeRequestRepository{}
	employees := &fakeEmployeeRepository{}
	outbox := &fakeOutboxRepository{}

	evaluator := escalation.NewEvaluator(
		db,
		requests,
		employees,
		kafka.NewNotifier(outbox),
		audit.Nop(),
		48*time.Hour,
	)

	return &evaluatorDeps{
		db:        db,
		sqlMock:   sqlMock,
		evaluator: evaluator,
		requests:  requests,
		employees: employees,
		outbox:    outbox,
	}
}

func newEmployee(role domain.Role) *employee.Employee {
	return &employee.Employee{
		ID:       uuid.New(),
		FullName: "Employee " + role.String(),
		Role:     role.String(),
	}
}

func candidateFor(approver *employee.Employee) request.EscalationCandidate {
	return request.EscalationCandidate{
		LevelID:     uuid.New().String(),
		RequestID:   uuid.New().String(),
		CompanyID:   uuid.New().String(),
		Ordinal:     1,
		ApproverID:  approver.ID.String(),
		ActivatedAt: time.Now().UTC().Add(-72 * time.Hour),
	}
}

func TestEvaluator_Evaluate(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("stale level is rerouted to the approver's manager", func(t *testing.T) {
		deps := setupEvaluatorTest(t)
		defer deps.db.Close()

		approver := newEmployee(domain.RoleManager)
		director := newEmployee(domain.RoleDepartmentDirector)
		candidate := candidateFor(approver)
		leaveReq := &request.LeaveRequest{ID: uuid.MustParse(candidate.RequestID), EmployeeID: uuid.New()}

		deps.requests.findEscalationCandidatesFn = func(ctx context.Context, before time.Time, limit int) ([]request.EscalationCandidate, error) {
			assert.True(t, before.Before(now.Add(-47*time.Hour)), "cutoff must honor the threshold")
			return []request.EscalationCandidate{candidate}, nil
		}
		deps.employees.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*employee.Employee, error) {
			return approver, nil
		}
		deps.employees.managerOfFn = func(ctx context.Context, cid, eid string) (*employee.Employee, error) {
			return director, nil
		}
		deps.requests.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*request.LeaveRequest, error) {
			return leaveReq, nil
		}

		var claimedTarget string
		deps.requests.claimEscalationFn = func(ctx context.Context, levelID, targetID, reason string, at time.Time) (bool, error) {
			assert.Equal(t, candidate.LevelID, levelID)
			claimedTarget = targetID
			return true, nil
		}
		var replacement *request.ApprovalLevel
		deps.requests.insertLevelFn = func(ctx context.Context, l *request.ApprovalLevel) error {
			replacement = l
			return nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		report, err := deps.evaluator.Evaluate(ctx, now)

		assert.NoError(t, err)
		assert.Equal(t, escalation.Report{Candidates: 1, Escalated: 1}, report)
		assert.Equal(t, director.ID.String(), claimedTarget)
		assert.Equal(t, candidate.Ordinal, replacement.Ordinal)
		assert.Equal(t, director.ID, replacement.ApproverID)
		assert.NotNil(t, replacement.ActivatedAt, "replacement level starts its own clock")
		assert.Len(t, deps.outbox.events, 1)
		assert.Equal(t, "leave.level_escalated", deps.outbox.events[0].EventType)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("lost claim race is skipped", func(t *testing.T) {
		deps := setupEvaluatorTest(t)
		defer deps.db.Close()

		approver := newEmployee(domain.RoleManager)
		director := newEmployee(domain.RoleDepartmentDirector)
		candidate := candidateFor(approver)

		deps.requests.findEscalationCandidatesFn = func(ctx context.Context, before time.Time, limit int) ([]request.EscalationCandidate, error) {
			return []request.EscalationCandidate{candidate}, nil
		}
		deps.employees.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*employee.Employee, error) {
			return approver, nil
		}
		deps.employees.managerOfFn = func(ctx context.Context, cid, eid string) (*employee.Employee, error) {
			return director, nil
		}
		deps.requests.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*request.LeaveRequest, error) {
			return &request.LeaveRequest{ID: uuid.MustParse(candidate.RequestID)}, nil
		}
		deps.requests.claimEscalationFn = func(ctx context.Context, levelID, targetID, reason string, at time.Time) (bool, error) {
			return false, nil
		}
		deps.requests.insertLevelFn = func(ctx context.Context, l *request.ApprovalLevel) error {
			t.Fatal("a lost claim must not insert a replacement level")
			return nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()

		report, err := deps.evaluator.Evaluate(ctx, now)

		assert.NoError(t, err)
		assert.Equal(t, escalation.Report{Candidates: 1, Skipped: 1}, report)
		assert.Empty(t, deps.outbox.events)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("nobody outranks an executive approver", func(t *testing.T) {
		deps := setupEvaluatorTest(t)
		defer deps.db.Close()

		approver := newEmployee(domain.RoleExecutive)
		candidate := candidateFor(approver)

		deps.requests.findEscalationCandidatesFn = func(ctx context.Context, before time.Time, limit int) ([]request.EscalationCandidate, error) {
			return []request.EscalationCandidate{candidate}, nil
		}
		deps.employees.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*employee.Employee, error) {
			return approver, nil
		}
		deps.employees.firstWithRoleFn = func(ctx context.Context, cid string, roles ...string) (*employee.Employee, error) {
			return newEmployee(domain.RoleHR), nil
		}

		report, err := deps.evaluator.Evaluate(ctx, now)

		assert.NoError(t, err)
		assert.Equal(t, escalation.Report{Candidates: 1, Skipped: 1}, report)
	})

	t.Run("same-rank manager is passed over for the HR fallback", func(t *testing.T) {
		deps := setupEvaluatorTest(t)
		defer deps.db.Close()

		approver := newEmployee(domain.RoleManager)
		peer := newEmployee(domain.RoleManager)
		hr := newEmployee(domain.RoleHR)
		candidate := candidateFor(approver)

		deps.requests.findEscalationCandidatesFn = func(ctx context.Context, before time.Time, limit int) ([]request.EscalationCandidate, error) {
			return []request.EscalationCandidate{candidate}, nil
		}
		deps.employees.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*employee.Employee, error) {
			return approver, nil
		}
		deps.employees.managerOfFn = func(ctx context.Context, cid, eid string) (*employee.Employee, error) {
			return peer, nil
		}
		deps.employees.firstWithRoleFn = func(ctx context.Context, cid string, roles ...string) (*employee.Employee, error) {
			assert.Equal(t, []string{domain.RoleHR.String(), domain.RoleExecutive.String()}, roles)
			return hr, nil
		}
		deps.requests.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*request.LeaveRequest, error) {
			return &request.LeaveRequest{ID: uuid.MustParse(candidate.RequestID)}, nil
		}

		var claimedTarget string
		deps.requests.claimEscalationFn = func(ctx context.Context, levelID, targetID, reason string, at time.Time) (bool, error) {
			claimedTarget = targetID
			return true, nil
		}

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		report, err := deps.evaluator.Evaluate(ctx, now)

		assert.NoError(t, err)
		assert.Equal(t, 1, report.Escalated)
		assert.Equal(t, hr.ID.String(), claimedTarget)
	})

	t.Run("negative lookup failure counts as failed", func(t *testing.T) {
		deps := setupEvaluatorTest(t)
		defer deps.db.Close()

		approver := newEmployee(domain.RoleManager)
		candidate := candidateFor(approver)

		deps.requests.findEscalationCandidatesFn = func(ctx context.Context, before time.Time, limit int) ([]request.EscalationCandidate, error) {
			return []request.EscalationCandidate{candidate}, nil
		}
		deps.employees.findByIDAndCompanyFn = func(ctx context.Context, cid, id string) (*employee.Employee, error) {
			return nil, errors.New("db error")
		}

		report, err := deps.evaluator.Evaluate(ctx, now)

		assert.NoError(t, err)
		assert.Equal(t, escalation.Report{Candidates: 1, Failed: 1}, report)
	})

	t.Run("empty sweep reports nothing", func(t *testing.T) {
		deps := setupEvaluatorTest(t)
		defer deps.db.Close()

		deps.requests.findEscalationCandidatesFn = func(ctx context.Context, before time.Time, limit int) ([]request.EscalationCandidate, error) {
			return nil, nil
		}

		report, err := deps.evaluator.Evaluate(ctx, now)

		assert.NoError(t, err)
		assert.Equal(t, escalation.Report{}, report)
	})
}
