package escalation

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"leaveflow/internal/audit"
	"leaveflow/internal/domain"
	"leaveflow/internal/employee"
	"leaveflow/internal/events"
	"leaveflow/internal/messaging/kafka"
	"leaveflow/internal/request"
)

// Report summarizes one evaluator sweep.
type Report struct {
	Candidates int `json:"candidates"`
	Escalated  int `json:"escalated"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Evaluator sweeps approval levels whose pending time exceeded the threshold
// and reroutes each to the next role up the org chart. A sweep is idempotent:
// the claim on the original level is an atomic check-and-set, so overlapping
// runs escalate each level at most once.
//
//go:generate mockgen -source=escalation_service.go -destination=mock/escalation_service_mock.go -package=mock
type Evaluator interface {
	Evaluate(ctx context.Context, now time.Time) (Report, error)
}

type evaluator struct {
	db        *sql.DB
	requests  request.Repository
	employees employee.Repository
	notifier  *kafka.Notifier
	recorder  audit.Recorder
	threshold time.Duration
	batchSize int
	logger    *zap.Logger
}

func NewEvaluator(
	db *sql.DB,
	requests request.Repository,
	employees employee.Repository,
	notifier *kafka.Notifier,
	recorder audit.Recorder,
	threshold time.Duration,
	logger ...*zap.Logger,
) Evaluator {
	l := zap.L().Named("escalation.evaluator")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("escalation.evaluator")
	}
	if threshold <= 0 {
		threshold = 72 * time.Hour
	}
	return &evaluator{
		db:        db,
		requests:  requests,
		employees: employees,
		notifier:  notifier,
		recorder:  recorder,
		threshold: threshold,
		batchSize: 100,
		logger:    l,
	}
}

func (s *evaluator) Evaluate(ctx context.Context, now time.Time) (Report, error) {
	var report Report

	cutoff := now.Add(-s.threshold)
	candidates, err := s.requests.FindEscalationCandidates(ctx, cutoff, s.batchSize)
	if err != nil {
		return report, err
	}
	report.Candidates = len(candidates)

	for _, c := range candidates {
		switch escalated, err := s.escalate(ctx, c, now); {
		case err != nil:
			s.logger.Error("escalation failed",
				zap.String("level_id", c.LevelID),
				zap.String("request_id", c.RequestID),
				zap.Error(err),
			)
			report.Failed++
		case escalated:
			report.Escalated++
		default:
			report.Skipped++
		}
	}

	if report.Candidates > 0 {
		s.logger.Info("escalation sweep complete",
			zap.Int("candidates", report.Candidates),
			zap.Int("escalated", report.Escalated),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
		)
	}
	return report, nil
}

func (s *evaluator) escalate(ctx context.Context, c request.EscalationCandidate, now time.Time) (bool, error) {
	approver, err := s.employees.FindByIDAndCompany(ctx, c.CompanyID, c.ApproverID)
	if err != nil {
		return false, err
	}

	target, err := s.resolveTarget(ctx, c.CompanyID, approver)
	if err != nil {
		return false, err
	}
	if target == nil {
		// Top of the chain: nobody outranks this approver, so the level just
		// keeps waiting.
		s.logger.Debug("no escalation target above approver",
			zap.String("level_id", c.LevelID),
			zap.String("approver_id", c.ApproverID),
		)
		return false, nil
	}

	leaveReq, err := s.requests.FindByIDAndCompany(ctx, c.CompanyID, c.RequestID)
	if err != nil {
		return false, err
	}

	reason := "no decision within " + s.threshold.String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	qtx := s.requests.WithTx(tx)
	claimed, err := qtx.ClaimEscalation(ctx, c.LevelID, target.ID.String(), reason, now)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	replacement := &request.ApprovalLevel{
		ID:          uuid.New(),
		RequestID:   leaveReq.ID,
		Ordinal:     c.Ordinal,
		ApproverID:  target.ID,
		Status:      request.LevelPending,
		ActivatedAt: &now,
	}
	if err := qtx.InsertLevel(ctx, replacement); err != nil {
		return false, err
	}

	if err := s.notifier.EnqueueInTx(ctx, tx, events.LeaveLifecycleEvent{
		EventType:   events.TypeLevelEscalated,
		RequestID:   c.RequestID,
		CompanyID:   c.CompanyID,
		EmployeeID:  leaveReq.EmployeeID.String(),
		RecipientID: target.ID.String(),
		LevelID:     replacement.ID.String(),
		Ordinal:     c.Ordinal,
		Reason:      reason,
		OccurredAt:  now,
	}); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	s.recorder.Record(ctx, c.CompanyID, "LEVEL_ESCALATED", "approval_level", c.LevelID, reason, nil, map[string]string{
		"escalated_to": target.ID.String(),
		"new_level_id": replacement.ID.String(),
	})
	s.logger.Info("approval level escalated",
		zap.String("request_id", c.RequestID),
		zap.String("level_id", c.LevelID),
		zap.String("from_approver", c.ApproverID),
		zap.String("to_approver", target.ID.String()),
		zap.Int("ordinal", c.Ordinal),
	)
	return true, nil
}

// resolveTarget walks up from the stale approver to the nearest person whose
// role strictly outranks them: direct manager, then department director, then
// an HR or executive fallback.
func (s *evaluator) resolveTarget(ctx context.Context, companyID string, approver *employee.Employee) (*employee.Employee, error) {
	rank := domain.Capabilities(approver.OrgRole()).EscalationRank

	manager, err := s.employees.ManagerOf(ctx, companyID, approver.ID.String())
	if err != nil {
		return nil, err
	}
	if outranks(manager, approver, rank) {
		return manager, nil
	}

	director, err := s.employees.DirectorOf(ctx, companyID, approver.ID.String())
	if err != nil {
		return nil, err
	}
	if outranks(director, approver, rank) {
		return director, nil
	}

	fallback, err := s.employees.FirstWithRole(ctx, companyID,
		domain.RoleHR.String(), domain.RoleExecutive.String())
	if err != nil {
		return nil, err
	}
	if outranks(fallback, approver, rank) {
		return fallback, nil
	}
	return nil, nil
}

func outranks(candidate, approver *employee.Employee, approverRank int) bool {
	if candidate == nil || candidate.ID == approver.ID {
		return false
	}
	return domain.Capabilities(candidate.OrgRole()).EscalationRank > approverRank
}
