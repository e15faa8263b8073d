package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leaveflow/internal/audit"
	documenterrors "leaveflow/internal/document/errors"
	"leaveflow/internal/domain"
	"leaveflow/internal/employee"
	"leaveflow/internal/events"
	"leaveflow/internal/messaging/kafka"
	"leaveflow/internal/request"
	"leaveflow/internal/signature"
)

//go:generate mockgen -source=document_service.go -destination=mock/document_service_mock.go -package=mock
type Service interface {
	// Generate renders and archives the leave document for an approved
	// request. Repeated calls return the stored document.
	Generate(ctx context.Context, companyID, actorID, requestID string) (*GeneratedDocument, error)
	Get(ctx context.Context, companyID, requestID string) (*GeneratedDocument, error)
}

type service struct {
	db         *sql.DB
	docs       Repository
	requests   request.Repository
	employees  employee.Repository
	signatures signature.Repository
	notifier   *kafka.Notifier
	recorder   audit.Recorder
	logger     *zap.Logger
}

func NewService(
	db *sql.DB,
	docs Repository,
	requests request.Repository,
	employees employee.Repository,
	signatures signature.Repository,
	notifier *kafka.Notifier,
	recorder audit.Recorder,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("document.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("document.service")
	}
	return &service{
		db:         db,
		docs:       docs,
		requests:   requests,
		employees:  employees,
		signatures: signatures,
		notifier:   notifier,
		recorder:   recorder,
		logger:     l,
	}
}

func (s *service) Generate(ctx context.Context, companyID, actorID, requestID string) (*GeneratedDocument, error) {
	existing, err := s.docs.FindByRequest(ctx, companyID, requestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// Regeneration is the repair path: re-resolve the slots and attach
		// whatever a previous run failed to persist. The unique index keeps
		// already-attached slots from duplicating.
		if err := s.backfillSignatures(ctx, companyID, existing); err != nil {
			s.logger.Warn("signature backfill failed",
				zap.String("document_id", existing.ID.String()),
				zap.String("request_id", requestID),
				zap.Error(err),
			)
		}
		return existing, nil
	}

	leaveReq, err := s.requests.FindByIDAndCompany(ctx, companyID, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, documenterrors.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if leaveReq.Status != request.StatusApproved {
		return nil, documenterrors.ErrRequestNotApproved
	}

	requester, err := s.employees.FindByIDAndCompany(ctx, companyID, leaveReq.EmployeeID.String())
	if err != nil {
		return nil, err
	}

	slots, err := s.resolveSlots(ctx, companyID, requester, leaveReq)
	if err != nil {
		return nil, err
	}

	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return nil, documenterrors.ErrRequestNotFound
	}

	content, err := buildLeaveDocumentPDF(documentLines(leaveReq, requester, slots))
	if err != nil {
		return nil, err
	}

	doc := &GeneratedDocument{
		ID:             uuid.New(),
		CompanyID:      leaveReq.CompanyID,
		RequestID:      leaveReq.ID,
		DocumentNumber: fmt.Sprintf("LR-%06d", leaveReq.RequestNumber),
		ContentType:    "application/pdf",
		Content:        content,
		GeneratedBy:    actorUUID,
	}

	if err := s.persist(ctx, companyID, doc, leaveReq); err != nil {
		if !isUniqueViolation(err) {
			return nil, err
		}
		// Another caller generated concurrently; theirs is the document,
		// but the slots resolved here still belong on it.
		rival, err := s.Get(ctx, companyID, requestID)
		if err != nil {
			return nil, err
		}
		s.attachSignatures(ctx, rival, slots)
		return rival, nil
	}

	s.attachSignatures(ctx, doc, slots)

	s.recorder.Record(ctx, companyID, "DOCUMENT_GENERATE", "generated_document", doc.ID.String(), "", nil, map[string]string{
		"request_id":      requestID,
		"document_number": doc.DocumentNumber,
	})
	s.logger.Info("leave document generated",
		zap.String("request_id", requestID),
		zap.String("document_number", doc.DocumentNumber),
		zap.Int("signature_slots", len(slots)),
	)
	return doc, nil
}

func (s *service) Get(ctx context.Context, companyID, requestID string) (*GeneratedDocument, error) {
	doc, err := s.docs.FindByRequest(ctx, companyID, requestID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, documenterrors.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *service) persist(ctx context.Context, companyID string, doc *GeneratedDocument, leaveReq *request.LeaveRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.docs.WithTx(tx).Insert(ctx, doc); err != nil {
		return err
	}
	if err := s.notifier.EnqueueInTx(ctx, tx, events.LeaveLifecycleEvent{
		EventType:   events.TypeDocumentReady,
		RequestID:   leaveReq.ID.String(),
		CompanyID:   companyID,
		EmployeeID:  leaveReq.EmployeeID.String(),
		RecipientID: leaveReq.EmployeeID.String(),
		OccurredAt:  time.Now().UTC(),
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// backfillSignatures re-resolves an existing document's slots from the
// request's historical approved levels and inserts the ones still missing.
func (s *service) backfillSignatures(ctx context.Context, companyID string, doc *GeneratedDocument) error {
	leaveReq, err := s.requests.FindByIDAndCompany(ctx, companyID, doc.RequestID.String())
	if err != nil {
		return err
	}
	if leaveReq.Status != request.StatusApproved {
		return nil
	}

	requester, err := s.employees.FindByIDAndCompany(ctx, companyID, leaveReq.EmployeeID.String())
	if err != nil {
		return err
	}

	slots, err := s.resolveSlots(ctx, companyID, requester, leaveReq)
	if err != nil {
		return err
	}

	s.attachSignatures(ctx, doc, slots)
	return nil
}

// attachSignatures persists the resolved slots against the document. Failures
// are logged, never fatal: the next regeneration backfills what is missing.
func (s *service) attachSignatures(ctx context.Context, doc *GeneratedDocument, slots []signature.ResolvedSlot) {
	for _, slot := range slots {
		sig := &signature.Signature{
			ID:         uuid.New(),
			CompanyID:  doc.CompanyID,
			DocumentID: doc.ID,
			Role:       slot.Role,
			Required:   slot.Required,
			SignerID:   slot.SignerID,
			SignerName: slot.Name,
			Payload:    slot.Payload,
			SignedAt:   slot.SignedAt,
		}
		if _, err := s.signatures.Insert(ctx, sig); err != nil {
			s.logger.Error("signature slot persist failed",
				zap.String("document_id", doc.ID.String()),
				zap.String("role", string(slot.Role)),
				zap.Error(err),
			)
		}
	}
}

// resolveSlots maps the requester and the approvers who actually decided onto
// document signature slots.
func (s *service) resolveSlots(ctx context.Context, companyID string, requester *employee.Employee, leaveReq *request.LeaveRequest) ([]signature.ResolvedSlot, error) {
	requesterSigner := signature.Signer{
		ID:   requester.ID,
		Name: requester.FullName,
		Role: requester.OrgRole(),
	}

	var approvers []signature.Signer
	for i := range leaveReq.Levels {
		l := &leaveReq.Levels[i]
		if l.Status != request.LevelApproved || l.Superseded() {
			continue
		}
		emp, err := s.employees.FindByIDAndCompany(ctx, companyID, l.ApproverID.String())
		if err != nil {
			return nil, err
		}
		approvers = append(approvers, signature.Signer{
			ID:       emp.ID,
			Name:     emp.FullName,
			Role:     emp.OrgRole(),
			Payload:  l.SignaturePayload,
			SignedAt: l.DecidedAt,
		})
	}

	directManagerID := uuid.Nil
	if requester.ManagerID != nil {
		directManagerID = *requester.ManagerID
	}
	return signature.Resolve(requesterSigner, directManagerID, approvers), nil
}

func documentLines(leaveReq *request.LeaveRequest, requester *employee.Employee, slots []signature.ResolvedSlot) []string {
	lines := []string{
		"LEAVE REQUEST DOCUMENT",
		fmt.Sprintf("Document No: LR-%06d", leaveReq.RequestNumber),
		fmt.Sprintf("Employee: %s", requester.FullName),
		fmt.Sprintf("Period: %s to %s", leaveReq.StartDate.Format("2006-01-02"), leaveReq.EndDate.Format("2006-01-02")),
		fmt.Sprintf("Working days: %d", leaveReq.WorkingDays),
		fmt.Sprintf("Status: %s", leaveReq.Status),
		"",
		"Signatures:",
	}
	for _, slot := range slots {
		state := "unsigned"
		switch {
		case !slot.Required:
			state = "not required"
		case slot.SignedAt != nil:
			state = "signed " + slot.SignedAt.Format("2006-01-02")
		}
		lines = append(lines, fmt.Sprintf("  %s: %s (%s)", slotLabel(slot.Role), slot.Name, state))
	}
	return lines
}

func slotLabel(role domain.SignatureRole) string {
	switch role {
	case domain.SignatureEmployee:
		return "Employee"
	case domain.SignatureManager:
		return "Manager"
	case domain.SignatureDepartmentManager:
		return "Department Manager"
	case domain.SignatureExecutive:
		return "Executive"
	case domain.SignatureHR:
		return "HR"
	}
	return string(role)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
