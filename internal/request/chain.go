package request

import (
	"context"

	"go.uber.org/zap"

	"leaveflow/internal/domain"
	"leaveflow/internal/employee"
	requesterrors "leaveflow/internal/request/errors"
)

// PlannedLevel is one step of a freshly built approval chain, before it is
// persisted as an ApprovalLevel row.
type PlannedLevel struct {
	Ordinal  int
	Approver *employee.Employee
}

// ChainBuilder determines the ordered approval levels for a new request from
// the requester's position in the org chart.
//
// Default policy: level 1 is the direct manager (or, absent one, the
// department director); level 2 is the department director. When manager and
// director are the same person only one level is created: the higher
// requirement is simply not generated, so that person never has to approve
// twice. Executive self-requests get a single peer-executive level instead.
type ChainBuilder struct {
	employees employee.Repository
	logger    *zap.Logger
}

func NewChainBuilder(employees employee.Repository, logger ...*zap.Logger) *ChainBuilder {
	l := zap.L().Named("request.chain")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("request.chain")
	}
	return &ChainBuilder{employees: employees, logger: l}
}

func (b *ChainBuilder) Build(ctx context.Context, companyID string, requester *employee.Employee, peerApproverID *string) ([]PlannedLevel, error) {
	if requester.OrgRole() == domain.RoleExecutive {
		return b.buildExecutiveChain(ctx, companyID, requester, peerApproverID)
	}

	manager, err := b.employees.ManagerOf(ctx, companyID, requester.ID.String())
	if err != nil {
		return nil, err
	}
	director, err := b.employees.DirectorOf(ctx, companyID, requester.ID.String())
	if err != nil {
		return nil, err
	}

	// A director requesting leave should not approve it themselves.
	if director != nil && director.ID == requester.ID {
		director = nil
	}
	if manager != nil && manager.ID == requester.ID {
		manager = nil
	}

	var levels []PlannedLevel

	first := manager
	if first == nil {
		first = director
	}
	if first == nil {
		// No org-chart approver at all: route to HR, then any executive.
		fallback, err := b.employees.FirstWithRole(ctx, companyID,
			domain.RoleHR.String(), domain.RoleExecutive.String())
		if err != nil {
			return nil, err
		}
		if fallback == nil {
			return nil, requesterrors.ErrNoApproverAvailable
		}
		first = fallback
	}
	levels = append(levels, PlannedLevel{Ordinal: 1, Approver: first})

	// Second level only when the director is a distinct person; otherwise the
	// single level already covers both roles.
	if director != nil && director.ID != first.ID {
		levels = append(levels, PlannedLevel{Ordinal: 2, Approver: director})
	} else if director != nil {
		b.logger.Debug("director level collapsed into manager level",
			zap.String("approver_id", first.ID.String()),
		)
	}

	return levels, nil
}

func (b *ChainBuilder) buildExecutiveChain(ctx context.Context, companyID string, requester *employee.Employee, peerApproverID *string) ([]PlannedLevel, error) {
	if peerApproverID == nil || *peerApproverID == "" {
		return nil, requesterrors.ErrPeerApproverRequired
	}

	peer, err := b.employees.FindByIDAndCompany(ctx, companyID, *peerApproverID)
	if err != nil {
		return nil, requesterrors.ErrPeerApproverInvalid
	}
	if peer.ID == requester.ID || peer.OrgRole() != domain.RoleExecutive {
		return nil, requesterrors.ErrPeerApproverInvalid
	}

	return []PlannedLevel{{Ordinal: 1, Approver: peer}}, nil
}
