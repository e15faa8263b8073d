package leavetype

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	lterrors "leaveflow/internal/leavetype/errors"
)

//go:generate mockgen -source=leavetype_service.go -destination=mock/leavetype_service_mock.go -package=mock
type Service interface {
	Create(ctx context.Context, companyID string, req CreateLeaveTypeRequest) (LeaveTypeResponse, error)
	GetAll(ctx context.Context, companyID string) ([]LeaveTypeResponse, error)
	GetByID(ctx context.Context, companyID, id string) (LeaveTypeResponse, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger ...*zap.Logger) Service {
	l := zap.L().Named("leavetype.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("leavetype.service")
	}
	return &service{repo: repo, logger: l}
}

func (s *service) Create(ctx context.Context, companyID string, req CreateLeaveTypeRequest) (LeaveTypeResponse, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return LeaveTypeResponse{}, lterrors.ErrInvalidCompanyID
	}
	if req.CarryForwardEnabled && req.MaxCarryForward == 0 {
		return LeaveTypeResponse{}, lterrors.ErrCarryForwardCapRequired
	}

	lt := &LeaveType{
		ID:                       uuid.New(),
		CompanyID:                companyUUID,
		Name:                     req.Name,
		AnnualEntitlement:        req.AnnualEntitlement,
		RequiresVerification:     req.RequiresVerification,
		CarryForwardEnabled:      req.CarryForwardEnabled,
		MaxCarryForward:          req.MaxCarryForward,
		CarryForwardExpiryMonths: req.CarryForwardExpiryMonths,
	}
	if err := s.repo.Create(ctx, lt); err != nil {
		s.logger.Error("create leave type persist failed", zap.Error(err))
		return LeaveTypeResponse{}, err
	}

	s.logger.Info("leave type created",
		zap.String("leave_type_id", lt.ID.String()),
		zap.String("company_id", companyID),
		zap.String("name", lt.Name),
	)
	return mapToResponse(*lt), nil
}

func (s *service) GetAll(ctx context.Context, companyID string) ([]LeaveTypeResponse, error) {
	types, err := s.repo.FindAllByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	resp := make([]LeaveTypeResponse, len(types))
	for i, lt := range types {
		resp[i] = mapToResponse(lt)
	}
	return resp, nil
}

func (s *service) GetByID(ctx context.Context, companyID, id string) (LeaveTypeResponse, error) {
	lt, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return LeaveTypeResponse{}, lterrors.ErrLeaveTypeNotFound
		}
		return LeaveTypeResponse{}, err
	}
	return mapToResponse(*lt), nil
}

func mapToResponse(lt LeaveType) LeaveTypeResponse {
	return LeaveTypeResponse{
		ID:                       lt.ID.String(),
		CompanyID:                lt.CompanyID.String(),
		Name:                     lt.Name,
		AnnualEntitlement:        lt.AnnualEntitlement,
		RequiresVerification:     lt.RequiresVerification,
		CarryForwardEnabled:      lt.CarryForwardEnabled,
		MaxCarryForward:          lt.MaxCarryForward,
		CarryForwardExpiryMonths: lt.CarryForwardExpiryMonths,
	}
}
