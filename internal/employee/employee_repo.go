package employee

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"leaveflow/internal/tenant"
)

// Repository is the read-only org-chart lookup surface the lifecycle engine
// needs. Employee and department CRUD live outside this service.
//
//go:generate mockgen -source=employee_repo.go -destination=mock/employee_repo_mock.go -package=mock
type Repository interface {
	FindByIDAndCompany(ctx context.Context, companyID, id string) (*Employee, error)
	// ManagerOf resolves the direct manager, or nil when the employee has none.
	ManagerOf(ctx context.Context, companyID, employeeID string) (*Employee, error)
	// DirectorOf resolves the director of the employee's department, or nil.
	DirectorOf(ctx context.Context, companyID, employeeID string) (*Employee, error)
	// FirstWithRole returns the first active employee holding one of the given
	// role labels, in the order the labels are passed.
	FirstWithRole(ctx context.Context, companyID string, roles ...string) (*Employee, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID, id string) (*Employee, error) {
	var e Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&e, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) ManagerOf(ctx context.Context, companyID, employeeID string) (*Employee, error) {
	e, err := r.FindByIDAndCompany(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}
	if e.ManagerID == nil {
		return nil, nil
	}

	var m Employee
	err = r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&m, "id = ?", e.ManagerID.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) DirectorOf(ctx context.Context, companyID, employeeID string) (*Employee, error) {
	e, err := r.FindByIDAndCompany(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}
	if e.DepartmentID == nil {
		return nil, nil
	}

	var d Department
	err = r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&d, "id = ?", e.DepartmentID.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if d.DirectorID == nil {
		return nil, nil
	}

	var dir Employee
	err = r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&dir, "id = ?", d.DirectorID.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &dir, nil
}

func (r *repository) FirstWithRole(ctx context.Context, companyID string, roles ...string) (*Employee, error) {
	for _, role := range roles {
		var e Employee
		err := r.db.WithContext(ctx).
			Scopes(tenant.Scope(companyID)).
			Where("role = ?", role).
			Order("created_at ASC").
			First(&e).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &e, nil
	}
	return nil, nil
}
