package employee

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"leaveflow/internal/domain"
)

type Employee struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	DepartmentID *uuid.UUID `gorm:"type:uuid"`
	ManagerID    *uuid.UUID `gorm:"type:uuid"`
	FullName     string     `gorm:"size:255;not null"`
	Email        string     `gorm:"uniqueIndex"`
	Role         string     `gorm:"type:varchar(30);not null;default:'EMPLOYEE'"`
	// JoinDate drives entitlement pro-rating for mid-year joiners.
	JoinDate  time.Time      `gorm:"type:date;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// OrgRole returns the employee's organizational role as the closed domain
// variant. Unknown persisted labels degrade to plain employee.
func (e *Employee) OrgRole() domain.Role {
	r, _ := domain.ParseRole(e.Role)
	return r
}

type Department struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID  uuid.UUID  `gorm:"type:uuid;not null"`
	Name       string     `gorm:"size:255;not null"`
	DirectorID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}
