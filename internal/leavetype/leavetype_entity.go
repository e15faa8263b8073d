package leavetype

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeaveType struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"size:100;not null"`

	// AnnualEntitlement is the full-year grant in working days.
	AnnualEntitlement int `gorm:"type:int;not null;default:0"`

	// RequiresVerification gates the approval chain behind an HR document
	// check (e.g. medical leave).
	RequiresVerification bool `gorm:"not null;default:false"`

	CarryForwardEnabled bool `gorm:"not null;default:false"`
	MaxCarryForward     int  `gorm:"type:int;not null;default:0"`
	// CarryForwardExpiryMonths: months into the new year after which the
	// carried balance lapses. Zero means it never expires.
	CarryForwardExpiryMonths int `gorm:"type:int;not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
