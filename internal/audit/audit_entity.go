package audit

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one append-only audit row. Written for every request state
// transition, balance mutation and escalation.
type Entry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_company_entity"`
	ActorID    string    `gorm:"size:36;not null"`
	Action     string    `gorm:"size:60;not null"`
	EntityType string    `gorm:"size:40;not null;index:idx_audit_company_entity"`
	EntityID   string    `gorm:"size:36;not null;index:idx_audit_company_entity"`
	Before     []byte    `gorm:"type:jsonb"`
	After      []byte    `gorm:"type:jsonb"`
	Reason     string    `gorm:"type:text"`
	CreatedAt  time.Time
}

func (Entry) TableName() string {
	return "audit_entries"
}
