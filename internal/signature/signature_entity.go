package signature

import (
	"time"

	"github.com/google/uuid"

	"leaveflow/internal/domain"
)

// Signature is one occupied slot on a generated leave document. The unique
// index enforces at most one signature per (document, signer, role); a second
// insert for the same slot is treated as already attached, not as an error,
// which is what lets a later regeneration backfill only the missing slots.
type Signature struct {
	ID         uuid.UUID            `gorm:"type:uuid;primaryKey"`
	CompanyID  uuid.UUID            `gorm:"type:uuid;not null;index"`
	DocumentID uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_signatures_slot"`
	SignerID   uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_signatures_slot"`
	Role       domain.SignatureRole `gorm:"type:varchar(30);not null;uniqueIndex:idx_signatures_slot"`
	// Required is false for a collapsed slot: the signer already carries a
	// required signature under another label on the same document.
	Required   bool   `gorm:"not null;default:true"`
	SignerName string `gorm:"size:255;not null"`
	// Payload is the captured signature data carried over from the approval
	// level, empty for slots rendered as a blank signing line.
	Payload  *string `gorm:"type:text"`
	SignedAt *time.Time

	CreatedAt time.Time
}

func (Signature) TableName() string {
	return "document_signatures"
}
