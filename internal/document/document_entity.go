package document

import (
	"time"

	"github.com/google/uuid"
)

// GeneratedDocument is the archived leave document for an approved request.
// One document per request; regeneration returns the stored copy.
type GeneratedDocument struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
	RequestID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`

	DocumentNumber string `gorm:"size:50;not null"`
	ContentType    string `gorm:"size:100;not null"`
	Content        []byte `gorm:"type:bytea;not null"`

	GeneratedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt   time.Time
}

func (GeneratedDocument) TableName() string {
	return "generated_documents"
}
