package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leaveflow/internal/shared/contextutil"
)

// Recorder appends audit entries. A failed append is logged, never returned:
// audit must not fail the primary operation it describes.
//
//go:generate mockgen -source=audit_repo.go -destination=mock/audit_repo_mock.go -package=mock
type Recorder interface {
	Record(ctx context.Context, companyID, action, entityType, entityID, reason string, before, after any)
}

type recorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewRecorder(db *gorm.DB, logger ...*zap.Logger) Recorder {
	l := zap.L().Named("audit")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit")
	}
	return &recorder{db: db, logger: l}
}

func (r *recorder) Record(ctx context.Context, companyID, action, entityType, entityID, reason string, before, after any) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		r.logger.Warn("audit entry dropped, bad company id", zap.String("company_id", companyID))
		return
	}

	entry := Entry{
		ID:         uuid.New(),
		CompanyID:  companyUUID,
		ActorID:    contextutil.GetActorID(ctx),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}
	if before != nil {
		entry.Before, _ = json.Marshal(before)
	}
	if after != nil {
		entry.After, _ = json.Marshal(after)
	}

	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		r.logger.Error("audit append failed",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}

// Nop returns a Recorder that drops everything. Used by tests.
func Nop() Recorder {
	return nopRecorder{}
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, string, string, string, string, any, any) {}
