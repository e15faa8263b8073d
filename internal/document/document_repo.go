package document

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"leaveflow/internal/tenant"
)

//go:generate mockgen -source=document_repo.go -destination=mock/document_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Insert(ctx context.Context, d *GeneratedDocument) error
	// FindByRequest returns nil, nil when no document exists yet.
	FindByRequest(ctx context.Context, companyID, requestID string) (*GeneratedDocument, error)
}

type repository struct {
	db    *gorm.DB
	sqlDB *sql.DB
	tx    *sql.Tx
}

func NewRepository(db *gorm.DB, sqlDB *sql.DB) Repository {
	return &repository{db: db, sqlDB: sqlDB}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, sqlDB: r.sqlDB, tx: tx}
}

func (r *repository) Insert(ctx context.Context, d *GeneratedDocument) error {
	query := `
INSERT INTO generated_documents (
	id, company_id, request_id, document_number, content_type, content, generated_by, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
`
	_, err := r.execer().ExecContext(ctx, query,
		d.ID.String(), d.CompanyID.String(), d.RequestID.String(),
		d.DocumentNumber, d.ContentType, d.Content, d.GeneratedBy.String(),
	)
	return err
}

func (r *repository) FindByRequest(ctx context.Context, companyID, requestID string) (*GeneratedDocument, error) {
	var d GeneratedDocument
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&d, "request_id = ?", requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.sqlDB
}
