package signature

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"leaveflow/internal/tenant"
)

const uniqueViolationCode = "23505"

//go:generate mockgen -source=signature_repo.go -destination=mock/signature_repo_mock.go -package=mock
type Repository interface {
	// Insert persists a signature. Hitting the (document, signer, role)
	// unique index reports created=false instead of an error; the slot was
	// already filled.
	Insert(ctx context.Context, s *Signature) (created bool, err error)
	FindAllByDocument(ctx context.Context, companyID, documentID string) ([]Signature, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, s *Signature) (bool, error) {
	err := r.db.WithContext(ctx).Create(s).Error
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repository) FindAllByDocument(ctx context.Context, companyID, documentID string) ([]Signature, error) {
	var sigs []Signature
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Where("document_id = ?", documentID).
		Order("created_at ASC").
		Find(&sigs).Error
	return sigs, err
}
