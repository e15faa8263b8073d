package counter

import (
	"context"
	"database/sql"
)

const TypeLeaveRequest = "leave_request"

//go:generate mockgen -source=counter_repo.go -destination=mock/counter_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	GetNextValue(ctx context.Context, companyID string, counterType string) (int64, error)
}

type repository struct {
	db *sql.DB
	tx *sql.Tx
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

// GetNextValue increments and returns the per-company sequence. The atomic
// upsert handles concurrent callers racing on the same (company, type) pair.
func (r *repository) GetNextValue(ctx context.Context, companyID string, counterType string) (int64, error) {
	query := `
INSERT INTO company_counters (company_id, counter_type, last_value, updated_at)
VALUES ($1, $2, 1, NOW())
ON CONFLICT (company_id, counter_type) DO UPDATE
SET last_value = company_counters.last_value + 1, updated_at = NOW()
RETURNING last_value
`
	var nextValue int64
	err := r.querier().QueryRowContext(ctx, query, companyID, counterType).Scan(&nextValue)
	if err != nil {
		return 0, err
	}
	return nextValue, nil
}

func (r *repository) querier() interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}
