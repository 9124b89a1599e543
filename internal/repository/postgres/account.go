package postgres

import (
	"context"
	"database/sql"

	"simtinel/internal/domain"
	"simtinel/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Email, a.Phone, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			return errors.ErrAccountExists
		}
		return errors.Wrap(err, "failed to create account")
	}
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	query := `
		SELECT id, name, email, phone, created_at, updated_at
		FROM accounts WHERE id = $1
	`
	err := r.db.GetContext(ctx, &a, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrAccountNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account")
	}
	return &a, nil
}

func (r *AccountRepository) FindByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	var a domain.Account
	query := `
		SELECT id, name, email, phone, created_at, updated_at
		FROM accounts WHERE phone = $1
	`
	err := r.db.GetContext(ctx, &a, query, phone)
	if err == sql.ErrNoRows {
		return nil, errors.ErrAccountNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find account by phone")
	}
	return &a, nil
}

// LatestWithPhone returns the most recently registered account that has a
// reachable phone number. Used to auto-target simulations.
func (r *AccountRepository) LatestWithPhone(ctx context.Context) (*domain.Account, error) {
	var a domain.Account
	query := `
		SELECT id, name, email, phone, created_at, updated_at
		FROM accounts
		WHERE phone IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.GetContext(ctx, &a, query)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNoEligibleAccount
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find latest account with phone")
	}
	return &a, nil
}

func (r *AccountRepository) UpdatePhone(ctx context.Context, id uuid.UUID, phone string) error {
	query := `UPDATE accounts SET phone = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, phone, id)
	if err != nil {
		return errors.Wrap(err, "failed to update primary phone")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	var accounts []*domain.Account
	query := `
		SELECT id, name, email, phone, created_at, updated_at
		FROM accounts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	err := r.db.SelectContext(ctx, &accounts, query, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list accounts")
	}
	return accounts, nil
}

func (r *AccountRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM accounts`
	err := r.db.GetContext(ctx, &total, query)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count accounts")
	}
	return total, nil
}
