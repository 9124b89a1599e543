package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"simtinel/internal/domain"
	"simtinel/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, account_id, amount, channel, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.AccountID, tx.Amount, tx.Channel, tx.Status, tx.CreatedAt,
	)
	return errors.Wrap(err, "failed to create transaction")
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var tx domain.Transaction
	query := `
		SELECT id, account_id, amount, channel, status, created_at
		FROM transactions WHERE id = $1
	`
	err := r.db.GetContext(ctx, &tx, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrTransactionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find transaction")
	}
	return &tx, nil
}

// CountRecentByAccount counts the account's transactions inside the trailing
// window. Evaluated per analysis, never cached, because the count feeds the
// velocity rule directly.
func (r *TransactionRepository) CountRecentByAccount(ctx context.Context, accountID uuid.UUID, window time.Duration) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM transactions
		WHERE account_id = $1 AND created_at > NOW() - $2::INTERVAL
	`
	interval := fmt.Sprintf("%d seconds", int(window.Seconds()))

	err := r.db.GetContext(ctx, &count, query, accountID, interval)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count recent transactions")
	}
	return count, nil
}

func (r *TransactionRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	query := `
		SELECT id, account_id, amount, channel, status, created_at
		FROM transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	err := r.db.SelectContext(ctx, &txs, query, accountID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list transactions")
	}
	return txs, nil
}
