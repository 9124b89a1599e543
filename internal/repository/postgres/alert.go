package postgres

import (
	"context"
	"database/sql"

	"simtinel/internal/domain"
	"simtinel/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type AlertRepository struct {
	db *sqlx.DB
}

func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, a *domain.Alert) error {
	query := `
		INSERT INTO alerts (id, prediction_id, severity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.PredictionID, a.Severity, a.Status, a.CreatedAt, a.UpdatedAt,
	)
	return errors.Wrap(err, "failed to create alert")
}

func (r *AlertRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	var a domain.Alert
	query := `
		SELECT id, prediction_id, severity, status, created_at, updated_at
		FROM alerts WHERE id = $1
	`
	err := r.db.GetContext(ctx, &a, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrAlertNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find alert")
	}
	return &a, nil
}

func (r *AlertRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AlertStatus) error {
	query := `UPDATE alerts SET status = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return errors.Wrap(err, "failed to update alert status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.ErrAlertNotFound
	}
	return nil
}

// RecentFeed returns the latest alerts joined with their predictions and the
// affected account's phone, newest first.
func (r *AlertRepository) RecentFeed(ctx context.Context, limit int) ([]*domain.AlertFeedItem, error) {
	var items []*domain.AlertFeedItem
	query := `
		SELECT a.id, a.severity, p.risk_score, p.reasons, acc.phone, a.created_at
		FROM alerts a
		JOIN predictions p ON a.prediction_id = p.id
		JOIN transactions t ON p.transaction_id = t.id
		JOIN accounts acc ON t.account_id = acc.id
		ORDER BY a.created_at DESC
		LIMIT $1
	`
	err := r.db.SelectContext(ctx, &items, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch alert feed")
	}
	return items, nil
}

// Incidents returns alerts joined across the pipeline tables for the admin
// incident list, newest first.
func (r *AlertRepository) Incidents(ctx context.Context, limit int) ([]*domain.Incident, error) {
	var incidents []*domain.Incident
	query := `
		SELECT a.id, acc.id AS account_id, acc.name AS account_name,
		       a.severity, a.status, p.decision, p.risk_score, t.created_at AS occurred_at
		FROM alerts a
		JOIN predictions p ON a.prediction_id = p.id
		JOIN transactions t ON p.transaction_id = t.id
		JOIN accounts acc ON t.account_id = acc.id
		ORDER BY a.created_at DESC
		LIMIT $1
	`
	err := r.db.SelectContext(ctx, &incidents, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch incidents")
	}
	return incidents, nil
}

// CountActive counts alerts still awaiting resolution.
func (r *AlertRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM alerts WHERE status IN ($1, $2)`
	err := r.db.GetContext(ctx, &count, query, domain.AlertStatusOpen, domain.AlertStatusInReview)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count active alerts")
	}
	return count, nil
}
