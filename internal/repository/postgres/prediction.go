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

type PredictionRepository struct {
	db *sqlx.DB
}

func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

func (r *PredictionRepository) Create(ctx context.Context, p *domain.Prediction) error {
	query := `
		INSERT INTO predictions (id, transaction_id, risk_score, risk_level, decision, features, reasons, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.TransactionID, p.RiskScore, p.RiskLevel, p.Decision, p.Features, p.Reasons, p.CreatedAt,
	)
	return errors.Wrap(err, "failed to create prediction")
}

func (r *PredictionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Prediction, error) {
	var p domain.Prediction
	query := `
		SELECT id, transaction_id, risk_score, risk_level, decision, features, reasons, created_at
		FROM predictions WHERE id = $1
	`
	err := r.db.GetContext(ctx, &p, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrPredictionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find prediction")
	}
	return &p, nil
}

// CountBlockedWithin counts BLOCK decisions recorded inside the trailing
// window, for the dashboard "threats blocked today" counter.
func (r *PredictionRepository) CountBlockedWithin(ctx context.Context, window time.Duration) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM predictions
		WHERE decision = $1 AND created_at > NOW() - $2::INTERVAL
	`
	interval := fmt.Sprintf("%d seconds", int(window.Seconds()))

	err := r.db.GetContext(ctx, &count, query, domain.DecisionBlock, interval)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count blocked predictions")
	}
	return count, nil
}
