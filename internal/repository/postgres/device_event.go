package postgres

import (
	"context"
	"database/sql"
	"time"

	"simtinel/internal/domain"
	"simtinel/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type DeviceEventRepository struct {
	db *sqlx.DB
}

func NewDeviceEventRepository(db *sqlx.DB) *DeviceEventRepository {
	return &DeviceEventRepository{db: db}
}

func (r *DeviceEventRepository) Create(ctx context.Context, e *domain.DeviceEvent) error {
	query := `
		INSERT INTO device_events (id, account_id, event_type, old_imei, new_imei, location, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.AccountID, e.EventType, e.OldIMEI, e.NewIMEI, e.Location, e.CreatedAt,
	)
	return errors.Wrap(err, "failed to create device event")
}

// LatestByAccount returns the most recent device event for the account.
// Its NewIMEI is the account's current device identity.
func (r *DeviceEventRepository) LatestByAccount(ctx context.Context, accountID uuid.UUID) (*domain.DeviceEvent, error) {
	var e domain.DeviceEvent
	query := `
		SELECT id, account_id, event_type, old_imei, new_imei, location, created_at
		FROM device_events
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.GetContext(ctx, &e, query, accountID)
	if err == sql.ErrNoRows {
		return nil, errors.ErrDeviceEventNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find latest device event")
	}
	return &e, nil
}

// HasSwapSince reports whether an imei_change event exists for the account at
// or after the given instant. A zero time consults the whole history.
func (r *DeviceEventRepository) HasSwapSince(ctx context.Context, accountID uuid.UUID, since time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM device_events
			WHERE account_id = $1 AND event_type = $2 AND created_at >= $3
		)
	`
	err := r.db.GetContext(ctx, &exists, query, accountID, domain.DeviceEventIMEIChange, since)
	if err != nil {
		return false, errors.Wrap(err, "failed to check swap history")
	}
	return exists, nil
}

func (r *DeviceEventRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.DeviceEvent, error) {
	var events []*domain.DeviceEvent
	query := `
		SELECT id, account_id, event_type, old_imei, new_imei, location, created_at
		FROM device_events
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	err := r.db.SelectContext(ctx, &events, query, accountID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list device events")
	}
	return events, nil
}
