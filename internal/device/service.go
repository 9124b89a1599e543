// Package device records account device identity (SIM/IMEI) changes. The
// event log is append-only; re-registering the current identifier writes no
// new row.
package device

import (
	"context"
	goerrors "errors"
	"time"

	"simtinel/internal/domain"
	"simtinel/pkg/errors"
	"simtinel/pkg/logger"

	"github.com/google/uuid"
)

type EventStore interface {
	Create(ctx context.Context, event *domain.DeviceEvent) error
	LatestByAccount(ctx context.Context, accountID uuid.UUID) (*domain.DeviceEvent, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.DeviceEvent, error)
}

// RegistrationStatus describes the outcome of a device registration.
type RegistrationStatus string

const (
	StatusUnchanged  RegistrationStatus = "unchanged"
	StatusNewSIM     RegistrationStatus = RegistrationStatus(domain.DeviceEventNewSIM)
	StatusIMEIChange RegistrationStatus = RegistrationStatus(domain.DeviceEventIMEIChange)
)

type Service struct {
	events EventStore
	logger logger.Logger
}

func NewService(events EventStore, log logger.Logger) *Service {
	return &Service{events: events, logger: log}
}

// Register records a device identity for the account. The first registration
// is a new_sim event; a differing identifier afterwards is an imei_change;
// the same identifier again is a no-op reported as unchanged.
func (s *Service) Register(ctx context.Context, accountID uuid.UUID, imei, location string) (RegistrationStatus, *domain.DeviceEvent, error) {
	if location == "" {
		location = "Unknown"
	}

	last, err := s.events.LatestByAccount(ctx, accountID)
	if err != nil && !goerrors.Is(err, errors.ErrDeviceEventNotFound) {
		return "", nil, errors.Wrap(err, "failed to read device history")
	}

	if last != nil && last.NewIMEI == imei {
		return StatusUnchanged, last, nil
	}

	event := &domain.DeviceEvent{
		ID:        uuid.New(),
		AccountID: accountID,
		EventType: domain.DeviceEventNewSIM,
		NewIMEI:   imei,
		Location:  location,
		CreatedAt: time.Now(),
	}
	if last != nil {
		event.EventType = domain.DeviceEventIMEIChange
		old := last.NewIMEI
		event.OldIMEI = &old
		s.logger.Warn("sim swap detected", map[string]interface{}{
			"account_id": accountID.String(),
			"old_imei":   old,
			"new_imei":   imei,
		})
	}

	if err := s.events.Create(ctx, event); err != nil {
		return "", nil, errors.Wrap(err, "failed to record device event")
	}
	return RegistrationStatus(event.EventType), event, nil
}

// History returns the account's device events, newest first.
func (s *Service) History(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.DeviceEvent, error) {
	return s.events.FindByAccount(ctx, accountID, limit)
}
