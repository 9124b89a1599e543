package device

import (
	"context"
	"testing"

	"simtinel/internal/domain"
	"simtinel/pkg/errors"
	"simtinel/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockEventStore struct{ mock.Mock }

func (m *MockEventStore) Create(ctx context.Context, event *domain.DeviceEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventStore) LatestByAccount(ctx context.Context, accountID uuid.UUID) (*domain.DeviceEvent, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeviceEvent), args.Error(1)
}

func (m *MockEventStore) FindByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.DeviceEvent, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DeviceEvent), args.Error(1)
}

func TestRegisterFirstDevice(t *testing.T) {
	store := new(MockEventStore)
	svc := NewService(store, logger.NewNop())
	accountID := uuid.New()

	store.On("LatestByAccount", mock.Anything, accountID).Return(nil, errors.ErrDeviceEventNotFound)
	store.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.DeviceEvent) bool {
		return e.EventType == domain.DeviceEventNewSIM && e.OldIMEI == nil && e.NewIMEI == "123456789012345"
	})).Return(nil)

	status, event, err := svc.Register(context.Background(), accountID, "123456789012345", "Mumbai")
	require.NoError(t, err)
	assert.Equal(t, StatusNewSIM, status)
	assert.Equal(t, "Mumbai", event.Location)
	store.AssertExpectations(t)
}

func TestRegisterChangedIMEI(t *testing.T) {
	store := new(MockEventStore)
	svc := NewService(store, logger.NewNop())
	accountID := uuid.New()

	last := &domain.DeviceEvent{AccountID: accountID, EventType: domain.DeviceEventNewSIM, NewIMEI: "111111111111111"}
	store.On("LatestByAccount", mock.Anything, accountID).Return(last, nil)
	store.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.DeviceEvent) bool {
		return e.EventType == domain.DeviceEventIMEIChange &&
			e.OldIMEI != nil && *e.OldIMEI == "111111111111111" &&
			e.NewIMEI == "222222222222222"
	})).Return(nil)

	status, _, err := svc.Register(context.Background(), accountID, "222222222222222", "")
	require.NoError(t, err)
	assert.Equal(t, StatusIMEIChange, status)
	store.AssertExpectations(t)
}

func TestRegisterSameIMEIIsIdempotent(t *testing.T) {
	store := new(MockEventStore)
	svc := NewService(store, logger.NewNop())
	accountID := uuid.New()

	last := &domain.DeviceEvent{AccountID: accountID, NewIMEI: "111111111111111"}
	store.On("LatestByAccount", mock.Anything, accountID).Return(last, nil)

	// Repeated registrations of the current identifier never write.
	for i := 0; i < 2; i++ {
		status, event, err := svc.Register(context.Background(), accountID, "111111111111111", "Delhi")
		require.NoError(t, err)
		assert.Equal(t, StatusUnchanged, status)
		assert.Equal(t, last, event)
	}
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
