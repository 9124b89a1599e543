package sms

import (
	"context"
	gerrors "errors"
	"testing"
	"time"

	"simtinel/pkg/errors"
	"simtinel/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Send(ctx context.Context, phone, body string) (string, error) {
	args := m.Called(ctx, phone, body)
	return args.String(0), args.Error(1)
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+91 98765 43210", "9876543210"},
		{"9876543210", "9876543210"},
		{"919876543210", "9876543210"},
		{"+91-98765-43210", "9876543210"},
		{"(91) 98765 43210", "9876543210"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "input %q", tt.in)
	}
}

func TestSendRejectsBadRecipients(t *testing.T) {
	svc := NewService(nil, NewQuota(3, 10), logger.NewNop())

	_, err := svc.Send(context.Background(), ClassAlert, "", "hi")
	require.ErrorIs(t, err, errors.ErrNoRecipient)

	_, err = svc.Send(context.Background(), ClassAlert, "1234567", "hi")
	require.True(t, gerrors.Is(err, errors.ErrInvalidPhone))

	_, err = svc.Send(context.Background(), ClassAlert, "98765abc43", "hi")
	require.True(t, gerrors.Is(err, errors.ErrInvalidPhone))
}

func TestSendMockMode(t *testing.T) {
	quota := NewQuota(3, 10)
	svc := NewService(nil, quota, logger.NewNop())

	res, err := svc.Send(context.Background(), ClassAlert, "+91 98765 43210", "suspicious login")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, res.Status)
	assert.Contains(t, res.RequestID, "MOCK_")

	// Mock sends consume no quota.
	remaining, limit := quota.Remaining(ClassAlert)
	assert.Equal(t, 3, remaining)
	assert.Equal(t, 3, limit)
}

func TestSendDeliversAndCountsDown(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Send", mock.Anything, "9876543210", "blocked txn").Return("req-1", nil).Once()

	quota := NewQuota(3, 10)
	svc := NewService(provider, quota, logger.NewNop())

	res, err := svc.Send(context.Background(), ClassAlert, "919876543210", "blocked txn")
	require.NoError(t, err)
	assert.Equal(t, StatusSent, res.Status)
	assert.Equal(t, "req-1", res.RequestID)
	assert.Equal(t, 2, res.Remaining)
	provider.AssertExpectations(t)
}

func TestSendQuotaExhaustion(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Send", mock.Anything, "9876543210", "alert").Return("req", nil).Times(2)

	quota := NewQuota(2, 10)
	svc := NewService(provider, quota, logger.NewNop())

	for i := 0; i < 2; i++ {
		res, err := svc.Send(context.Background(), ClassAlert, "9876543210", "alert")
		require.NoError(t, err)
		require.Equal(t, StatusSent, res.Status)
	}

	// Third call must not reach the provider.
	res, err := svc.Send(context.Background(), ClassAlert, "9876543210", "alert")
	require.NoError(t, err)
	assert.Equal(t, StatusLogged, res.Status)
	assert.True(t, res.RateLimited)
	assert.Equal(t, 0, res.Remaining)
	provider.AssertExpectations(t)

	// The generic class is unaffected.
	remaining, _ := quota.Remaining(ClassGeneric)
	assert.Equal(t, 10, remaining)
}

func TestSendTransportFailureFallsBack(t *testing.T) {
	provider := new(MockProvider)
	provider.On("Send", mock.Anything, "9876543210", "alert").
		Return("", gerrors.New("gateway timeout")).Once()

	quota := NewQuota(3, 10)
	svc := NewService(provider, quota, logger.NewNop())

	res, err := svc.Send(context.Background(), ClassAlert, "9876543210", "alert")
	require.NoError(t, err)
	assert.Equal(t, StatusLogged, res.Status)
	assert.True(t, res.Fallback)

	// Failed sends return their quota unit.
	remaining, _ := quota.Remaining(ClassAlert)
	assert.Equal(t, 3, remaining)
}

func TestQuotaDayRollover(t *testing.T) {
	now := time.Date(2026, 3, 1, 23, 50, 0, 0, time.Local)
	clock := func() time.Time { return now }
	quota := NewQuotaWithClock(1, 10, clock)

	require.True(t, quota.Reserve(ClassAlert))
	require.False(t, quota.Reserve(ClassAlert))

	now = now.Add(20 * time.Minute) // past midnight
	require.True(t, quota.Reserve(ClassAlert))
	remaining, _ := quota.Remaining(ClassAlert)
	assert.Equal(t, 0, remaining)
}

func TestQuotaReleaseNeverGoesNegative(t *testing.T) {
	quota := NewQuota(2, 10)
	quota.Release(ClassAlert)
	remaining, limit := quota.Remaining(ClassAlert)
	assert.Equal(t, 2, remaining)
	assert.Equal(t, 2, limit)
}
