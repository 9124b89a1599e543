package fraud

import (
	"context"
	"testing"
	"time"

	"simtinel/internal/domain"
	"simtinel/internal/realtime"
	"simtinel/internal/risk"
	"simtinel/internal/sms"
	"simtinel/pkg/config"
	"simtinel/pkg/errors"
	"simtinel/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAccountStore struct{ mock.Mock }

func (m *MockAccountStore) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

type MockDeviceEventStore struct{ mock.Mock }

func (m *MockDeviceEventStore) HasSwapSince(ctx context.Context, accountID uuid.UUID, since time.Time) (bool, error) {
	args := m.Called(ctx, accountID, since)
	return args.Bool(0), args.Error(1)
}

type MockTransactionStore struct{ mock.Mock }

func (m *MockTransactionStore) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionStore) CountRecentByAccount(ctx context.Context, accountID uuid.UUID, window time.Duration) (int, error) {
	args := m.Called(ctx, accountID, window)
	return args.Int(0), args.Error(1)
}

type MockPredictionStore struct{ mock.Mock }

func (m *MockPredictionStore) Create(ctx context.Context, p *domain.Prediction) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type MockAlertStore struct{ mock.Mock }

func (m *MockAlertStore) Create(ctx context.Context, a *domain.Alert) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) Send(ctx context.Context, class sms.Class, to, body string) (*sms.Result, error) {
	args := m.Called(ctx, class, to, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sms.Result), args.Error(1)
}

type MockBroadcaster struct{ mock.Mock }

func (m *MockBroadcaster) Broadcast(alert *realtime.Alert) {
	m.Called(alert)
}

type serviceMocks struct {
	accounts     *MockAccountStore
	deviceEvents *MockDeviceEventStore
	transactions *MockTransactionStore
	predictions  *MockPredictionStore
	alerts       *MockAlertStore
	notifier     *MockNotifier
	broadcaster  *MockBroadcaster
}

func newTestService() (*Service, *serviceMocks) {
	cfg := config.FraudConfig{
		LargeAmountThreshold: 50000,
		VelocityThreshold:    5,
		VelocityWindow:       10 * time.Minute,
		SwapLookback:         24 * time.Hour,
	}
	m := &serviceMocks{
		accounts:     new(MockAccountStore),
		deviceEvents: new(MockDeviceEventStore),
		transactions: new(MockTransactionStore),
		predictions:  new(MockPredictionStore),
		alerts:       new(MockAlertStore),
		notifier:     new(MockNotifier),
		broadcaster:  new(MockBroadcaster),
	}
	svc := NewService(
		m.accounts, m.deviceEvents, m.transactions, m.predictions, m.alerts,
		risk.NewEngine(cfg), m.notifier, m.broadcaster, cfg, logger.NewNop(),
	)
	return svc, m
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Debit of Rs. 50,000.00 from your account", "50000"},
		{"INR 1200 transferred to merchant", "1200"},
		{"₹999 spent at store", "999"},
		{"rs.75000 withdrawal attempted", "75000"},
		{"Your OTP is 482913", "0"},
		{"", "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseAmount(tt.text).String(), "text %q", tt.text)
	}
}

func TestAnalyzeSignalCleanTransaction(t *testing.T) {
	svc, m := newTestService()
	phone := "9876543210"
	account := &domain.Account{ID: uuid.New(), Name: "Asha", Phone: &phone}

	m.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	m.transactions.On("Create", mock.Anything, mock.MatchedBy(func(tx *domain.Transaction) bool {
		return tx.AccountID == account.ID &&
			tx.Channel == domain.ChannelOther &&
			tx.Status == domain.TransactionStatusInitiated &&
			tx.Amount.Equal(decimal.NewFromInt(1200))
	})).Return(nil)
	m.deviceEvents.On("HasSwapSince", mock.Anything, account.ID, mock.Anything).Return(false, nil)
	m.transactions.On("CountRecentByAccount", mock.Anything, account.ID, 10*time.Minute).Return(1, nil)
	m.predictions.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.broadcaster.On("Broadcast", mock.Anything).Return()

	res, err := svc.AnalyzeSignal(context.Background(), AnalyzeInput{
		AccountID: account.ID,
		SMSText:   "INR 1200 debited from your account",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RiskLevelLow, res.Verdict.Level)
	assert.Equal(t, domain.DecisionAllow, res.Verdict.Decision)
	assert.Nil(t, res.AlertID)
	assert.Nil(t, res.SMS)

	// Low-severity verdicts open no alert and send no SMS, but still broadcast.
	m.alerts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.broadcaster.AssertCalled(t, "Broadcast", mock.Anything)
}

func TestAnalyzeSignalSwapOpensAlertAndNotifies(t *testing.T) {
	svc, m := newTestService()
	phone := "9876543210"
	account := &domain.Account{ID: uuid.New(), Name: "Asha", Phone: &phone}

	m.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	m.transactions.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.deviceEvents.On("HasSwapSince", mock.Anything, account.ID, mock.Anything).Return(true, nil)
	m.transactions.On("CountRecentByAccount", mock.Anything, account.ID, mock.Anything).Return(1, nil)
	m.predictions.On("Create", mock.Anything, mock.MatchedBy(func(p *domain.Prediction) bool {
		return p.RiskLevel == domain.RiskLevelCritical && p.Decision == domain.DecisionBlock
	})).Return(nil)
	m.alerts.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Alert) bool {
		return a.Severity == domain.RiskLevelCritical && a.Status == domain.AlertStatusOpen
	})).Return(nil)
	m.notifier.On("Send", mock.Anything, sms.ClassAlert, phone, mock.Anything).
		Return(&sms.Result{RequestID: "req-1", Status: sms.StatusSent}, nil)
	m.broadcaster.On("Broadcast", mock.MatchedBy(func(a *realtime.Alert) bool {
		return a.Sender == phone && a.Severity == string(domain.RiskLevelCritical)
	})).Return()

	res, err := svc.AnalyzeSignal(context.Background(), AnalyzeInput{
		AccountID: account.ID,
		SMSText:   "Rs. 500 debited",
	})
	require.NoError(t, err)

	require.NotNil(t, res.AlertID)
	require.NotNil(t, res.SMS)
	assert.Equal(t, sms.StatusSent, res.SMS.Status)
	m.alerts.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
	m.broadcaster.AssertExpectations(t)
}

func TestAnalyzeSignalNoPhoneSkipsNotification(t *testing.T) {
	svc, m := newTestService()
	account := &domain.Account{ID: uuid.New(), Name: "Ravi"}

	m.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	m.transactions.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.deviceEvents.On("HasSwapSince", mock.Anything, account.ID, mock.Anything).Return(true, nil)
	m.transactions.On("CountRecentByAccount", mock.Anything, account.ID, mock.Anything).Return(0, nil)
	m.predictions.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.alerts.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.broadcaster.On("Broadcast", mock.MatchedBy(func(a *realtime.Alert) bool {
		return a.Sender == BroadcastSender
	})).Return()

	res, err := svc.AnalyzeSignal(context.Background(), AnalyzeInput{
		AccountID: account.ID,
		SMSText:   "Rs 100",
	})
	require.NoError(t, err)

	require.NotNil(t, res.AlertID)
	assert.Nil(t, res.SMS)
	m.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.broadcaster.AssertExpectations(t)
}

func TestAnalyzeSignalNotificationFailureDoesNotFailAnalysis(t *testing.T) {
	svc, m := newTestService()
	phone := "9876543210"
	account := &domain.Account{ID: uuid.New(), Phone: &phone}

	m.accounts.On("FindByID", mock.Anything, account.ID).Return(account, nil)
	m.transactions.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.deviceEvents.On("HasSwapSince", mock.Anything, account.ID, mock.Anything).Return(true, nil)
	m.transactions.On("CountRecentByAccount", mock.Anything, account.ID, mock.Anything).Return(0, nil)
	m.predictions.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.alerts.On("Create", mock.Anything, mock.Anything).Return(nil)
	m.notifier.On("Send", mock.Anything, sms.ClassAlert, phone, mock.Anything).
		Return(nil, errors.ErrInvalidPhone)
	m.broadcaster.On("Broadcast", mock.Anything).Return()

	res, err := svc.AnalyzeSignal(context.Background(), AnalyzeInput{
		AccountID: account.ID,
		SMSText:   "Rs 100",
	})
	require.NoError(t, err)
	require.NotNil(t, res.AlertID)
	assert.Nil(t, res.SMS)
}

func TestAnalyzeSignalUnknownAccount(t *testing.T) {
	svc, m := newTestService()
	id := uuid.New()
	m.accounts.On("FindByID", mock.Anything, id).Return(nil, errors.ErrAccountNotFound)

	_, err := svc.AnalyzeSignal(context.Background(), AnalyzeInput{AccountID: id})
	require.ErrorIs(t, err, errors.ErrAccountNotFound)
	m.transactions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEvaluateZeroLookbackChecksFullHistory(t *testing.T) {
	cfg := config.FraudConfig{
		LargeAmountThreshold: 50000,
		VelocityThreshold:    5,
		VelocityWindow:       10 * time.Minute,
		SwapLookback:         0,
	}
	m := &serviceMocks{
		accounts:     new(MockAccountStore),
		deviceEvents: new(MockDeviceEventStore),
		transactions: new(MockTransactionStore),
		predictions:  new(MockPredictionStore),
		alerts:       new(MockAlertStore),
		notifier:     new(MockNotifier),
		broadcaster:  new(MockBroadcaster),
	}
	svc := NewService(
		m.accounts, m.deviceEvents, m.transactions, m.predictions, m.alerts,
		risk.NewEngine(cfg), m.notifier, m.broadcaster, cfg, logger.NewNop(),
	)

	tx := &domain.Transaction{ID: uuid.New(), AccountID: uuid.New(), Amount: decimal.NewFromInt(100)}
	m.deviceEvents.On("HasSwapSince", mock.Anything, tx.AccountID, time.Time{}).Return(false, nil)
	m.transactions.On("CountRecentByAccount", mock.Anything, tx.AccountID, mock.Anything).Return(0, nil)

	verdict, err := svc.Evaluate(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskLevelLow, verdict.Level)
	m.deviceEvents.AssertExpectations(t)
}
