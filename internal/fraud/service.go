// Package fraud orchestrates the detection pipeline: it gathers swap history
// and transaction velocity for an account, runs the rule engine, persists the
// resulting prediction and alert, and fans the verdict out over SMS and the
// realtime feed.
package fraud

import (
	"context"
	"fmt"
	"regexp"
	"strings"
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
)

type AccountStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
}

type DeviceEventStore interface {
	HasSwapSince(ctx context.Context, accountID uuid.UUID, since time.Time) (bool, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	CountRecentByAccount(ctx context.Context, accountID uuid.UUID, window time.Duration) (int, error)
}

type PredictionStore interface {
	Create(ctx context.Context, p *domain.Prediction) error
}

type AlertStore interface {
	Create(ctx context.Context, a *domain.Alert) error
}

// Notifier is the notification gate. Delivery problems surface in the Result,
// not as errors.
type Notifier interface {
	Send(ctx context.Context, class sms.Class, to, body string) (*sms.Result, error)
}

// Broadcaster pushes verdicts to connected realtime subscribers.
type Broadcaster interface {
	Broadcast(alert *realtime.Alert)
}

// BroadcastSender identifies the system on the realtime feed when no account
// phone is available.
const BroadcastSender = "SIMTinel Security"

type Service struct {
	accounts     AccountStore
	deviceEvents DeviceEventStore
	transactions TransactionStore
	predictions  PredictionStore
	alerts       AlertStore
	engine       *risk.Engine
	notifier     Notifier
	broadcaster  Broadcaster
	cfg          config.FraudConfig
	logger       logger.Logger
}

func NewService(
	accounts AccountStore,
	deviceEvents DeviceEventStore,
	transactions TransactionStore,
	predictions PredictionStore,
	alerts AlertStore,
	engine *risk.Engine,
	notifier Notifier,
	broadcaster Broadcaster,
	cfg config.FraudConfig,
	log logger.Logger,
) *Service {
	return &Service{
		accounts:     accounts,
		deviceEvents: deviceEvents,
		transactions: transactions,
		predictions:  predictions,
		alerts:       alerts,
		engine:       engine,
		notifier:     notifier,
		broadcaster:  broadcaster,
		cfg:          cfg,
		logger:       log,
	}
}

// amountPattern matches rupee amounts in SMS bodies, e.g. "Rs. 50,000.00",
// "INR 1200", "₹999".
var amountPattern = regexp.MustCompile(`(?i)(?:Rs\.?|INR|₹)\s*([\d,]+(?:\.\d{2})?)`)

// ParseAmount extracts the first currency amount from an SMS body. Texts
// without a recognizable amount yield zero.
func ParseAmount(smsText string) decimal.Decimal {
	match := amountPattern.FindStringSubmatch(smsText)
	if match == nil {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(match[1], ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// AnalyzeInput is an SMS-derived transaction signal submitted for analysis.
type AnalyzeInput struct {
	AccountID     uuid.UUID
	SMSText       string
	DeviceContext map[string]interface{}
}

// Analysis is the outcome of running the pipeline over one transaction.
type Analysis struct {
	TransactionID uuid.UUID    `json:"transaction_id"`
	Verdict       risk.Verdict `json:"analysis"`
	PredictionID  uuid.UUID    `json:"prediction_id"`
	AlertID       *uuid.UUID   `json:"alert_id,omitempty"`
	SMS           *sms.Result  `json:"sms,omitempty"`
}

// AnalyzeSignal records a transaction derived from an SMS signal, evaluates
// it, and emits the verdict. The verdict and its prediction are always
// persisted; notification failures never fail the analysis.
func (s *Service) AnalyzeSignal(ctx context.Context, in AnalyzeInput) (*Analysis, error) {
	account, err := s.accounts.FindByID(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:        uuid.New(),
		AccountID: account.ID,
		Amount:    ParseAmount(in.SMSText),
		Channel:   domain.ChannelOther,
		Status:    domain.TransactionStatusInitiated,
		CreatedAt: time.Now(),
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, errors.Wrap(err, "failed to record transaction")
	}

	verdict, err := s.Evaluate(ctx, tx)
	if err != nil {
		return nil, err
	}

	features := domain.Metadata{
		"sms":     in.SMSText,
		"context": in.DeviceContext,
	}
	emission, err := s.Emit(ctx, tx, verdict, features)
	if err != nil {
		return nil, err
	}

	result := &Analysis{
		TransactionID: tx.ID,
		Verdict:       verdict,
		PredictionID:  emission.PredictionID,
		AlertID:       emission.AlertID,
	}

	if emission.AlertID != nil && account.Phone != nil {
		body := fmt.Sprintf("FRAUD ALERT: %s Contact support immediately.", verdict.Reasons[0])
		res, err := s.notifier.Send(ctx, sms.ClassAlert, *account.Phone, body)
		if err != nil {
			s.logger.Warn("alert notification rejected", map[string]interface{}{
				"account_id": account.ID.String(),
				"error":      err.Error(),
			})
		} else {
			result.SMS = res
		}
	}

	sender := BroadcastSender
	if account.Phone != nil {
		sender = *account.Phone
	}
	s.broadcaster.Broadcast(&realtime.Alert{
		Sender:    sender,
		Message:   verdict.Summary,
		Severity:  string(verdict.Level),
		Timestamp: time.Now(),
	})

	return result, nil
}

// Evaluate gathers the account's swap history and transaction velocity and
// runs the rule engine over the transaction. It performs no writes.
func (s *Service) Evaluate(ctx context.Context, tx *domain.Transaction) (risk.Verdict, error) {
	// Zero lookback means any swap on record counts as recent.
	var since time.Time
	if s.cfg.SwapLookback > 0 {
		since = time.Now().Add(-s.cfg.SwapLookback)
	}
	hadSwap, err := s.deviceEvents.HasSwapSince(ctx, tx.AccountID, since)
	if err != nil {
		return risk.Verdict{}, errors.Wrap(err, "failed to check swap history")
	}

	velocity, err := s.transactions.CountRecentByAccount(ctx, tx.AccountID, s.cfg.VelocityWindow)
	if err != nil {
		return risk.Verdict{}, errors.Wrap(err, "failed to count recent transactions")
	}

	verdict := s.engine.Evaluate(risk.Input{
		Amount:        tx.Amount,
		HadRecentSwap: hadSwap,
		VelocityCount: velocity,
	})

	s.logger.Info("transaction evaluated", map[string]interface{}{
		"transaction_id": tx.ID.String(),
		"account_id":     tx.AccountID.String(),
		"risk_score":     verdict.Score,
		"risk_level":     string(verdict.Level),
		"decision":       string(verdict.Decision),
	})
	return verdict, nil
}

// Emission records what Emit persisted for a verdict.
type Emission struct {
	PredictionID uuid.UUID
	AlertID      *uuid.UUID
}

// Emit persists the prediction for a verdict and, when the severity warrants,
// opens an alert referencing it. Both writes commit independently; an alert
// failure does not roll back the prediction.
func (s *Service) Emit(ctx context.Context, tx *domain.Transaction, verdict risk.Verdict, features domain.Metadata) (*Emission, error) {
	prediction := &domain.Prediction{
		ID:            uuid.New(),
		TransactionID: tx.ID,
		RiskScore:     verdict.Score,
		RiskLevel:     verdict.Level,
		Decision:      verdict.Decision,
		Features:      features,
		Reasons:       verdict.Reasons,
		CreatedAt:     time.Now(),
	}
	if err := s.predictions.Create(ctx, prediction); err != nil {
		return nil, errors.Wrap(err, "failed to persist prediction")
	}

	emission := &Emission{PredictionID: prediction.ID}
	if verdict.Level.AlertWorthy() {
		alert := &domain.Alert{
			ID:           uuid.New(),
			PredictionID: prediction.ID,
			Severity:     verdict.Level,
			Status:       domain.AlertStatusOpen,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}
		if err := s.alerts.Create(ctx, alert); err != nil {
			return nil, errors.Wrap(err, "failed to open alert")
		}
		emission.AlertID = &alert.ID
	}
	return emission, nil
}
