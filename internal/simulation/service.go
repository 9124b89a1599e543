// Package simulation injects a synthetic SIM swap plus a large transaction
// for an account and drives the full detection pipeline, end to end. Each
// step commits independently; there is no cross-step rollback, and the steps
// actually executed are reported back to the caller.
package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"simtinel/internal/domain"
	"simtinel/internal/fraud"
	"simtinel/internal/realtime"
	"simtinel/internal/risk"
	"simtinel/internal/sms"
	"simtinel/pkg/errors"
	"simtinel/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// SimulatedIMEI is the synthetic identifier injected by every simulation.
	SimulatedIMEI = "999999999999999"
	// DefaultOldIMEI stands in when the account has no device history.
	DefaultOldIMEI = "111111111111111"
	// SimulatedLocation marks injected device events.
	SimulatedLocation = "Unknown (Simulated)"
)

// simulatedAmount is at the large-amount threshold, so the verdict is driven
// by the swap rule alone.
var simulatedAmount = decimal.NewFromInt(50000)

const (
	StepSwapCreated        = "SIM Swap Event Created"
	StepTransactionCreated = "Suspicious Transaction Created"
	StepAnalysisPerformed  = "Rule-Based Analysis Performed"
	StepSMSSent            = "Alert SMS Sent"
	StepSMSSkipped         = "SMS Skipped (no phone)"
)

var alertMessages = []string{
	"ALERT: SIM swap detected on %s. Rs.50,000 transaction blocked. Call 1800-SIMTINEL if not you.",
	"SIMTinel: Unusual login from new device. Your account is temporarily locked for safety.",
	"WARNING: Your SIM card was changed. A Rs.50,000 transfer was attempted. Reply STOP to block.",
	"FRAUD ALERT: Suspicious activity on your account. New device detected. Contact support immediately.",
	"SIMTinel Security: SIM swap attempt detected. Transaction of Rs.50,000 has been held for verification.",
	"URGENT: Your number %s was ported to a new SIM. All transactions are paused.",
	"SIMTinel: High-risk transaction blocked. New IMEI detected on your account. Verify identity to proceed.",
	"SECURITY: Your SIM was swapped. Unauthorized Rs.50,000 NETBANKING attempt blocked by SIMTinel.",
}

type AccountStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindByPhone(ctx context.Context, phone string) (*domain.Account, error)
	LatestWithPhone(ctx context.Context) (*domain.Account, error)
}

type DeviceEventStore interface {
	Create(ctx context.Context, event *domain.DeviceEvent) error
	LatestByAccount(ctx context.Context, accountID uuid.UUID) (*domain.DeviceEvent, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx *domain.Transaction) error
}

// Pipeline is the slice of the fraud service the orchestrator drives.
type Pipeline interface {
	Evaluate(ctx context.Context, tx *domain.Transaction) (risk.Verdict, error)
	Emit(ctx context.Context, tx *domain.Transaction, verdict risk.Verdict, features domain.Metadata) (*fraud.Emission, error)
}

type Notifier interface {
	Send(ctx context.Context, class sms.Class, to, body string) (*sms.Result, error)
}

type Broadcaster interface {
	Broadcast(alert *realtime.Alert)
}

type Service struct {
	accounts     AccountStore
	deviceEvents DeviceEventStore
	transactions TransactionStore
	pipeline     Pipeline
	notifier     Notifier
	broadcaster  Broadcaster
	logger       logger.Logger
	pickMessage  func(phone string) string
}

func NewService(
	accounts AccountStore,
	deviceEvents DeviceEventStore,
	transactions TransactionStore,
	pipeline Pipeline,
	notifier Notifier,
	broadcaster Broadcaster,
	log logger.Logger,
) *Service {
	return &Service{
		accounts:     accounts,
		deviceEvents: deviceEvents,
		transactions: transactions,
		pipeline:     pipeline,
		notifier:     notifier,
		broadcaster:  broadcaster,
		logger:       log,
		pickMessage:  randomAlertMessage,
	}
}

func randomAlertMessage(phone string) string {
	template := alertMessages[rand.Intn(len(alertMessages))]
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, phone)
	}
	return template
}

// Input selects the simulation target. With neither field set, the most
// recently registered account with a phone number is targeted.
type Input struct {
	AccountID *uuid.UUID
	Phone     string
}

// Result reports the ordered steps executed and the verdict produced. Steps
// is populated even when the run fails partway, so callers can see how far
// the saga got.
type Result struct {
	Message string        `json:"message"`
	Steps   []string      `json:"steps"`
	Target  TargetAccount `json:"target"`
	Verdict risk.Verdict  `json:"analysis"`
	AlertID *uuid.UUID    `json:"alert_id,omitempty"`
	SMS     *sms.Result   `json:"sms,omitempty"`
}

type TargetAccount struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone string    `json:"phone,omitempty"`
}

func (s *Service) resolveTarget(ctx context.Context, in Input) (*domain.Account, error) {
	switch {
	case in.AccountID != nil:
		return s.accounts.FindByID(ctx, *in.AccountID)
	case in.Phone != "":
		return s.accounts.FindByPhone(ctx, in.Phone)
	default:
		account, err := s.accounts.LatestWithPhone(ctx)
		if err != nil {
			return nil, err
		}
		s.logger.Info("auto-targeting latest account", map[string]interface{}{
			"account_id": account.ID.String(),
			"name":       account.Name,
		})
		return account, nil
	}
}

// Run executes the simulation saga. On a partial failure the returned Result
// carries every step that committed before the error.
func (s *Service) Run(ctx context.Context, in Input) (*Result, error) {
	account, err := s.resolveTarget(ctx, in)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Target: TargetAccount{ID: account.ID, Name: account.Name},
	}
	phone := ""
	if account.Phone != nil {
		phone = *account.Phone
		result.Target.Phone = phone
	}

	// Step 1: inject the swap.
	oldIMEI := DefaultOldIMEI
	if last, err := s.deviceEvents.LatestByAccount(ctx, account.ID); err == nil {
		oldIMEI = last.NewIMEI
	}
	event := &domain.DeviceEvent{
		ID:        uuid.New(),
		AccountID: account.ID,
		EventType: domain.DeviceEventIMEIChange,
		OldIMEI:   &oldIMEI,
		NewIMEI:   SimulatedIMEI,
		Location:  SimulatedLocation,
		CreatedAt: time.Now(),
	}
	if err := s.deviceEvents.Create(ctx, event); err != nil {
		return result, errors.Wrap(err, "failed to inject swap event")
	}
	result.Steps = append(result.Steps, StepSwapCreated)

	// Step 2: inject the transaction.
	tx := &domain.Transaction{
		ID:        uuid.New(),
		AccountID: account.ID,
		Amount:    simulatedAmount,
		Channel:   domain.ChannelNetbanking,
		Status:    domain.TransactionStatusInitiated,
		CreatedAt: time.Now(),
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return result, errors.Wrap(err, "failed to inject transaction")
	}
	result.Steps = append(result.Steps, StepTransactionCreated)

	// Step 3: analyze and persist the verdict.
	verdict, err := s.pipeline.Evaluate(ctx, tx)
	if err != nil {
		return result, err
	}
	emission, err := s.pipeline.Emit(ctx, tx, verdict, domain.Metadata{"simulated": true})
	if err != nil {
		return result, err
	}
	result.Verdict = verdict
	result.AlertID = emission.AlertID
	result.Steps = append(result.Steps, StepAnalysisPerformed)

	// Step 4: alert SMS, best effort.
	if phone != "" {
		res, err := s.notifier.Send(ctx, sms.ClassAlert, phone, s.pickMessage(phone))
		if err != nil {
			s.logger.Warn("simulation sms rejected", map[string]interface{}{"error": err.Error()})
		} else {
			result.SMS = res
		}
		result.Steps = append(result.Steps, StepSMSSent)
	} else {
		result.Steps = append(result.Steps, StepSMSSkipped)
	}

	// Fan out to realtime subscribers regardless of SMS outcome.
	sender := phone
	if sender == "" {
		sender = fraud.BroadcastSender
	}
	s.broadcaster.Broadcast(&realtime.Alert{
		Sender:    sender,
		Message:   fmt.Sprintf("CRITICAL: Unauthorized SIM swap detected on %s. A ₹50,000 transaction was blocked. Verify your identity immediately.", phone),
		Severity:  string(verdict.Level),
		Timestamp: time.Now(),
	})

	result.Message = "Simulation Complete"
	return result, nil
}
