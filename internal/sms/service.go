// Package sms is the notification gate: phone normalization, per-class daily
// quotas, and best-effort delivery with graceful degradation. Delivery
// failures never propagate as errors to callers; the message falls back to a
// logged status instead.
package sms

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"simtinel/pkg/errors"
	"simtinel/pkg/logger"
)

type Status string

const (
	// StatusSent means the gateway accepted the message.
	StatusSent Status = "sent"
	// StatusLogged means the message was recorded locally only, either
	// because the daily quota was exhausted or the gateway failed.
	StatusLogged Status = "logged"
	// StatusQueued is returned in mock mode when no gateway credential is
	// configured.
	StatusQueued Status = "queued"
)

// Result is the outcome of a send attempt. Quota exhaustion and transport
// failures are normal outcomes, not errors.
type Result struct {
	RequestID   string `json:"request_id"`
	Status      Status `json:"status"`
	RateLimited bool   `json:"rate_limited,omitempty"`
	Fallback    bool   `json:"fallback,omitempty"`
	Remaining   int    `json:"remaining"`
}

type Service struct {
	provider Provider
	quota    *Quota
	logger   logger.Logger
	now      func() time.Time
}

// NewService builds the gate. A nil provider puts the service in mock mode:
// sends are logged and reported as queued without touching any gateway.
func NewService(provider Provider, quota *Quota, log logger.Logger) *Service {
	return &Service{
		provider: provider,
		quota:    quota,
		logger:   log,
		now:      time.Now,
	}
}

var nonDigits = regexp.MustCompile(`[\s\-()]`)
var tenDigits = regexp.MustCompile(`^\d{10}$`)

// Sanitize normalizes an Indian phone number to its 10-digit local form.
// It strips separators and the +91 / 91 country prefix.
func Sanitize(phone string) string {
	cleaned := nonDigits.ReplaceAllString(phone, "")
	cleaned = strings.TrimPrefix(cleaned, "+91")
	if len(cleaned) == 12 && strings.HasPrefix(cleaned, "91") {
		cleaned = cleaned[2:]
	}
	return cleaned
}

// Send delivers body to the given number subject to the class quota. The
// returned error is non-nil only for caller mistakes (missing or malformed
// recipient); delivery problems degrade to a logged Result.
func (s *Service) Send(ctx context.Context, class Class, to, body string) (*Result, error) {
	if to == "" {
		return nil, errors.ErrNoRecipient
	}

	phone := Sanitize(to)
	if !tenDigits.MatchString(phone) {
		return nil, errors.Wrap(errors.ErrInvalidPhone,
			fmt.Sprintf("number %q did not normalize to 10 digits", to))
	}

	// Always record the message locally for visibility, whatever happens next.
	s.logger.Info("outbound sms", map[string]interface{}{
		"to":    phone,
		"body":  body,
		"class": string(class),
	})

	if !s.quota.Reserve(class) {
		_, limit := s.quota.Remaining(class)
		s.logger.Warn("daily sms limit reached, message logged only", map[string]interface{}{
			"class": string(class),
			"limit": limit,
		})
		return &Result{
			RequestID:   fmt.Sprintf("RATE_LIMITED_%d", s.now().UnixMilli()),
			Status:      StatusLogged,
			RateLimited: true,
			Remaining:   0,
		}, nil
	}

	if s.provider == nil {
		// Mock mode consumes no quota.
		s.quota.Release(class)
		s.logger.Info("sms gateway not configured, mock send", nil)
		remaining, _ := s.quota.Remaining(class)
		return &Result{
			RequestID: fmt.Sprintf("MOCK_%d", s.now().UnixMilli()),
			Status:    StatusQueued,
			Remaining: remaining,
		}, nil
	}

	requestID, err := s.provider.Send(ctx, phone, body)
	if err != nil {
		s.quota.Release(class)
		s.logger.Error("sms delivery failed, falling back to logged", map[string]interface{}{
			"error": err.Error(),
		})
		remaining, _ := s.quota.Remaining(class)
		return &Result{
			RequestID: fmt.Sprintf("FALLBACK_%d", s.now().UnixMilli()),
			Status:    StatusLogged,
			Fallback:  true,
			Remaining: remaining,
		}, nil
	}

	remaining, _ := s.quota.Remaining(class)
	s.logger.Info("sms sent", map[string]interface{}{
		"request_id": requestID,
		"remaining":  remaining,
	})
	return &Result{
		RequestID: requestID,
		Status:    StatusSent,
		Remaining: remaining,
	}, nil
}

// RemainingQuota reports today's remaining sends and the configured limit for
// a class.
func (s *Service) RemainingQuota(class Class) (remaining, limit int) {
	return s.quota.Remaining(class)
}
