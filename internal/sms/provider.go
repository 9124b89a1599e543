package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"simtinel/pkg/config"
)

// Provider delivers a message to a 10-digit local number and returns the
// channel's request identifier.
type Provider interface {
	Send(ctx context.Context, phone, body string) (requestID string, err error)
}

// Fast2SMSProvider delivers messages over the Fast2SMS bulk "quick SMS"
// route. The API is a GET with query parameters and a JSON body in response.
type Fast2SMSProvider struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

func NewFast2SMSProvider(cfg config.SMSConfig) *Fast2SMSProvider {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fast2SMSProvider{
		client:  &http.Client{Timeout: timeout},
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
	}
}

type fast2smsResponse struct {
	Return    bool     `json:"return"`
	RequestID string   `json:"request_id"`
	Message   []string `json:"message"`
}

func (p *Fast2SMSProvider) Send(ctx context.Context, phone, body string) (string, error) {
	params := url.Values{}
	params.Set("authorization", p.apiKey)
	params.Set("message", body)
	params.Set("language", "english")
	params.Set("route", "q")
	params.Set("numbers", phone)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("cache-control", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	var out fast2smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if !out.Return {
		return "", fmt.Errorf("sms gateway rejected message: %v", out.Message)
	}
	return out.RequestID, nil
}
