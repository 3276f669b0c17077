package client

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"customer-portal/config"
	"customer-portal/pkg/circuitbreaker"
)

const providerTwilio = "twilio"

// TwilioClient sends WhatsApp messages through the Twilio Messages API.
type TwilioClient struct {
	rc      *resty.Client
	cfg     config.TwilioConfig
	breaker *circuitbreaker.CircuitBreaker
}

func NewTwilioClient(cfg config.TwilioConfig, breaker *circuitbreaker.CircuitBreaker) *TwilioClient {
	rc := newRestClient(cfg.BaseURL, cfg.Timeout).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken)
	return &TwilioClient{rc: rc, cfg: cfg, breaker: breaker}
}

type twilioMessage struct {
	SID     string `json:"sid"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Send posts one message and returns the provider message SID. There is no retry.
func (c *TwilioClient) Send(ctx context.Context, to, body string) (string, error) {
	if !c.cfg.Configured() {
		return "", ErrNotConfigured
	}

	var sid string
	err := call(ctx, c.breaker, providerTwilio, "send", func(ctx context.Context) error {
		var out twilioMessage
		resp, err := c.rc.R().
			SetContext(ctx).
			SetPathParam("sid", c.cfg.AccountSID).
			SetFormData(map[string]string{
				"From": c.cfg.From,
				"To":   to,
				"Body": body,
			}).
			SetResult(&out).
			SetError(&out).
			Post("/2010-04-01/Accounts/{sid}/Messages.json")
		if err != nil {
			return fmt.Errorf("twilio request failed: %w", err)
		}
		if resp.IsError() || out.SID == "" {
			msg := out.Message
			if msg == "" {
				msg = "Twilio error"
			}
			return &ProviderError{Provider: providerTwilio, Status: resp.StatusCode(), Message: msg}
		}
		sid = out.SID
		return nil
	})
	return sid, err
}
