package providers

import (
	"context"
	"fmt"

	"farm-alert-service/internal/config"
	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
	"farm-alert-service/pkg/sms"
)

// TextSender is the vendor client behind the SMS gateway.
type TextSender interface {
	Send(toNumber, body string) (string, error)
}

// SMS is the SMS gateway. Without credentials every send reports ErrProviderMisconfigured.
type SMS struct {
	sender TextSender
	logger *logging.Logger
}

// NewSMS builds the gateway from config, logging once when Twilio is not configured.
func NewSMS(cfg config.Config, logger *logging.Logger) *SMS {
	if !cfg.SMSConfigured() {
		logger.Warnf("SMS provider not configured: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN or TWILIO_FROM_NUMBER is empty")
		return &SMS{logger: logger}
	}
	return &SMS{
		sender: sms.New(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.FromNumber),
		logger: logger,
	}
}

// NewSMSWithSender wraps an existing vendor client.
func NewSMSWithSender(sender TextSender, logger *logging.Logger) *SMS {
	return &SMS{sender: sender, logger: logger}
}

// Configured reports whether sends can be attempted.
func (s *SMS) Configured() bool {
	return s != nil && s.sender != nil
}

// Send delivers message to an E.164 phone number and returns the provider's message id.
func (s *SMS) Send(ctx context.Context, phone, message string) (string, error) {
	if !s.Configured() {
		return "", models.ErrProviderMisconfigured
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	id, err := s.sender.Send(phone, message)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	s.logger.Debugf("SMS sent to %s (sid=%s)", phone, id)
	return id, nil
}
