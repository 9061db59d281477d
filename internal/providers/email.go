package providers

import (
	"context"
	"fmt"

	"farm-alert-service/internal/config"
	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
	"farm-alert-service/pkg/email"
)

// MailSender is the transport behind the email gateway.
type MailSender interface {
	Send(ctx context.Context, m email.Message) (string, error)
}

// Email is the email gateway. Without SMTP settings every send reports ErrProviderMisconfigured.
type Email struct {
	sender   MailSender
	fromName string
	logger   *logging.Logger
}

// NewEmail builds the gateway from config, logging once when SMTP is not configured.
func NewEmail(cfg config.Config, logger *logging.Logger) *Email {
	if !cfg.EmailConfigured() {
		logger.Warnf("Email provider not configured: SMTPServer, SMTPPort, Username, or Password is empty")
		return &Email{logger: logger}
	}
	return &Email{
		sender: email.Sender{
			Server:   cfg.Email.SMTPServer,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			Timeout:  cfg.Alert.ChannelTimeout,
		},
		fromName: cfg.Email.FromName,
		logger:   logger,
	}
}

// NewEmailWithSender wraps an existing transport.
func NewEmailWithSender(sender MailSender, fromName string, logger *logging.Logger) *Email {
	return &Email{sender: sender, fromName: fromName, logger: logger}
}

func (e *Email) Configured() bool {
	return e != nil && e.sender != nil
}

// Send mails subject and body to address and returns the Message-ID.
func (e *Email) Send(ctx context.Context, address, subject, body string) (string, error) {
	if !e.Configured() {
		return "", models.ErrProviderMisconfigured
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	id, err := e.sender.Send(ctx, email.Message{
		FromName: e.fromName,
		To:       address,
		Subject:  subject,
		Body:     body,
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to send email to %s: %v", models.ErrProviderUnavailable, address, err)
	}
	e.logger.Debugf("Email sent to %s (message_id=%s)", address, id)
	return id, nil
}
