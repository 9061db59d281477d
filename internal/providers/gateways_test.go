package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm-alert-service/internal/config"
	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
	"farm-alert-service/pkg/email"
)

type stubText struct {
	to, body string
	err      error
}

func (s *stubText) Send(to, body string) (string, error) {
	s.to, s.body = to, body
	if s.err != nil {
		return "", s.err
	}
	return "SM123", nil
}

type stubMail struct {
	got email.Message
	err error
}

func (s *stubMail) Send(_ context.Context, m email.Message) (string, error) {
	s.got = m
	if s.err != nil {
		return "", s.err
	}
	return "<abc@smtp.example.com>", nil
}

func TestSMS_Send(t *testing.T) {
	stub := &stubText{}
	gw := NewSMSWithSender(stub, logging.NewNop())

	id, err := gw.Send(context.Background(), "+15550001111", "frost warning")
	require.NoError(t, err)
	assert.Equal(t, "SM123", id)
	assert.Equal(t, "+15550001111", stub.to)
	assert.Equal(t, "frost warning", stub.body)
}

func TestSMS_ProviderErrorIsUnavailable(t *testing.T) {
	gw := NewSMSWithSender(&stubText{err: errors.New("503")}, logging.NewNop())

	_, err := gw.Send(context.Background(), "+15550001111", "x")
	assert.True(t, errors.Is(err, models.ErrProviderUnavailable))
}

func TestSMS_NotConfigured(t *testing.T) {
	gw := NewSMS(config.Config{}, logging.NewNop())
	assert.False(t, gw.Configured())

	_, err := gw.Send(context.Background(), "+15550001111", "x")
	assert.True(t, errors.Is(err, models.ErrProviderMisconfigured))
}

func TestEmail_Send(t *testing.T) {
	stub := &stubMail{}
	gw := NewEmailWithSender(stub, "Farm Alerts", logging.NewNop())

	id, err := gw.Send(context.Background(), "ana@example.com", "subject", "body")
	require.NoError(t, err)
	assert.Equal(t, "<abc@smtp.example.com>", id)
	assert.Equal(t, "Farm Alerts", stub.got.FromName)
	assert.Equal(t, "ana@example.com", stub.got.To)
}

func TestEmail_NotConfigured(t *testing.T) {
	gw := NewEmail(config.Config{}, logging.NewNop())
	assert.False(t, gw.Configured())

	_, err := gw.Send(context.Background(), "ana@example.com", "s", "b")
	assert.True(t, errors.Is(err, models.ErrProviderMisconfigured))
}
