package alert

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
	"farm-alert-service/internal/observability"
)

// DefaultChannelTimeout bounds a single channel send.
const DefaultChannelTimeout = 10 * time.Second

type ContactLookup interface {
	GetFarmContact(ctx context.Context, farmID int64) (models.FarmContact, error)
}

type PreferenceSource interface {
	GetAlertPreference(ctx context.Context, farmerID int64) (models.AlertPreference, error)
}

type SMSSender interface {
	Configured() bool
	Send(ctx context.Context, phone, message string) (string, error)
}

type EmailSender interface {
	Configured() bool
	Send(ctx context.Context, address, subject, body string) (string, error)
}

type InboxPusher interface {
	Push(ctx context.Context, n models.Notification) (models.Notification, error)
}

type Recorder interface {
	CreateAlertRecord(ctx context.Context, rec models.AlertRecord) (models.AlertRecord, error)
}

// Publisher receives every written record. Failures are logged and ignored.
type Publisher interface {
	PublishAlert(ctx context.Context, rec models.AlertRecord) error
}

// Dependencies wires a Dispatcher. SMS, Email, Inbox and Publisher may be nil.
type Dependencies struct {
	Contacts       ContactLookup
	Preferences    PreferenceSource
	SMS            SMSSender
	Email          EmailSender
	Inbox          InboxPusher
	Records        Recorder
	Publisher      Publisher
	Metrics        *observability.Metrics
	Clock          clockwork.Clock
	ChannelTimeout time.Duration
	Logger         *logging.Logger
}

// Dispatcher fans one alert event out to SMS, email and the in-app inbox and writes
// exactly one AlertRecord with the outcome of each channel.
type Dispatcher struct {
	deps Dependencies
}

func NewDispatcher(deps Dependencies) *Dispatcher {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.ChannelTimeout <= 0 {
		deps.ChannelTimeout = DefaultChannelTimeout
	}
	return &Dispatcher{deps: deps}
}

// Dispatch sends ev on every channel concurrently, waits for all of them, and records
// the result. Channel failures are captured in the record; only a contact lookup or
// record write failure is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, ev models.AlertEvent) (models.AlertRecord, error) {
	start := d.deps.Clock.Now()

	contact, err := d.deps.Contacts.GetFarmContact(ctx, ev.FarmID)
	if err != nil {
		return models.AlertRecord{}, fmt.Errorf("failed to resolve contact for farm %d: %w", ev.FarmID, err)
	}
	if ev.FarmerID == 0 {
		ev.FarmerID = contact.FarmerID
	}
	pref := d.preference(ctx, ev.FarmerID)
	title, message := Render(contact.FarmName, ev)

	var smsOut, emailOut, inAppOut models.Outcome
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		smsOut = d.sendSMS(ctx, contact, pref, title, message)
	}()
	go func() {
		defer wg.Done()
		emailOut = d.sendEmail(ctx, contact, pref, title, message)
	}()
	go func() {
		defer wg.Done()
		inAppOut = d.sendInApp(ctx, ev, pref, title, message)
	}()
	wg.Wait()

	rec := models.AlertRecord{
		Source:         ev.Source,
		ReadingID:      ev.ReadingID,
		FarmID:         ev.FarmID,
		FarmerID:       ev.FarmerID,
		SensorType:     ev.SensorType,
		Value:          ev.Value,
		ThresholdValue: ev.ThresholdValue,
		Severity:       ev.Severity,
		Title:          title,
		Message:        message,
		SMSStatus:      smsOut,
		EmailStatus:    emailOut,
		InAppStatus:    inAppOut,
		CreatedAt:      d.deps.Clock.Now().UTC(),
	}
	rec.NotificationSent = smsOut == models.OutcomeSuccess || emailOut == models.OutcomeSuccess || inAppOut == models.OutcomeSuccess

	saved, err := d.deps.Records.CreateAlertRecord(ctx, rec)
	if err != nil {
		d.deps.Logger.Errorf("Failed to write alert record for farm %d %s: %v", ev.FarmID, ev.SensorType, err)
		return models.AlertRecord{}, err
	}

	if m := d.deps.Metrics; m != nil {
		m.ChannelOutcomes.WithLabelValues(string(models.ChannelSMS), string(smsOut)).Inc()
		m.ChannelOutcomes.WithLabelValues(string(models.ChannelEmail), string(emailOut)).Inc()
		m.ChannelOutcomes.WithLabelValues(string(models.ChannelInApp), string(inAppOut)).Inc()
		m.AlertsRecorded.WithLabelValues(string(ev.Source)).Inc()
		m.DispatchDuration.Observe(d.deps.Clock.Since(start).Seconds())
	}
	d.deps.Logger.WithFields(logrus.Fields{
		"alert_id": saved.ID,
		"farm_id":  saved.FarmID,
		"sms":      smsOut,
		"email":    emailOut,
		"in_app":   inAppOut,
	}).Infof("Alert dispatched: %s", title)

	if d.deps.Publisher != nil {
		if err := d.deps.Publisher.PublishAlert(ctx, saved); err != nil {
			d.deps.Logger.Warnf("Failed to publish alert record %d: %v", saved.ID, err)
		}
	}
	return saved, nil
}

func (d *Dispatcher) preference(ctx context.Context, farmerID int64) models.AlertPreference {
	pref, err := d.deps.Preferences.GetAlertPreference(ctx, farmerID)
	if err == nil {
		return pref
	}
	if !errors.Is(err, models.ErrNotFound) {
		d.deps.Logger.Warnf("Failed to load alert preference for farmer %d, using defaults: %v", farmerID, err)
	}
	return models.DefaultAlertPreference(farmerID)
}

func (d *Dispatcher) sendSMS(ctx context.Context, contact models.FarmContact, pref models.AlertPreference, title, message string) models.Outcome {
	if !pref.SMSEnabled || contact.Phone == "" {
		return models.OutcomeDisabled
	}
	if d.deps.SMS == nil || !d.deps.SMS.Configured() {
		return models.OutcomeDisabled
	}
	return d.attempt(ctx, models.ChannelSMS, func(ctx context.Context) error {
		_, err := d.deps.SMS.Send(ctx, contact.Phone, title+"\n"+message)
		return err
	})
}

func (d *Dispatcher) sendEmail(ctx context.Context, contact models.FarmContact, pref models.AlertPreference, title, message string) models.Outcome {
	if !pref.EmailEnabled || !validEmail(contact.Email) {
		return models.OutcomeDisabled
	}
	if d.deps.Email == nil || !d.deps.Email.Configured() {
		return models.OutcomeDisabled
	}
	return d.attempt(ctx, models.ChannelEmail, func(ctx context.Context) error {
		_, err := d.deps.Email.Send(ctx, contact.Email, title, message)
		return err
	})
}

func (d *Dispatcher) sendInApp(ctx context.Context, ev models.AlertEvent, pref models.AlertPreference, title, message string) models.Outcome {
	if d.deps.Inbox == nil {
		return models.OutcomeDisabled
	}
	return d.attempt(ctx, models.ChannelInApp, func(ctx context.Context) error {
		_, err := d.deps.Inbox.Push(ctx, models.Notification{
			FarmerID: ev.FarmerID,
			Title:    title,
			Message:  message,
			Type:     string(ev.Source) + "_alert",
			Severity: ev.Severity,
			Quiet:    !pref.InAppEnabled,
		})
		return err
	})
}

// attempt runs send under the channel timeout. A send still running when the
// timeout fires is abandoned and recorded as FAILED.
func (d *Dispatcher) attempt(ctx context.Context, ch models.Channel, send func(context.Context) error) models.Outcome {
	cctx, cancel := context.WithTimeout(ctx, d.deps.ChannelTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- send(cctx)
	}()

	select {
	case err := <-done:
		switch {
		case err == nil:
			return models.OutcomeSuccess
		case errors.Is(err, models.ErrProviderMisconfigured):
			return models.OutcomeDisabled
		default:
			d.deps.Logger.Warnf("Channel %s failed: %v", ch, err)
			return models.OutcomeFailed
		}
	case <-cctx.Done():
		d.deps.Logger.Warnf("Channel %s gave up after %s: %v", ch, d.deps.ChannelTimeout, cctx.Err())
		return models.OutcomeFailed
	}
}

func validEmail(address string) bool {
	if address == "" {
		return false
	}
	parsed, err := mail.ParseAddress(address)
	return err == nil && parsed.Address == address
}
