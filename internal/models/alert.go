package models

import "time"

// Severity ranks an alert event.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Channel is one alert delivery mechanism.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelInApp Channel = "in_app"
)

// Outcome is what happened on one channel for one alert.
type Outcome string

const (
	OutcomeSuccess  Outcome = "SUCCESS"
	OutcomeFailed   Outcome = "FAILED"
	OutcomeDisabled Outcome = "DISABLED"
)

// AlertSource tells which trigger produced an alert.
type AlertSource string

const (
	SourceSensor  AlertSource = "sensor"
	SourceWeather AlertSource = "weather"
)

// AlertEvent is the input to a single dispatch.
type AlertEvent struct {
	Source         AlertSource `json:"source"`
	ReadingID      *int64      `json:"reading_id,omitempty"`
	FarmID         int64       `json:"farm_id"`
	FarmerID       int64       `json:"farmer_id"`
	SensorType     SensorType  `json:"sensor_type"`
	Value          float64     `json:"value"`
	Unit           string      `json:"unit"`
	ThresholdValue float64     `json:"threshold_value"`
	Severity       Severity    `json:"severity"`
	Rule           string      `json:"rule,omitempty"`
}

// AlertRecord is the immutable audit row written once per dispatch.
type AlertRecord struct {
	ID               int64       `json:"id"`
	Source           AlertSource `json:"source"`
	ReadingID        *int64      `json:"reading_id,omitempty"`
	FarmID           int64       `json:"farm_id"`
	FarmerID         int64       `json:"farmer_id"`
	SensorType       SensorType  `json:"sensor_type"`
	Value            float64     `json:"value"`
	ThresholdValue   float64     `json:"threshold_value"`
	Severity         Severity    `json:"severity"`
	Title            string      `json:"title"`
	Message          string      `json:"message"`
	SMSStatus        Outcome     `json:"sms_status"`
	EmailStatus      Outcome     `json:"email_status"`
	InAppStatus      Outcome     `json:"in_app_status"`
	NotificationSent bool        `json:"notification_sent"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Outcome returns the recorded outcome for ch.
func (r AlertRecord) Outcome(ch Channel) Outcome {
	switch ch {
	case ChannelSMS:
		return r.SMSStatus
	case ChannelEmail:
		return r.EmailStatus
	case ChannelInApp:
		return r.InAppStatus
	}
	return ""
}
