package models

import (
	"fmt"
	"time"
)

// AlertPreference holds a farmer's weather thresholds and channel toggles.
type AlertPreference struct {
	FarmerID        int64     `json:"farmer_id"`
	TemperatureHigh float64   `json:"temperature_high"`
	TemperatureLow  float64   `json:"temperature_low"`
	RainfallHigh    float64   `json:"rainfall_high"`
	WindHigh        float64   `json:"wind_high"`
	HumidityHigh    float64   `json:"humidity_high"`
	HumidityLow     float64   `json:"humidity_low"`
	SMSEnabled      bool      `json:"sms_enabled"`
	EmailEnabled    bool      `json:"email_enabled"`
	InAppEnabled    bool      `json:"in_app_enabled"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// DefaultAlertPreference is applied when a farmer has not saved preferences.
func DefaultAlertPreference(farmerID int64) AlertPreference {
	return AlertPreference{
		FarmerID:        farmerID,
		TemperatureHigh: 35,
		TemperatureLow:  5,
		RainfallHigh:    50,
		WindHigh:        40,
		HumidityHigh:    90,
		HumidityLow:     20,
		SMSEnabled:      true,
		EmailEnabled:    true,
		InAppEnabled:    true,
	}
}

// Validate checks that every low/high pair is ordered and the one-sided limits are non-negative.
func (p AlertPreference) Validate() error {
	if p.TemperatureLow >= p.TemperatureHigh {
		return fmt.Errorf("%w: temperature_low must be below temperature_high", ErrValidation)
	}
	if p.HumidityLow >= p.HumidityHigh {
		return fmt.Errorf("%w: humidity_low must be below humidity_high", ErrValidation)
	}
	if p.HumidityLow < 0 || p.HumidityHigh > 100 {
		return fmt.Errorf("%w: humidity thresholds must be within 0-100", ErrValidation)
	}
	if p.RainfallHigh < 0 || p.WindHigh < 0 {
		return fmt.Errorf("%w: rainfall_high and wind_high must be non-negative", ErrValidation)
	}
	return nil
}
