package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"farm-alert-service/internal/models"
)

// GetAlertPreference returns the farmer's saved preference or ErrNotFound.
func (d *DB) GetAlertPreference(ctx context.Context, farmerID int64) (models.AlertPreference, error) {
	query := `
	SELECT farmer_id, temperature_high, temperature_low, rainfall_high, wind_high,
	       humidity_high, humidity_low, sms_enabled, email_enabled, in_app_enabled, updated_at
	FROM alert_preferences
	WHERE farmer_id = $1`

	var p models.AlertPreference
	err := d.Pool.QueryRow(ctx, query, farmerID).Scan(
		&p.FarmerID,
		&p.TemperatureHigh,
		&p.TemperatureLow,
		&p.RainfallHigh,
		&p.WindHigh,
		&p.HumidityHigh,
		&p.HumidityLow,
		&p.SMSEnabled,
		&p.EmailEnabled,
		&p.InAppEnabled,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AlertPreference{}, fmt.Errorf("alert preference for farmer %d: %w", farmerID, models.ErrNotFound)
		}
		return models.AlertPreference{}, fmt.Errorf("failed to get alert preference for farmer %d: %w", farmerID, err)
	}
	return p, nil
}

// UpsertAlertPreference inserts or replaces the farmer's preference.
func (d *DB) UpsertAlertPreference(ctx context.Context, p models.AlertPreference) (models.AlertPreference, error) {
	query := `
	INSERT INTO alert_preferences (
		farmer_id, temperature_high, temperature_low, rainfall_high, wind_high,
		humidity_high, humidity_low, sms_enabled, email_enabled, in_app_enabled, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	ON CONFLICT (farmer_id) DO UPDATE
	SET temperature_high = EXCLUDED.temperature_high,
	    temperature_low = EXCLUDED.temperature_low,
	    rainfall_high = EXCLUDED.rainfall_high,
	    wind_high = EXCLUDED.wind_high,
	    humidity_high = EXCLUDED.humidity_high,
	    humidity_low = EXCLUDED.humidity_low,
	    sms_enabled = EXCLUDED.sms_enabled,
	    email_enabled = EXCLUDED.email_enabled,
	    in_app_enabled = EXCLUDED.in_app_enabled,
	    updated_at = NOW()
	RETURNING updated_at`

	err := d.Pool.QueryRow(ctx, query,
		p.FarmerID,
		p.TemperatureHigh,
		p.TemperatureLow,
		p.RainfallHigh,
		p.WindHigh,
		p.HumidityHigh,
		p.HumidityLow,
		p.SMSEnabled,
		p.EmailEnabled,
		p.InAppEnabled,
	).Scan(&p.UpdatedAt)
	if err != nil {
		return models.AlertPreference{}, fmt.Errorf("%w: failed to upsert alert preference: %v", models.ErrPersistence, err)
	}
	return p, nil
}
