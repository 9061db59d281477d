package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"farm-alert-service/internal/models"
)

// GetThresholdOverride returns the farmer's override for a sensor type, or nil when none is saved.
func (d *DB) GetThresholdOverride(ctx context.Context, farmerID int64, sensorType models.SensorType) (*models.ThresholdOverride, error) {
	query := `
	SELECT farmer_id, sensor_type, critical_min, critical_max, advisory_min, advisory_max, updated_at
	FROM threshold_overrides
	WHERE farmer_id = $1 AND sensor_type = $2`

	var o models.ThresholdOverride
	var st string
	err := d.Pool.QueryRow(ctx, query, farmerID, string(sensorType)).Scan(
		&o.FarmerID,
		&st,
		&o.CriticalMin,
		&o.CriticalMax,
		&o.AdvisoryMin,
		&o.AdvisoryMax,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get threshold override for farmer %d/%s: %w", farmerID, sensorType, err)
	}
	o.SensorType = models.SensorType(st)
	return &o, nil
}

// UpsertThresholdOverride inserts or replaces the farmer's override for a sensor type.
func (d *DB) UpsertThresholdOverride(ctx context.Context, o models.ThresholdOverride) (models.ThresholdOverride, error) {
	query := `
	INSERT INTO threshold_overrides (
		farmer_id, sensor_type, critical_min, critical_max, advisory_min, advisory_max, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	ON CONFLICT (farmer_id, sensor_type) DO UPDATE
	SET critical_min = EXCLUDED.critical_min,
	    critical_max = EXCLUDED.critical_max,
	    advisory_min = EXCLUDED.advisory_min,
	    advisory_max = EXCLUDED.advisory_max,
	    updated_at = NOW()
	RETURNING updated_at`

	err := d.Pool.QueryRow(ctx, query,
		o.FarmerID,
		string(o.SensorType),
		o.CriticalMin,
		o.CriticalMax,
		o.AdvisoryMin,
		o.AdvisoryMax,
	).Scan(&o.UpdatedAt)
	if err != nil {
		return models.ThresholdOverride{}, fmt.Errorf("%w: failed to upsert threshold override: %v", models.ErrPersistence, err)
	}
	return o, nil
}
