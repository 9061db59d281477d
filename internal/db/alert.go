package db

import (
	"context"
	"fmt"

	"farm-alert-service/internal/models"
)

// CreateAlertRecord inserts the audit row for one dispatch and returns it with its id.
func (d *DB) CreateAlertRecord(ctx context.Context, rec models.AlertRecord) (models.AlertRecord, error) {
	query := `
    INSERT INTO alert_records (
        source, reading_id, farm_id, farmer_id, sensor_type, value, threshold_value, severity,
        title, message, sms_status, email_status, in_app_status, notification_sent, created_at
    ) VALUES (
        $1, $2, $3, $4, $5, $6, $7, $8,
        $9, $10, $11, $12, $13, $14, $15
    )
    RETURNING id`

	err := d.Pool.QueryRow(ctx, query,
		string(rec.Source),
		rec.ReadingID,
		rec.FarmID,
		rec.FarmerID,
		string(rec.SensorType),
		rec.Value,
		rec.ThresholdValue,
		string(rec.Severity),
		rec.Title,
		rec.Message,
		string(rec.SMSStatus),
		string(rec.EmailStatus),
		string(rec.InAppStatus),
		rec.NotificationSent,
		rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return models.AlertRecord{}, fmt.Errorf("%w: failed to insert alert record: %v", models.ErrPersistence, err)
	}
	return rec, nil
}

// GetAlertRecordsByFarmer fetches a farmer's alert history, newest first, with the total count.
func (d *DB) GetAlertRecordsByFarmer(ctx context.Context, farmerID int64, limit, offset int) ([]models.AlertRecord, int, error) {
	var total int
	if err := d.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM alert_records WHERE farmer_id = $1`, farmerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count alert records: %w", err)
	}

	query := `
	SELECT
		id, source, reading_id, farm_id, farmer_id, sensor_type, value, threshold_value, severity,
		title, message, sms_status, email_status, in_app_status, notification_sent, created_at
	FROM alert_records
	WHERE farmer_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2 OFFSET $3`

	rows, err := d.Pool.Query(ctx, query, farmerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get alert records: %w", err)
	}
	defer rows.Close()

	var list []models.AlertRecord
	for rows.Next() {
		var (
			rec                                 models.AlertRecord
			source, sensorType, severity        string
			smsStatus, emailStatus, inAppStatus string
		)
		err := rows.Scan(
			&rec.ID,
			&source,
			&rec.ReadingID,
			&rec.FarmID,
			&rec.FarmerID,
			&sensorType,
			&rec.Value,
			&rec.ThresholdValue,
			&severity,
			&rec.Title,
			&rec.Message,
			&smsStatus,
			&emailStatus,
			&inAppStatus,
			&rec.NotificationSent,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan alert record: %w", err)
		}
		rec.Source = models.AlertSource(source)
		rec.SensorType = models.SensorType(sensorType)
		rec.Severity = models.Severity(severity)
		rec.SMSStatus = models.Outcome(smsStatus)
		rec.EmailStatus = models.Outcome(emailStatus)
		rec.InAppStatus = models.Outcome(inAppStatus)
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate alert records: %w", err)
	}

	return list, total, nil
}
