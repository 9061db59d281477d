package db

import (
	"context"
	"fmt"

	"farm-alert-service/internal/models"
)

// InsertReading writes a reading with status NORMAL and returns the id assigned by the
// same INSERT statement. The write happens inside a transaction so a failure leaves no row.
func (d *DB) InsertReading(ctx context.Context, r models.SensorReading) (int64, error) {
	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to begin reading insert: %v", models.ErrPersistence, err)
	}

	query := `
	INSERT INTO sensor_readings (farm_id, sensor_type, value, unit, note, status, recorded_at)
	VALUES ($1, $2, $3, $4, $5, 'NORMAL', NOW())
	RETURNING id`

	var id int64
	err = tx.QueryRow(ctx, query, r.FarmID, string(r.SensorType), r.Value, r.Unit, r.Note).Scan(&id)
	if err != nil {
		_ = tx.Rollback(ctx)
		return 0, fmt.Errorf("%w: failed to insert reading: %v", models.ErrPersistence, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: failed to commit reading: %v", models.ErrPersistence, err)
	}
	return id, nil
}

// UpdateReadingStatus moves a NORMAL reading to its classified status. A reading is
// reclassified at most once; a second call reports not found.
func (d *DB) UpdateReadingStatus(ctx context.Context, id int64, status models.Status) error {
	query := `
	UPDATE sensor_readings
	SET status = $1
	WHERE id = $2 AND status = 'NORMAL'`

	result, err := d.Pool.Exec(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("%w: failed to update reading status: %v", models.ErrPersistence, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("reading %d not found or already classified: %w", id, models.ErrNotFound)
	}
	return nil
}
