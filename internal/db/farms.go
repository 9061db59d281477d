package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"farm-alert-service/internal/models"
)

// GetFarmOwner returns the farmer that owns farmID.
func (d *DB) GetFarmOwner(ctx context.Context, farmID int64) (int64, error) {
	var farmerID int64
	err := d.Pool.QueryRow(ctx, `SELECT farmer_id FROM farms WHERE id = $1`, farmID).Scan(&farmerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("farm %d: %w", farmID, models.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to get owner of farm %d: %w", farmID, err)
	}
	return farmerID, nil
}

// GetFarmContact returns the farm name and its owner's phone and email.
func (d *DB) GetFarmContact(ctx context.Context, farmID int64) (models.FarmContact, error) {
	query := `
	SELECT f.id, f.name, f.farmer_id, COALESCE(u.phone, ''), COALESCE(u.email, '')
	FROM farms f
	JOIN farmers u ON u.id = f.farmer_id
	WHERE f.id = $1`

	var c models.FarmContact
	err := d.Pool.QueryRow(ctx, query, farmID).Scan(&c.FarmID, &c.FarmName, &c.FarmerID, &c.Phone, &c.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FarmContact{}, fmt.Errorf("farm %d: %w", farmID, models.ErrNotFound)
		}
		return models.FarmContact{}, fmt.Errorf("failed to get contact for farm %d: %w", farmID, err)
	}
	return c, nil
}

// ListActiveFarms returns every active farm ordered by id.
func (d *DB) ListActiveFarms(ctx context.Context) ([]models.Farm, error) {
	query := `
	SELECT id, farmer_id, name, COALESCE(location, ''), latitude, longitude, is_active
	FROM farms
	WHERE is_active = TRUE
	ORDER BY id`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active farms: %w", err)
	}
	defer rows.Close()

	var farms []models.Farm
	for rows.Next() {
		var f models.Farm
		if err := rows.Scan(&f.ID, &f.FarmerID, &f.Name, &f.Location, &f.Latitude, &f.Longitude, &f.Active); err != nil {
			return nil, fmt.Errorf("failed to scan farm: %w", err)
		}
		farms = append(farms, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate farms: %w", err)
	}
	return farms, nil
}
