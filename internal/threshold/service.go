package threshold

import (
	"context"
	"fmt"

	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
)

// Store is the persistence the resolver needs.
type Store interface {
	GetFarmOwner(ctx context.Context, farmID int64) (int64, error)
	GetThresholdOverride(ctx context.Context, farmerID int64, sensorType models.SensorType) (*models.ThresholdOverride, error)
	UpsertThresholdOverride(ctx context.Context, o models.ThresholdOverride) (models.ThresholdOverride, error)
}

// Service resolves thresholds for a farm and classifies readings against them.
type Service struct {
	store  Store
	logger *logging.Logger
}

func NewService(store Store, logger *logging.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Classify resolves the farm's owner, loads their thresholds for sensorType and
// evaluates value. An unknown farm yields ErrNotFound.
func (s *Service) Classify(ctx context.Context, farmID int64, sensorType models.SensorType, value float64) (models.Classification, error) {
	farmerID, err := s.store.GetFarmOwner(ctx, farmID)
	if err != nil {
		return models.Classification{}, err
	}
	profile, err := s.Profile(ctx, farmerID, sensorType)
	if err != nil {
		return models.Classification{}, err
	}
	c := Evaluate(profile.Critical, profile.Warning, value)
	s.logger.Debugf("Classified farm %d %s=%.2f as %s", farmID, sensorType, value, c.Status)
	return c, nil
}

// Profile returns the effective thresholds for a farmer: their override's critical and
// advisory bounds when one is saved, otherwise the defaults.
func (s *Service) Profile(ctx context.Context, farmerID int64, sensorType models.SensorType) (models.ThresholdProfile, error) {
	profile, ok := DefaultProfile(farmerID, sensorType)
	if !ok {
		return models.ThresholdProfile{}, fmt.Errorf("%w: unknown sensor type %q", models.ErrValidation, sensorType)
	}

	o, err := s.store.GetThresholdOverride(ctx, farmerID, sensorType)
	if err != nil {
		return models.ThresholdProfile{}, fmt.Errorf("failed to load thresholds: %w", err)
	}
	if o != nil {
		applyOverride(&profile, *o)
	}
	return profile, nil
}

// SetOverride validates and saves a farmer's override, returning the new effective profile.
// Critical bounds must sit strictly outside the default warning bounds.
func (s *Service) SetOverride(ctx context.Context, o models.ThresholdOverride) (models.ThresholdProfile, error) {
	profile, ok := DefaultProfile(o.FarmerID, o.SensorType)
	if !ok {
		return models.ThresholdProfile{}, fmt.Errorf("%w: unknown sensor type %q", models.ErrValidation, o.SensorType)
	}
	if err := validateOverride(o, profile.Warning); err != nil {
		return models.ThresholdProfile{}, err
	}

	saved, err := s.store.UpsertThresholdOverride(ctx, o)
	if err != nil {
		return models.ThresholdProfile{}, err
	}
	s.logger.Infof("Saved %s threshold override for farmer %d", o.SensorType, o.FarmerID)

	applyOverride(&profile, saved)
	return profile, nil
}

func applyOverride(p *models.ThresholdProfile, o models.ThresholdOverride) {
	p.Critical = models.Bounds{Min: o.CriticalMin, Max: o.CriticalMax}
	p.Advisory = models.Bounds{Min: o.AdvisoryMin, Max: o.AdvisoryMax}
	p.Override = true
	p.UpdatedAt = o.UpdatedAt
}

func validateOverride(o models.ThresholdOverride, warning models.Bounds) error {
	if o.CriticalMin != nil && warning.Min != nil && *o.CriticalMin >= *warning.Min {
		return fmt.Errorf("%w: critical_min %.2f must be below warning_min %.2f", models.ErrValidation, *o.CriticalMin, *warning.Min)
	}
	if o.CriticalMax != nil && warning.Max != nil && *o.CriticalMax <= *warning.Max {
		return fmt.Errorf("%w: critical_max %.2f must be above warning_max %.2f", models.ErrValidation, *o.CriticalMax, *warning.Max)
	}
	if o.CriticalMin != nil && o.CriticalMax != nil && *o.CriticalMin >= *o.CriticalMax {
		return fmt.Errorf("%w: critical_min must be below critical_max", models.ErrValidation)
	}
	if o.AdvisoryMin != nil && o.AdvisoryMax != nil && *o.AdvisoryMin >= *o.AdvisoryMax {
		return fmt.Errorf("%w: advisory_min must be below advisory_max", models.ErrValidation)
	}
	return nil
}
