package sensor

import (
	"context"
	"fmt"
	"math"

	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
	"farm-alert-service/internal/observability"
)

type Classifier interface {
	Classify(ctx context.Context, farmID int64, sensorType models.SensorType, value float64) (models.Classification, error)
}

type ReadingStore interface {
	InsertReading(ctx context.Context, r models.SensorReading) (int64, error)
	UpdateReadingStatus(ctx context.Context, id int64, status models.Status) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev models.AlertEvent) (models.AlertRecord, error)
}

// IngestRequest is one sensor submission.
type IngestRequest struct {
	FarmID     int64             `json:"farm_id" binding:"required"`
	SensorType models.SensorType `json:"sensor_type" binding:"required"`
	Value      *float64          `json:"value" binding:"required"`
	Unit       string            `json:"unit"`
	Note       string            `json:"note"`
}

// IngestResult tells the caller how the reading was classified and whether an alert went out.
type IngestResult struct {
	ReadingID    int64               `json:"reading_id"`
	Status       models.Status       `json:"status"`
	CrossedBound *float64            `json:"crossed_bound,omitempty"`
	AlertRaised  bool                `json:"alert_raised"`
	Alert        *models.AlertRecord `json:"alert,omitempty"`
}

// Service classifies, stores and alerts on incoming sensor readings.
type Service struct {
	classifier Classifier
	readings   ReadingStore
	dispatcher Dispatcher
	metrics    *observability.Metrics
	logger     *logging.Logger
}

func NewService(classifier Classifier, readings ReadingStore, dispatcher Dispatcher, metrics *observability.Metrics, logger *logging.Logger) *Service {
	return &Service{
		classifier: classifier,
		readings:   readings,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Validate rejects malformed submissions before any I/O.
func (r IngestRequest) Validate() error {
	if r.FarmID <= 0 {
		return fmt.Errorf("%w: farm_id must be positive", models.ErrValidation)
	}
	if !r.SensorType.Valid() {
		return fmt.Errorf("%w: unknown sensor_type %q", models.ErrValidation, r.SensorType)
	}
	if r.Value == nil {
		return fmt.Errorf("%w: value is required", models.ErrValidation)
	}
	if math.IsNaN(*r.Value) || math.IsInf(*r.Value, 0) {
		return fmt.Errorf("%w: value must be a finite number", models.ErrValidation)
	}
	return nil
}

// Ingest classifies the reading, stores it, records its status and, when it is
// CRITICAL, dispatches an alert. Channel failures are reported in the result, not
// as an error.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if err := req.Validate(); err != nil {
		return IngestResult{}, err
	}
	value := *req.Value
	unit := req.Unit
	if unit == "" {
		unit = req.SensorType.DefaultUnit()
	}

	class, err := s.classifier.Classify(ctx, req.FarmID, req.SensorType, value)
	if err != nil {
		return IngestResult{}, err
	}

	id, err := s.readings.InsertReading(ctx, models.SensorReading{
		FarmID:     req.FarmID,
		SensorType: req.SensorType,
		Value:      value,
		Unit:       unit,
		Note:       req.Note,
	})
	if err != nil {
		return IngestResult{}, err
	}
	if class.Status != models.StatusNormal {
		if err := s.readings.UpdateReadingStatus(ctx, id, class.Status); err != nil {
			return IngestResult{}, err
		}
	}
	if s.metrics != nil {
		s.metrics.ReadingsIngested.WithLabelValues(string(req.SensorType), string(class.Status)).Inc()
	}

	result := IngestResult{
		ReadingID:    id,
		Status:       class.Status,
		CrossedBound: class.CrossedBound,
	}
	if class.Status != models.StatusCritical {
		return result, nil
	}

	rec, err := s.dispatcher.Dispatch(ctx, models.AlertEvent{
		Source:         models.SourceSensor,
		ReadingID:      &id,
		FarmID:         req.FarmID,
		SensorType:     req.SensorType,
		Value:          value,
		Unit:           unit,
		ThresholdValue: *class.CrossedBound,
		Severity:       models.SeverityCritical,
	})
	if err != nil {
		s.logger.Errorf("Alert dispatch failed for reading %d: %v", id, err)
		return result, err
	}
	result.AlertRaised = true
	result.Alert = &rec
	return result, nil
}
