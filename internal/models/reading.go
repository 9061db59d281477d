package models

import "time"

// SensorType identifies what a reading measures.
type SensorType string

const (
	SensorSoilMoisture SensorType = "soil_moisture"
	SensorSoilPH       SensorType = "soil_ph"
	SensorTemperature  SensorType = "temperature"
	SensorHumidity     SensorType = "humidity"
	SensorLight        SensorType = "light"

	// Weather-only metrics. They appear on alert records produced by the
	// weather sweep and are never accepted as sensor submissions.
	MetricRainfall  SensorType = "rainfall"
	MetricWindSpeed SensorType = "wind_speed"
)

// SensorTypes lists the sensor types accepted for ingestion.
var SensorTypes = []SensorType{
	SensorSoilMoisture,
	SensorSoilPH,
	SensorTemperature,
	SensorHumidity,
	SensorLight,
}

// Valid reports whether t can be submitted as a sensor reading.
func (t SensorType) Valid() bool {
	for _, s := range SensorTypes {
		if s == t {
			return true
		}
	}
	return false
}

// DefaultUnit is the unit assumed when a submission omits one.
func (t SensorType) DefaultUnit() string {
	switch t {
	case SensorSoilMoisture, SensorHumidity:
		return "%"
	case SensorSoilPH:
		return "pH"
	case SensorTemperature:
		return "°C"
	case SensorLight:
		return "lux"
	case MetricRainfall:
		return "mm"
	case MetricWindSpeed:
		return "km/h"
	}
	return ""
}

// Status is the classification verdict for a reading.
type Status string

const (
	StatusNormal   Status = "NORMAL"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
)

// SensorReading is one persisted sensor value.
type SensorReading struct {
	ID         int64      `json:"id"`
	FarmID     int64      `json:"farm_id"`
	SensorType SensorType `json:"sensor_type"`
	Value      float64    `json:"value"`
	Unit       string     `json:"unit"`
	Status     Status     `json:"status"`
	Note       string     `json:"note,omitempty"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// Classification is the result of evaluating a value against resolved thresholds.
// CrossedBound is nil when Status is NORMAL.
type Classification struct {
	Status       Status   `json:"status"`
	CrossedBound *float64 `json:"crossed_bound,omitempty"`
}
