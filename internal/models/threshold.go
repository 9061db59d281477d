package models

import "time"

// Bounds is a min/max pair where a nil side means no limit.
type Bounds struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// ThresholdProfile holds the thresholds that apply to one farmer and sensor type.
// Warning bounds always come from the per-sensor defaults; only Critical and
// Advisory are farmer-overridable.
type ThresholdProfile struct {
	FarmerID   int64      `json:"farmer_id"`
	SensorType SensorType `json:"sensor_type"`
	Critical   Bounds     `json:"critical"`
	Warning    Bounds     `json:"warning"`
	Advisory   Bounds     `json:"advisory"`
	Override   bool       `json:"override"`
	UpdatedAt  time.Time  `json:"updated_at,omitempty"`
}

// ThresholdOverride is the farmer-owned row persisted for a sensor type.
type ThresholdOverride struct {
	FarmerID    int64      `json:"farmer_id"`
	SensorType  SensorType `json:"sensor_type"`
	CriticalMin *float64   `json:"critical_min"`
	CriticalMax *float64   `json:"critical_max"`
	AdvisoryMin *float64   `json:"advisory_min"`
	AdvisoryMax *float64   `json:"advisory_max"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
