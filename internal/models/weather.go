package models

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Weather is a current-conditions snapshot in metric units.
type Weather struct {
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // %
	WindSpeed   float64 `json:"wind_speed"`  // km/h
	Rainfall    float64 `json:"rainfall"`    // mm over the last hour
	Description string  `json:"description,omitempty"`
}

// FarmFailure explains why a farm was skipped during a sweep.
type FarmFailure struct {
	FarmID int64  `json:"farm_id"`
	Reason string `json:"reason"`
}

// SweepSummary tallies one weather sweep.
type SweepSummary struct {
	FarmsTotal     int           `json:"farms_total"`
	FarmsProcessed int           `json:"farms_processed"`
	FarmsSkipped   int           `json:"farms_skipped"`
	AlertsRaised   int           `json:"alerts_raised"`
	AlertsFailed   int           `json:"alerts_failed"`
	Failures       []FarmFailure `json:"failures,omitempty"`
}
