package weather

import "farm-alert-service/internal/models"

// Firing is one weather rule that tripped for a farm.
type Firing struct {
	Rule      string
	Metric    models.SensorType
	Value     float64
	Threshold float64
	Severity  models.Severity
}

// EvaluateRules checks current weather against a farmer's preference. Temperature and
// humidity each fire at most one side; rainfall and wind are independent. Thresholds
// are inclusive.
func EvaluateRules(pref models.AlertPreference, w models.Weather) []Firing {
	var out []Firing

	switch {
	case w.Temperature >= pref.TemperatureHigh:
		out = append(out, Firing{"temperature_high", models.SensorTemperature, w.Temperature, pref.TemperatureHigh, models.SeverityCritical})
	case w.Temperature <= pref.TemperatureLow:
		out = append(out, Firing{"temperature_low", models.SensorTemperature, w.Temperature, pref.TemperatureLow, models.SeverityCritical})
	}

	if w.Rainfall >= pref.RainfallHigh {
		out = append(out, Firing{"rainfall_high", models.MetricRainfall, w.Rainfall, pref.RainfallHigh, models.SeverityWarning})
	}
	if w.WindSpeed >= pref.WindHigh {
		out = append(out, Firing{"wind_high", models.MetricWindSpeed, w.WindSpeed, pref.WindHigh, models.SeverityWarning})
	}

	switch {
	case w.Humidity >= pref.HumidityHigh:
		out = append(out, Firing{"humidity_high", models.SensorHumidity, w.Humidity, pref.HumidityHigh, models.SeverityInfo})
	case w.Humidity <= pref.HumidityLow:
		out = append(out, Firing{"humidity_low", models.SensorHumidity, w.Humidity, pref.HumidityLow, models.SeverityInfo})
	}

	return out
}
