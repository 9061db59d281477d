package alert

import (
	"fmt"

	"farm-alert-service/internal/models"
)

var labels = map[models.SensorType]string{
	models.SensorSoilMoisture: "Soil moisture",
	models.SensorSoilPH:       "Soil pH",
	models.SensorTemperature:  "Temperature",
	models.SensorHumidity:     "Humidity",
	models.SensorLight:        "Light",
	models.MetricRainfall:     "Rainfall",
	models.MetricWindSpeed:    "Wind speed",
}

func label(st models.SensorType) string {
	if l, ok := labels[st]; ok {
		return l
	}
	return string(st)
}

// Render builds the title and message for an event. Output depends only on its inputs.
func Render(farmName string, ev models.AlertEvent) (title, message string) {
	unit := ev.Unit
	if unit == "" {
		unit = ev.SensorType.DefaultUnit()
	}

	direction := "above"
	switch {
	case ev.Value < ev.ThresholdValue:
		direction = "below"
	case ev.Value == ev.ThresholdValue:
		direction = "at"
	}

	title = fmt.Sprintf("[%s] %s alert at %s", ev.Severity, label(ev.SensorType), farmName)
	message = fmt.Sprintf("%s at %s is %.2f%s, %s the threshold of %.2f%s.",
		label(ev.SensorType), farmName, ev.Value, unit, direction, ev.ThresholdValue, unit)
	return title, message
}
