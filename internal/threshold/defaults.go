package threshold

import "farm-alert-service/internal/models"

type defaultBounds struct {
	Warning  models.Bounds
	Critical models.Bounds
}

// defaults is the fixed per-sensor table. Warning bounds are never overridden.
var defaults = map[models.SensorType]defaultBounds{
	models.SensorSoilMoisture: {
		Warning:  models.Bounds{Min: models.Float(30), Max: models.Float(70)},
		Critical: models.Bounds{Min: models.Float(20), Max: models.Float(80)},
	},
	models.SensorSoilPH: {
		Warning:  models.Bounds{Min: models.Float(6.0), Max: models.Float(7.5)},
		Critical: models.Bounds{Min: models.Float(5.5), Max: models.Float(8.0)},
	},
	models.SensorTemperature: {
		Warning:  models.Bounds{Min: models.Float(10), Max: models.Float(35)},
		Critical: models.Bounds{Min: models.Float(5), Max: models.Float(40)},
	},
	models.SensorHumidity: {
		Warning:  models.Bounds{Min: models.Float(40), Max: models.Float(80)},
		Critical: models.Bounds{Min: models.Float(20), Max: models.Float(95)},
	},
	models.SensorLight: {
		Warning:  models.Bounds{Min: models.Float(1000), Max: models.Float(80000)},
		Critical: models.Bounds{Min: models.Float(200), Max: models.Float(100000)},
	},
}

// DefaultProfile returns the default thresholds for a sensor type.
func DefaultProfile(farmerID int64, sensorType models.SensorType) (models.ThresholdProfile, bool) {
	d, ok := defaults[sensorType]
	if !ok {
		return models.ThresholdProfile{}, false
	}
	return models.ThresholdProfile{
		FarmerID:   farmerID,
		SensorType: sensorType,
		Critical:   copyBounds(d.Critical),
		Warning:    copyBounds(d.Warning),
	}, true
}

func copyBounds(b models.Bounds) models.Bounds {
	var out models.Bounds
	if b.Min != nil {
		out.Min = models.Float(*b.Min)
	}
	if b.Max != nil {
		out.Max = models.Float(*b.Max)
	}
	return out
}
