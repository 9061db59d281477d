package threshold

import "farm-alert-service/internal/models"

// Evaluate classifies value against critical and warning bounds. The first crossed bound wins,
// in the order critical-low, critical-high, warning-low, warning-high. Comparisons are strict
// and a nil bound is skipped.
func Evaluate(critical, warning models.Bounds, value float64) models.Classification {
	switch {
	case below(value, critical.Min):
		return crossed(models.StatusCritical, *critical.Min)
	case above(value, critical.Max):
		return crossed(models.StatusCritical, *critical.Max)
	case below(value, warning.Min):
		return crossed(models.StatusWarning, *warning.Min)
	case above(value, warning.Max):
		return crossed(models.StatusWarning, *warning.Max)
	}
	return models.Classification{Status: models.StatusNormal}
}

func below(v float64, bound *float64) bool {
	return bound != nil && v < *bound
}

func above(v float64, bound *float64) bool {
	return bound != nil && v > *bound
}

func crossed(status models.Status, bound float64) models.Classification {
	return models.Classification{Status: status, CrossedBound: models.Float(bound)}
}
