package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Index labels.
const (
	IndexHigh   = "High"
	IndexMedium = "Medium"
	IndexLow    = "Low"
)

// roundHalfUp rounds half-way values towards +Inf, matching how the dashboards round.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// FormatMetricValue renders value according to the metric's format.
func FormatMetricValue(value float64, metric MetricDefinition) string {
	switch metric.Format {
	case FormatPercent:
		return fmt.Sprintf("%.1f%%", value)
	case FormatCurrency:
		return fmt.Sprintf("$%.2f", value)
	case FormatInteger:
		return strconv.FormatFloat(roundHalfUp(value), 'f', 0, 64)
	case FormatIndex:
		return strconv.FormatFloat(roundHalfUp(value), 'f', 0, 64) + "/100"
	default:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
}

// FormatDelta renders a signed change of the metric.
func FormatDelta(delta float64, metric MetricDefinition) string {
	switch metric.Format {
	case FormatCurrency:
		sign := "+"
		if delta < 0 {
			sign = "-"
		}
		return fmt.Sprintf("%s$%.2f", sign, math.Abs(delta))
	case FormatPercent:
		return fmt.Sprintf("%s%.1f%%", plus(delta), delta)
	default:
		return plus(delta) + strconv.FormatFloat(roundHalfUp(delta), 'f', 0, 64)
	}
}

func plus(delta float64) string {
	if delta >= 0 {
		return "+"
	}
	return ""
}

// IndexLabel classifies a 0-100 index value.
func IndexLabel(value float64) string {
	switch {
	case value >= 70:
		return IndexHigh
	case value >= 40:
		return IndexMedium
	default:
		return IndexLow
	}
}
