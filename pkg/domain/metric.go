package domain

// MetricFormat controls how a metric value is presented. It has no effect on simulation logic.
type MetricFormat string

const (
	FormatPercent  MetricFormat = "percent"
	FormatCurrency MetricFormat = "currency"
	FormatInteger  MetricFormat = "integer"
	FormatIndex    MetricFormat = "index"
)

// MetricDefinition describes one tracked quantity of a simulation.
type MetricDefinition struct {
	Key    string       `json:"key" yaml:"key" mapstructure:"key"`
	Label  string       `json:"label" yaml:"label" mapstructure:"label"`
	Format MetricFormat `json:"format" yaml:"format" mapstructure:"format"`

	// Min and Max are optional clamp bounds.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty" mapstructure:"min"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty" mapstructure:"max"`

	// ChartType is a presentation hint (e.g. "line", "bar").
	ChartType string `json:"chartType,omitempty" yaml:"chart_type,omitempty" mapstructure:"chart_type"`
}

// Clamp bounds v by Min and then by Max, when defined.
func (m MetricDefinition) Clamp(v float64) float64 {
	if m.Min != nil && v < *m.Min {
		v = *m.Min
	}
	if m.Max != nil && v > *m.Max {
		v = *m.Max
	}
	return v
}

// Bound returns a pointer to v, for authoring metric bounds inline.
func Bound(v float64) *float64 {
	return &v
}
