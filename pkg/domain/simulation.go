package domain

// Decision is an authored choice within a step.
type Decision struct {
	ID       string  `json:"id" yaml:"id" mapstructure:"id"`
	Text     string  `json:"text" yaml:"text" mapstructure:"text"`
	Effects  Effects `json:"effects" yaml:"effects" mapstructure:"effects"`
	Feedback string  `json:"feedback,omitempty" yaml:"feedback,omitempty" mapstructure:"feedback"`
}

// DecisionStep is one node in a simulation's linear sequence.
type DecisionStep struct {
	ID    string `json:"id" yaml:"id" mapstructure:"id"`
	Event string `json:"event" yaml:"event" mapstructure:"event"`

	// Decisions may be empty for purely informational or summary steps.
	Decisions []Decision `json:"decisions" yaml:"decisions" mapstructure:"decisions"`

	// ExternalEffects are applied once, when the step is first entered.
	ExternalEffects Effects `json:"externalEffects,omitempty" yaml:"external_effects,omitempty" mapstructure:"external_effects"`

	AIExplanation string `json:"aiExplanation,omitempty" yaml:"ai_explanation,omitempty" mapstructure:"ai_explanation"`

	// Round is the 1-based round this step belongs to (0 = no round).
	Round int `json:"round,omitempty" yaml:"round,omitempty" mapstructure:"round"`

	// Summary marks an interstitial step that closes a round.
	Summary bool `json:"summary,omitempty" yaml:"summary,omitempty" mapstructure:"summary"`
}

// Decision returns the decision with the given id.
func (s DecisionStep) Decision(id string) (Decision, bool) {
	for _, d := range s.Decisions {
		if d.ID == id {
			return d, true
		}
	}
	return Decision{}, false
}

// HasExternalEffects reports whether entering the step triggers an exogenous shock.
func (s DecisionStep) HasExternalEffects() bool {
	return len(s.ExternalEffects) > 0
}

// ResultsConfig selects which metrics the results view charts and summarises.
type ResultsConfig struct {
	ChartMetrics   []string `json:"chartMetrics,omitempty" yaml:"chart_metrics,omitempty" mapstructure:"chart_metrics"`
	SummaryMetrics []string `json:"summaryMetrics,omitempty" yaml:"summary_metrics,omitempty" mapstructure:"summary_metrics"`
}

// Simulation is the top-level authored unit.
type Simulation struct {
	ID           string   `json:"id" yaml:"id" mapstructure:"id"`
	Title        string   `json:"title" yaml:"title" mapstructure:"title"`
	Description  string   `json:"description" yaml:"description" mapstructure:"description"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty" mapstructure:"tags"`
	TimeEstimate string   `json:"timeEstimate,omitempty" yaml:"time_estimate,omitempty" mapstructure:"time_estimate"`
	Concepts     []string `json:"concepts,omitempty" yaml:"concepts,omitempty" mapstructure:"concepts"`
	Context      string   `json:"context,omitempty" yaml:"context,omitempty" mapstructure:"context"`

	InitialState State              `json:"initialState" yaml:"initial_state" mapstructure:"initial_state"`
	Metrics      []MetricDefinition `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	Steps        []DecisionStep     `json:"steps" yaml:"steps" mapstructure:"steps"`

	ResultsConfig       *ResultsConfig `json:"resultsConfig,omitempty" yaml:"results_config,omitempty" mapstructure:"results_config"`
	ReflectionQuestions []string       `json:"reflectionQuestions,omitempty" yaml:"reflection_questions,omitempty" mapstructure:"reflection_questions"`
}

// Metric returns the definition for key.
func (s *Simulation) Metric(key string) (MetricDefinition, bool) {
	for _, m := range s.Metrics {
		if m.Key == key {
			return m, true
		}
	}
	return MetricDefinition{}, false
}

// Step returns the step at index.
func (s *Simulation) Step(index int) (DecisionStep, bool) {
	if index < 0 || index >= len(s.Steps) {
		return DecisionStep{}, false
	}
	return s.Steps[index], true
}

// StepByID returns the step with the given id and its index.
func (s *Simulation) StepByID(id string) (DecisionStep, int, bool) {
	for i, step := range s.Steps {
		if step.ID == id {
			return step, i, true
		}
	}
	return DecisionStep{}, -1, false
}

// IsCompleted reports whether step marks the simulation as finished.
func (s *Simulation) IsCompleted(step int) bool {
	return step >= len(s.Steps)
}

// Progress returns the completion percentage shown while playing step.
func (s *Simulation) Progress(step int) float64 {
	total := len(s.Steps)
	if total < 1 {
		total = 1
	}
	p := float64(step+1) / float64(total) * 100
	if p > 100 {
		p = 100
	}
	return p
}

// DeclaredKeys returns the set of metric keys declared by the simulation.
func (s *Simulation) DeclaredKeys() map[string]bool {
	keys := make(map[string]bool, len(s.Metrics))
	for _, m := range s.Metrics {
		keys[m.Key] = true
	}
	return keys
}

// SummaryMetrics returns the metrics listed in ResultsConfig.SummaryMetrics, in declaration order.
// All metrics are returned when no summary list is configured; an explicit empty list selects none.
func (s *Simulation) SummaryMetrics() []MetricDefinition {
	if s.ResultsConfig == nil || s.ResultsConfig.SummaryMetrics == nil {
		return s.Metrics
	}
	return s.pick(s.ResultsConfig.SummaryMetrics)
}

// ChartMetrics returns the metrics listed in ResultsConfig.ChartMetrics, in declaration order.
func (s *Simulation) ChartMetrics() []MetricDefinition {
	if s.ResultsConfig == nil {
		return s.Metrics
	}
	return s.pick(s.ResultsConfig.ChartMetrics)
}

func (s *Simulation) pick(keys []string) []MetricDefinition {
	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}
	out := make([]MetricDefinition, 0, len(keys))
	for _, m := range s.Metrics {
		if wanted[m.Key] {
			out = append(out, m)
		}
	}
	return out
}

// Normalize fills the Round and Summary fields of every step from the id convention
// (an "r<N>_" prefix and a "_summary" suffix) when the content left them unset.
func (s *Simulation) Normalize() {
	for i := range s.Steps {
		step := &s.Steps[i]
		if step.Round == 0 {
			step.Round = RoundNumberFromID(step.ID)
		}
		if !step.Summary {
			step.Summary = IsSummaryStepID(step.ID)
		}
	}
}
