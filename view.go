package policylab

import (
	"github.com/aretw0/policylab/pkg/catalog"
	"github.com/aretw0/policylab/pkg/domain"
)

// View is the position of a session as the adapters present it.
type View struct {
	SimulationID string          `json:"simulationId"`
	Session      *domain.Session `json:"session"`

	// Step is the step awaiting input; nil once the session is completed.
	Step       *domain.DecisionStep `json:"step,omitempty"`
	TotalSteps int                  `json:"totalSteps"`
	Progress   float64              `json:"progress"`
	Completed  bool                 `json:"completed"`

	// Shock holds the deltas applied by the external effects of Step during this call.
	Shock domain.State `json:"shock,omitempty"`

	// Outcome is set by Choose.
	Outcome *Outcome `json:"outcome,omitempty"`
}

// Outcome describes a decision that was just applied.
type Outcome struct {
	StepID   string          `json:"stepId"`
	Decision domain.Decision `json:"decision"`

	// Delta is the clamped change of every metric the decision moved.
	Delta domain.State `json:"delta,omitempty"`
}

func newView(sim *domain.Simulation, s *domain.Session) *View {
	v := &View{
		SimulationID: sim.ID,
		Session:      s,
		TotalSteps:   len(sim.Steps),
		Completed:    s.IsCompleted(len(sim.Steps)),
	}
	if step, ok := sim.Step(s.CurrentStep); ok {
		v.Step = &step
		v.Progress = sim.Progress(s.CurrentStep)
	} else {
		v.Progress = 100
	}
	return v
}

// Report is the results page of a completed session.
type Report struct {
	*domain.Result

	Title               string                          `json:"title"`
	Narrative           string                          `json:"narrative"`
	Changes             []domain.MetricChange           `json:"changes"`
	Series              map[string][]domain.SeriesPoint `json:"series"`
	Concepts            []catalog.Concept               `json:"concepts,omitempty"`
	ReflectionQuestions []string                        `json:"reflectionQuestions,omitempty"`
}

func newReport(sim *domain.Simulation, result *domain.Result) *Report {
	chart := sim.ChartMetrics()
	series := make(map[string][]domain.SeriesPoint, len(chart))
	for _, m := range chart {
		series[m.Key] = result.Series(m.Key)
	}
	return &Report{
		Result:              result,
		Title:               sim.Title,
		Narrative:           result.Narrative(sim),
		Changes:             result.Changes(sim),
		Series:              series,
		Concepts:            catalog.Concepts(sim.Concepts),
		ReflectionQuestions: sim.ReflectionQuestions,
	}
}

// RoundReport compares the start of a round with the current state.
type RoundReport struct {
	Round   int                   `json:"round"`
	StepID  string                `json:"stepId"`
	Start   domain.State          `json:"start"`
	Current domain.State          `json:"current"`
	Changes []domain.MetricChange `json:"changes"`
}

// Significant returns the changes large enough to be shown.
func (r *RoundReport) Significant() []domain.MetricChange {
	var out []domain.MetricChange
	for _, c := range r.Changes {
		if c.Significant() {
			out = append(out, c)
		}
	}
	return out
}
