package domain

import (
	"fmt"
	"math"
	"strings"
)

// changeThreshold is the smallest absolute change reported in summaries.
const changeThreshold = 0.01

// Result is the final outcome of a completed session.
type Result struct {
	SimulationID    string           `json:"simulationId"`
	InitialState    State            `json:"initialState"`
	FinalState      State            `json:"finalState"`
	DecisionHistory []DecisionRecord `json:"decisionHistory"`

	StartedAt int64 `json:"startedAt"`

	// CompletedAt is the time of the last decision, or the session start when none was recorded.
	CompletedAt int64 `json:"completedAt"`
}

// MetricChange is the movement of one metric between two snapshots.
type MetricChange struct {
	Metric  MetricDefinition `json:"metric"`
	Initial float64          `json:"initial"`
	Final   float64          `json:"final"`
	Change  float64          `json:"change"`
}

// Significant reports whether the change is large enough to be shown.
func (c MetricChange) Significant() bool {
	return math.Abs(c.Change) >= changeThreshold
}

// SeriesPoint is one labelled sample of a metric over the course of a session.
type SeriesPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// NewResult builds the result of a completed session.
func NewResult(sim *Simulation, session *Session) (*Result, error) {
	if !session.IsCompleted(len(sim.Steps)) {
		return nil, fmt.Errorf("%s at step %d of %d: %w", sim.ID, session.CurrentStep, len(sim.Steps), ErrNotCompleted)
	}

	completedAt := session.StartedAt
	if n := len(session.DecisionHistory); n > 0 {
		completedAt = session.DecisionHistory[n-1].Timestamp
	}

	clone := session.Clone()
	return &Result{
		SimulationID:    sim.ID,
		InitialState:    sim.InitialState.Clone(),
		FinalState:      clone.State,
		DecisionHistory: clone.DecisionHistory,
		StartedAt:       session.StartedAt,
		CompletedAt:     completedAt,
	}, nil
}

// Changes compares initial and final values of the simulation's summary metrics.
func (r *Result) Changes(sim *Simulation) []MetricChange {
	return CompareMetrics(sim.SummaryMetrics(), r.InitialState, r.FinalState)
}

// CompareMetrics reports the change of each metric between from and to.
func CompareMetrics(metrics []MetricDefinition, from, to State) []MetricChange {
	out := make([]MetricChange, 0, len(metrics))
	for _, m := range metrics {
		initial, final := from.Get(m.Key), to.Get(m.Key)
		out = append(out, MetricChange{
			Metric:  m,
			Initial: initial,
			Final:   final,
			Change:  final - initial,
		})
	}
	return out
}

// Narrative explains the outcome in one paragraph.
func (r *Result) Narrative(sim *Simulation) string {
	var parts []string
	for _, c := range r.Changes(sim) {
		if !c.Significant() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s went from %s to %s.",
			c.Metric.Label,
			FormatMetricValue(c.Initial, c.Metric),
			FormatMetricValue(c.Final, c.Metric),
		))
	}

	if len(parts) == 0 {
		return "Your decisions created a balanced outcome, with moderate changes across key indicators."
	}
	return "Your decisions led to these outcomes: " + strings.Join(parts, " ")
}

// Series returns the values of key at the start, after every decision, and at the end.
func (r *Result) Series(key string) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(r.DecisionHistory)+2)
	points = append(points, SeriesPoint{Label: "Start", Value: r.InitialState.Get(key)})
	for i, rec := range r.DecisionHistory {
		points = append(points, SeriesPoint{
			Label: fmt.Sprintf("Step %d", i+1),
			Value: rec.StateAfter.Get(key),
		})
	}
	points = append(points, SeriesPoint{Label: "End", Value: r.FinalState.Get(key)})
	return points
}
