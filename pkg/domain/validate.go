package domain

import (
	"errors"
	"fmt"
	"sort"
)

// ValidationError represents a single authoring problem in a simulation.
type ValidationError struct {
	Path   string // e.g. "steps[2].decisions[0].effects.profit"
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// AggregateError collects every validation failure of a simulation.
type AggregateError struct {
	SimulationID string
	Errors       []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("simulation %q: %s", e.SimulationID, e.Errors[0])
	}
	msg := fmt.Sprintf("simulation %q: %d validation errors:\n", e.SimulationID, len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// ValidationErrors returns the individual failures if err is an AggregateError.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// Validate checks the authored content for structural mistakes.
//
// Effects and initial values on keys that are not declared as metrics are reported as
// authoring errors, but only when the simulation declares metrics at all.
func (s *Simulation) Validate() error {
	var errs []error
	add := func(path, format string, args ...any) {
		errs = append(errs, &ValidationError{Path: path, Reason: fmt.Sprintf(format, args...)})
	}

	if s.ID == "" {
		add("id", "required")
	}

	declared := make(map[string]MetricDefinition, len(s.Metrics))
	for i, m := range s.Metrics {
		path := fmt.Sprintf("metrics[%d]", i)
		if m.Key == "" {
			add(path+".key", "required")
			continue
		}
		if _, dup := declared[m.Key]; dup {
			add(path+".key", "duplicate metric %q", m.Key)
		}
		declared[m.Key] = m
		if m.Min != nil && m.Max != nil && *m.Min > *m.Max {
			add(path, "min %v is greater than max %v", *m.Min, *m.Max)
		}
	}
	strict := len(declared) > 0

	for _, key := range s.InitialState.Keys() {
		v := s.InitialState[key]
		m, ok := declared[key]
		if !ok {
			if strict {
				add("initial_state."+key, "undeclared metric")
			}
			continue
		}
		if m.Clamp(v) != v {
			add("initial_state."+key, "value %v outside metric bounds", v)
		}
	}

	checkEffects := func(path string, effects Effects) {
		if !strict {
			return
		}
		keys := make([]string, 0, len(effects))
		for k := range effects {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := declared[k]; !ok {
				add(path+"."+k, "undeclared metric")
			}
		}
	}

	stepIDs := make(map[string]bool, len(s.Steps))
	for i, step := range s.Steps {
		path := fmt.Sprintf("steps[%d]", i)
		if step.ID == "" {
			add(path+".id", "required")
		} else if stepIDs[step.ID] {
			add(path+".id", "duplicate step %q", step.ID)
		}
		stepIDs[step.ID] = true

		checkEffects(path+".external_effects", step.ExternalEffects)

		decisionIDs := make(map[string]bool, len(step.Decisions))
		for j, d := range step.Decisions {
			dpath := fmt.Sprintf("%s.decisions[%d]", path, j)
			if d.ID == "" {
				add(dpath+".id", "required")
			} else if decisionIDs[d.ID] {
				add(dpath+".id", "duplicate decision %q", d.ID)
			}
			decisionIDs[d.ID] = true
			checkEffects(dpath+".effects", d.Effects)
		}
	}

	if rc := s.ResultsConfig; rc != nil && strict {
		for _, k := range rc.ChartMetrics {
			if _, ok := declared[k]; !ok {
				add("results_config.chart_metrics", "undeclared metric %q", k)
			}
		}
		for _, k := range rc.SummaryMetrics {
			if _, ok := declared[k]; !ok {
				add("results_config.summary_metrics", "undeclared metric %q", k)
			}
		}
	}

	if len(errs) > 0 {
		return &AggregateError{SimulationID: s.ID, Errors: errs}
	}
	return nil
}
