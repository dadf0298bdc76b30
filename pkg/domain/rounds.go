package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// SummarySuffix marks a summary step id in authored content that predates the Summary field.
const SummarySuffix = "_summary"

var roundPrefix = regexp.MustCompile(`(?i)^r(\d+)_`)

// IsSummaryStepID reports whether id follows the summary-step naming convention.
func IsSummaryStepID(id string) bool {
	return strings.HasSuffix(id, SummarySuffix)
}

// RoundNumberFromID parses the round from an "r<N>_" id prefix. It returns 0 when there is none.
func RoundNumberFromID(id string) int {
	m := roundPrefix.FindStringSubmatch(id)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// IsSummary reports whether the step closes a round.
func (s DecisionStep) IsSummary() bool {
	return s.Summary || IsSummaryStepID(s.ID)
}

// RoundNumber returns the round of the step, or 0 when it belongs to none.
func (s DecisionStep) RoundNumber() int {
	if s.Round > 0 {
		return s.Round
	}
	return RoundNumberFromID(s.ID)
}

// RoundStartState returns the state at which the round of the step at stepIndex began.
//
// For the first round, or a step without a round, that is the simulation's initial state.
// Otherwise it is the StateAfter of the last recorded decision taken on a non-summary step of
// a strictly earlier round. Records are matched to steps by StepID, so steps that record no
// decision never shift the lookup.
func RoundStartState(sim *Simulation, session *Session, stepIndex int) State {
	step, ok := sim.Step(stepIndex)
	if !ok {
		return sim.InitialState.Clone()
	}
	round := step.RoundNumber()
	if round <= 1 {
		return sim.InitialState.Clone()
	}

	var start State
	for _, rec := range session.DecisionHistory {
		recStep, _, ok := sim.StepByID(rec.StepID)
		if !ok || recStep.IsSummary() {
			continue
		}
		r := recStep.RoundNumber()
		if r == 0 || r >= round {
			continue
		}
		start = rec.StateAfter
	}

	if start == nil {
		return sim.InitialState.Clone()
	}
	return start.Clone()
}
