package domain

import "slices"

// Session is the mutable run state of one user working through one simulation.
// Its JSON form is the persisted record.
type Session struct {
	SimulationID string `json:"simulationId"`

	// CurrentStep indexes Simulation.Steps; a value >= len(Steps) marks completion.
	CurrentStep int `json:"currentStep"`

	State           State            `json:"state"`
	DecisionHistory []DecisionRecord `json:"decisionHistory"`

	// StartedAt is the creation time in Unix milliseconds.
	StartedAt int64 `json:"startedAt"`

	// ExternalEffectsApplied holds the ids of steps whose external effects were applied.
	ExternalEffectsApplied []string `json:"externalEffectsApplied"`
}

// NewSession creates a session at step 0 with a copy of initial.
func NewSession(simulationID string, initial State) *Session {
	return &Session{
		SimulationID:           simulationID,
		CurrentStep:            0,
		State:                  initial.Clone(),
		DecisionHistory:        []DecisionRecord{},
		StartedAt:              Now().UnixMilli(),
		ExternalEffectsApplied: []string{},
	}
}

// IsCompleted reports whether the session is past the last of totalSteps steps.
func (s *Session) IsCompleted(totalSteps int) bool {
	return s.CurrentStep >= totalSteps
}

// HasAppliedExternalEffects reports whether the external effects of stepID were already applied.
func (s *Session) HasAppliedExternalEffects(stepID string) bool {
	return slices.Contains(s.ExternalEffectsApplied, stepID)
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	out := *s
	out.State = s.State.Clone()
	out.DecisionHistory = make([]DecisionRecord, len(s.DecisionHistory))
	for i, rec := range s.DecisionHistory {
		rec.StateBefore = rec.StateBefore.Clone()
		rec.StateAfter = rec.StateAfter.Clone()
		out.DecisionHistory[i] = rec
	}
	out.ExternalEffectsApplied = slices.Clone(s.ExternalEffectsApplied)
	if out.ExternalEffectsApplied == nil {
		out.ExternalEffectsApplied = []string{}
	}
	return &out
}
