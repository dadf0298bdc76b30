package domain

// DecisionRecord is an immutable audit entry created each time a decision is applied.
type DecisionRecord struct {
	StepID       string `json:"stepId"`
	DecisionID   string `json:"decisionId"`
	DecisionText string `json:"decisionText"`
	StateBefore  State  `json:"stateBefore"`
	StateAfter   State  `json:"stateAfter"`

	// Timestamp is wall-clock Unix milliseconds; used for display ordering only.
	Timestamp int64 `json:"timestamp"`
}

// NewDecisionRecord pairs a decision with copies of the surrounding snapshots.
// Later changes to before or after do not reach the record.
func NewDecisionRecord(stepID string, decision Decision, before, after State) DecisionRecord {
	return DecisionRecord{
		StepID:       stepID,
		DecisionID:   decision.ID,
		DecisionText: decision.Text,
		StateBefore:  before.Clone(),
		StateAfter:   after.Clone(),
		Timestamp:    Now().UnixMilli(),
	}
}
