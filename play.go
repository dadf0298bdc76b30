package policylab

import (
	"context"
	"fmt"

	"github.com/aretw0/policylab/pkg/domain"
)

// Start resumes the session of the simulation, or creates one at the first step, and
// enters the current step (applying its external effects the first time).
func (l *Lab) Start(ctx context.Context, simulationID string) (*View, error) {
	sim, err := l.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s, err := l.sessions.GetOrCreate(ctx, sim.ID, sim.InitialState)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", sim.ID, err)
	}
	s, shock, err := l.enter(ctx, sim, s)
	if err != nil {
		return nil, err
	}

	v := newView(sim, s)
	v.Shock = shock
	return v, nil
}

// Choose applies a decision of the current step, records it and moves to the next step.
func (l *Lab) Choose(ctx context.Context, simulationID, decisionID string) (*View, error) {
	sim, err := l.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s, step, err := l.position(ctx, sim, "choose")
	if err != nil {
		return nil, err
	}

	if step.IsSummary() {
		return nil, fmt.Errorf("choose %s at %s: %w", sim.ID, step.ID, ErrContinueRequired)
	}
	decision, ok := step.Decision(decisionID)
	if !ok {
		return nil, fmt.Errorf("choose %s at %s: %q: %w", sim.ID, step.ID, decisionID, ErrDecisionNotFound)
	}

	before := s.State
	after := domain.ApplyDecision(decision, before, sim.Metrics)
	record := domain.NewDecisionRecord(step.ID, decision, before, after)

	s, err = l.sessions.Update(ctx, sim.ID, after, record, s.CurrentStep+1)
	if err != nil {
		return nil, fmt.Errorf("choose %s at %s: %w", sim.ID, step.ID, err)
	}
	l.logger.Debug("Decision applied",
		"simulation_id", sim.ID,
		"step_id", step.ID,
		"decision_id", decision.ID,
	)

	s, shock, err := l.enter(ctx, sim, s)
	if err != nil {
		return nil, err
	}

	v := newView(sim, s)
	v.Shock = shock
	v.Outcome = &Outcome{
		StepID:   step.ID,
		Decision: decision,
		Delta:    domain.Diff(before, after),
	}
	return v, nil
}

// Continue moves past a round summary or a step that offers no decisions.
// Continuing past the last step completes the session.
func (l *Lab) Continue(ctx context.Context, simulationID string) (*View, error) {
	sim, err := l.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s, step, err := l.position(ctx, sim, "continue")
	if err != nil {
		return nil, err
	}

	if !step.IsSummary() && len(step.Decisions) > 0 {
		return nil, fmt.Errorf("continue %s at %s: %w", sim.ID, step.ID, ErrDecisionRequired)
	}

	s, err = l.sessions.Advance(ctx, sim.ID, s.CurrentStep+1)
	if err != nil {
		return nil, fmt.Errorf("continue %s at %s: %w", sim.ID, step.ID, err)
	}
	s, shock, err := l.enter(ctx, sim, s)
	if err != nil {
		return nil, err
	}

	v := newView(sim, s)
	v.Shock = shock
	return v, nil
}

// Reset discards the session and starts the simulation again from its initial state.
func (l *Lab) Reset(ctx context.Context, simulationID string) (*View, error) {
	sim, err := l.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s, err := l.sessions.Reset(ctx, sim.ID, sim.InitialState)
	if err != nil {
		return nil, fmt.Errorf("reset %s: %w", sim.ID, err)
	}
	l.logger.Info("Simulation reset", "simulation_id", sim.ID)

	s, shock, err := l.enter(ctx, sim, s)
	if err != nil {
		return nil, err
	}

	v := newView(sim, s)
	v.Shock = shock
	return v, nil
}

// position loads the session and enters its current step, returning the step that awaits
// input. Sessions written before the step was entered still owe its shock. Entering may
// observe a session that another call has already moved on; that yields ErrStepOutOfOrder,
// or ErrCompleted when the other call finished the simulation.
func (l *Lab) position(ctx context.Context, sim *domain.Simulation, op string) (*domain.Session, domain.DecisionStep, error) {
	s, err := l.current(ctx, sim)
	if err != nil {
		return nil, domain.DecisionStep{}, err
	}
	if s.IsCompleted(len(sim.Steps)) {
		return nil, domain.DecisionStep{}, fmt.Errorf("%s %s: %w", op, sim.ID, ErrCompleted)
	}

	loaded := s.CurrentStep
	s, _, err = l.enter(ctx, sim, s)
	if err != nil {
		return nil, domain.DecisionStep{}, err
	}
	if s.IsCompleted(len(sim.Steps)) {
		return nil, domain.DecisionStep{}, fmt.Errorf("%s %s: %w", op, sim.ID, ErrCompleted)
	}
	if s.CurrentStep != loaded {
		return nil, domain.DecisionStep{}, fmt.Errorf("%s %s: loaded step %d, now at %d: %w",
			op, sim.ID, loaded, s.CurrentStep, ErrStepOutOfOrder)
	}
	return s, sim.Steps[s.CurrentStep], nil
}

// enter applies the external effects of the session's current step once.
// It returns the deltas that were applied, or nil when nothing changed.
func (l *Lab) enter(ctx context.Context, sim *domain.Simulation, s *domain.Session) (*domain.Session, domain.State, error) {
	step, ok := sim.Step(s.CurrentStep)
	if !ok || !step.HasExternalEffects() || s.HasAppliedExternalEffects(step.ID) {
		return s, nil, nil
	}

	before := s.State
	after := domain.ApplyEffects(before, step.ExternalEffects, sim.Metrics)
	updated, err := l.sessions.ApplyExternalEffects(ctx, sim.ID, step.ID, after)
	if err != nil {
		return nil, nil, fmt.Errorf("enter %s at %s: %w", sim.ID, step.ID, err)
	}
	return updated, domain.Diff(before, after), nil
}
