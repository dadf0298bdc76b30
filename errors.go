package policylab

import (
	"errors"

	"github.com/aretw0/policylab/pkg/domain"
)

var (
	// ErrSimulationNotFound is returned for ids that are not in the catalog.
	ErrSimulationNotFound = errors.New("simulation not found")
	// ErrDecisionNotFound is returned when the decision id is not offered by the current step.
	ErrDecisionNotFound = errors.New("decision not found")
	// ErrCompleted is returned when a move is attempted on a finished session.
	ErrCompleted = errors.New("simulation already completed")
	// ErrDecisionRequired is returned by Continue on a step that expects a decision.
	ErrDecisionRequired = errors.New("decision required")
	// ErrContinueRequired is returned by Choose on a round summary step.
	ErrContinueRequired = errors.New("summary step: continue instead of choosing")
)

// Errors shared with the domain, re-exported for adapters.
var (
	ErrSessionNotFound = domain.ErrSessionNotFound
	ErrStepOutOfOrder  = domain.ErrStepOutOfOrder
	ErrNotCompleted    = domain.ErrNotCompleted
)
