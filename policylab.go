package policylab

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/policylab/internal/logging"
	"github.com/aretw0/policylab/pkg/catalog"
	"github.com/aretw0/policylab/pkg/domain"
	"github.com/aretw0/policylab/pkg/session"
)

// Version is the release of the policylab module, overridden at build time.
var Version = "0.1.0"

// Lab is the high-level entry point used by the driving adapters (CLI, HTTP, MCP).
// It pairs the simulation catalog with the session store and applies the effect engine
// on every move. Lab carries no state of its own: everything lives in the session store.
type Lab struct {
	catalog  *catalog.Catalog
	sessions *session.Manager
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Lab.
type Option func(*Lab)

// WithLogger sets a custom structured logger for the Lab.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lab) {
		l.logger = logger
	}
}

// New creates a Lab over the given catalog and session manager.
func New(cat *catalog.Catalog, sessions *session.Manager, opts ...Option) *Lab {
	l := &Lab{
		catalog:  cat,
		sessions: sessions,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logging.NewNop()
	}
	return l
}

// Catalog returns the simulations served by the Lab.
func (l *Lab) Catalog() *catalog.Catalog {
	return l.catalog
}

// Sessions returns the underlying session manager.
func (l *Lab) Sessions() *session.Manager {
	return l.sessions
}

// Simulation returns the simulation with the given id.
func (l *Lab) Simulation(id string) (*domain.Simulation, bool) {
	return l.catalog.Get(id)
}

// Simulations returns every simulation in catalog order.
func (l *Lab) Simulations() []*domain.Simulation {
	return l.catalog.All()
}

// Session returns the view of the persisted session without changing it.
func (l *Lab) Session(ctx context.Context, simulationID string) (*View, error) {
	sim, err := l.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s, err := l.current(ctx, sim)
	if err != nil {
		return nil, err
	}
	return newView(sim, s), nil
}

// Results summarises a completed session.
func (l *Lab) Results(ctx context.Context, simulationID string) (*Report, error) {
	sim, err := l.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s, err := l.current(ctx, sim)
	if err != nil {
		return nil, err
	}
	result, err := domain.NewResult(sim, s)
	if err != nil {
		return nil, err
	}
	return newReport(sim, result), nil
}

// RoundSummary compares the state at the start of the current step's round with the
// current state. It is meaningful on any in-progress step, and is what summary steps show.
func (l *Lab) RoundSummary(ctx context.Context, simulationID string) (*RoundReport, error) {
	sim, err := l.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s, err := l.current(ctx, sim)
	if err != nil {
		return nil, err
	}
	step, ok := sim.Step(s.CurrentStep)
	if !ok {
		return nil, fmt.Errorf("round summary %s: %w", simulationID, ErrCompleted)
	}

	start := domain.RoundStartState(sim, s, s.CurrentStep)
	return &RoundReport{
		Round:   step.RoundNumber(),
		StepID:  step.ID,
		Start:   start,
		Current: s.State.Clone(),
		Changes: domain.CompareMetrics(sim.SummaryMetrics(), start, s.State),
	}, nil
}

func (l *Lab) lookup(simulationID string) (*domain.Simulation, error) {
	sim, ok := l.catalog.Get(simulationID)
	if !ok {
		return nil, fmt.Errorf("%s: %w", simulationID, ErrSimulationNotFound)
	}
	return sim, nil
}

func (l *Lab) current(ctx context.Context, sim *domain.Simulation) (*domain.Session, error) {
	s, err := l.sessions.Current(ctx, sim.ID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%s: %w", sim.ID, ErrSessionNotFound)
	}
	return s, nil
}
