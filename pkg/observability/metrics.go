package observability

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/aretw0/policylab/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "policylab"

// Metrics holds the session counters.
type Metrics struct {
	sessionsStarted   *prometheus.CounterVec
	decisions         *prometheus.CounterVec
	advances          *prometheus.CounterVec
	externalEffects   *prometheus.CounterVec
	resets            *prometheus.CounterVec
	persistenceErrors *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
// Registering twice with the same registerer reuses the existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Sessions created or resumed.",
		}, []string{"simulation_id", "resumed"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Decisions recorded.",
		}, []string{"simulation_id", "step_id", "decision_id"}),
		advances: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advances_total",
			Help:      "Steps left without a decision (summaries and informational steps).",
		}, []string{"simulation_id"}),
		externalEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_effects_total",
			Help:      "External shocks applied on step entry.",
		}, []string{"simulation_id", "step_id"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resets_total",
			Help:      "Sessions reset to the initial state.",
		}, []string{"simulation_id"}),
		persistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_errors_total",
			Help:      "Storage failures absorbed by the session store.",
		}, []string{"operation"}),
	}

	for _, c := range []**prometheus.CounterVec{
		&m.sessionsStarted, &m.decisions, &m.advances,
		&m.externalEffects, &m.resets, &m.persistenceErrors,
	} {
		registered, err := register(reg, *c)
		if err != nil {
			return nil, err
		}
		*c = registered
	}
	return m, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}
	return nil, err
}

// Hooks returns lifecycle hooks that update the counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, e *domain.SessionEvent) {
			m.sessionsStarted.WithLabelValues(e.SimulationID, strconv.FormatBool(e.Resumed)).Inc()
		},
		OnDecision: func(_ context.Context, e *domain.SessionEvent) {
			m.decisions.WithLabelValues(e.SimulationID, e.StepID, e.DecisionID).Inc()
		},
		OnAdvance: func(_ context.Context, e *domain.SessionEvent) {
			m.advances.WithLabelValues(e.SimulationID).Inc()
		},
		OnExternalEffects: func(_ context.Context, e *domain.SessionEvent) {
			m.externalEffects.WithLabelValues(e.SimulationID, e.StepID).Inc()
		},
		OnSessionReset: func(_ context.Context, e *domain.SessionEvent) {
			m.resets.WithLabelValues(e.SimulationID).Inc()
		},
		OnPersistenceError: func(_ context.Context, e *domain.PersistenceEvent) {
			m.persistenceErrors.WithLabelValues(e.Operation).Inc()
		},
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
