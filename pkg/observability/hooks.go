package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/policylab/pkg/domain"
)

// LogHooks returns lifecycle hooks that log every session event.
// Persistence failures are left out: the session manager logs them itself.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	logEvent := func(ctx context.Context, e *domain.SessionEvent) {
		logger.InfoContext(ctx, string(e.Type),
			"simulation_id", e.SimulationID,
			"step", e.Step,
			"step_id", e.StepID,
			"decision_id", e.DecisionID,
			"resumed", e.Resumed,
		)
	}
	return domain.LifecycleHooks{
		OnSessionStart:    logEvent,
		OnDecision:        logEvent,
		OnAdvance:         logEvent,
		OnExternalEffects: logEvent,
		OnSessionReset:    logEvent,
	}
}

// Combine fans every event out to each of hooks, in order. Nil callbacks are skipped.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	session := func(pick func(domain.LifecycleHooks) func(context.Context, *domain.SessionEvent)) func(context.Context, *domain.SessionEvent) {
		var fns []func(context.Context, *domain.SessionEvent)
		for _, h := range hooks {
			if fn := pick(h); fn != nil {
				fns = append(fns, fn)
			}
		}
		if len(fns) == 0 {
			return nil
		}
		return func(ctx context.Context, e *domain.SessionEvent) {
			for _, fn := range fns {
				fn(ctx, e)
			}
		}
	}

	var onPersistence []func(context.Context, *domain.PersistenceEvent)
	for _, h := range hooks {
		if h.OnPersistenceError != nil {
			onPersistence = append(onPersistence, h.OnPersistenceError)
		}
	}

	out := domain.LifecycleHooks{
		OnSessionStart:    session(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnSessionStart }),
		OnDecision:        session(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnDecision }),
		OnAdvance:         session(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnAdvance }),
		OnExternalEffects: session(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnExternalEffects }),
		OnSessionReset:    session(func(h domain.LifecycleHooks) func(context.Context, *domain.SessionEvent) { return h.OnSessionReset }),
	}
	if len(onPersistence) > 0 {
		out.OnPersistenceError = func(ctx context.Context, e *domain.PersistenceEvent) {
			for _, fn := range onPersistence {
				fn(ctx, e)
			}
		}
	}
	return out
}
