package domain

// ApplyEffects adds each delta in effects to state and returns the result as a new State.
// Keys absent from state start at 0. A key with a matching metric definition is clamped
// to that metric's bounds; keys without one are left unbounded.
func ApplyEffects(state State, effects Effects, metrics []MetricDefinition) State {
	next := state.Clone()
	if len(effects) == 0 {
		return next
	}

	byKey := make(map[string]MetricDefinition, len(metrics))
	for _, m := range metrics {
		byKey[m.Key] = m
	}

	for key, delta := range effects {
		value := next.Get(key) + delta
		if m, ok := byKey[key]; ok {
			value = m.Clamp(value)
		}
		next[key] = value
	}
	return next
}

// ApplyDecision applies the effects of decision to state.
func ApplyDecision(decision Decision, state State, metrics []MetricDefinition) State {
	return ApplyEffects(state, decision.Effects, metrics)
}
