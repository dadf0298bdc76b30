/*
Package domain contains the core data model and pure state-transition logic of policylab.

It defines the authored content of a simulation (metrics, steps, decisions, effects) and the
mutable run state of a Session. Everything here is free of I/O and persistence, following the
same hexagonal split as the adapters in pkg/adapters.

# Key Entities

  - Simulation: authored unit with initial state, metric definitions and an ordered list of steps.
  - DecisionStep: one narrative event with its decisions and optional external effects.
  - State: open mapping from metric key to value; absent keys read as 0.
  - DecisionRecord: immutable audit entry pairing a decision with before/after snapshots.
  - Session: progress of one user through one simulation.

# Effect Engine

ApplyEffects adds signed deltas to a State and clamps each touched key with the bounds of its
MetricDefinition. The input state is never mutated.
*/
package domain
