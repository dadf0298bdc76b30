/*
Package policylab is an economic decision simulation engine for teaching.

A simulation is a linear sequence of steps. Each step tells a short story and offers decisions;
every decision carries effects, signed deltas on named metrics (profit, inflation, satisfaction...).
Applying a decision adds the deltas to the session state and clamps each metric to its declared
bounds. Some steps also carry external effects, shocks the player did not choose, which are applied
exactly once when the step is first entered. Steps may be grouped into rounds closed by summary
steps, which compare the state at the start of the round with the current one.

# Architecture

The package follows a hexagonal layout:

  - pkg/domain holds the data model and the pure state transition (ApplyEffects).
  - pkg/catalog holds the authored simulations (embedded YAML).
  - pkg/session persists one session per simulation over any ports.KVStore
    (memory, file, redis, sqlite), optionally encrypted by pkg/persistence/middleware.
  - Lab, in this package, orchestrates a play and is what the adapters call.

# Usage

	cat, err := catalog.Default()
	if err != nil {
		log.Fatal(err)
	}
	lab := policylab.New(cat, session.NewManager(memory.NewStore()))

	ctx := context.Background()
	view, err := lab.Start(ctx, "microecon-cafe")
	if err != nil {
		log.Fatal(err)
	}

	for !view.Completed {
		if view.Step.IsSummary() || len(view.Step.Decisions) == 0 {
			view, err = lab.Continue(ctx, view.SimulationID)
		} else {
			view, err = lab.Choose(ctx, view.SimulationID, view.Step.Decisions[0].ID)
		}
		if err != nil {
			log.Fatal(err)
		}
	}

	report, _ := lab.Results(ctx, "microecon-cafe")
	fmt.Println(report.Narrative)

Sessions are single-user: there is one session per simulation id, and starting a simulation again
resumes it.
*/
package policylab
