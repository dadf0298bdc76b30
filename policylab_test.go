package policylab_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/policylab"
	"github.com/aretw0/policylab/pkg/adapters/memory"
	"github.com/aretw0/policylab/pkg/catalog"
	"github.com/aretw0/policylab/pkg/domain"
	"github.com/aretw0/policylab/pkg/ports"
	"github.com/aretw0/policylab/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// shopFixture exercises every kind of step: a decision step, a round summary, a step
// with an external shock, an informational step and a closing summary.
func shopFixture() *domain.Simulation {
	return &domain.Simulation{
		ID:           "shop",
		Title:        "Corner Shop",
		Concepts:     []string{"Pricing power", "Something New"},
		InitialState: domain.State{"profit": 100, "confidence": 95, "wage": 15},
		Metrics: []domain.MetricDefinition{
			{Key: "profit", Label: "Profit", Format: domain.FormatCurrency},
			{Key: "confidence", Label: "Confidence", Format: domain.FormatIndex, Min: domain.Bound(0), Max: domain.Bound(100)},
			{Key: "wage", Label: "Wage", Format: domain.FormatCurrency, Min: domain.Bound(10), Max: domain.Bound(25)},
		},
		Steps: []domain.DecisionStep{
			{
				ID:    "r1_open",
				Event: "Opening day.",
				Decisions: []domain.Decision{
					{ID: "expand", Text: "Expand", Effects: domain.Effects{"profit": 50, "confidence": 20}, Feedback: "Busy day."},
					{ID: "hold", Text: "Hold", Effects: domain.Effects{}},
				},
			},
			{ID: "r1_summary", Decisions: []domain.Decision{{ID: "continue", Text: "Continue"}}},
			{
				ID:              "r2_minimum_wage",
				Event:           "Minimum wage rises.",
				ExternalEffects: domain.Effects{"wage": 3},
				Decisions: []domain.Decision{
					{ID: "absorb", Text: "Absorb", Effects: domain.Effects{"profit": -80}},
				},
			},
			{ID: "r2_briefing", Event: "Nothing to decide."},
			{ID: "r2_summary", Decisions: []domain.Decision{{ID: "continue", Text: "View Results"}}},
		},
	}
}

func newLab(t *testing.T, sims ...*domain.Simulation) *policylab.Lab {
	t.Helper()
	cat := catalog.New()
	for _, sim := range sims {
		require.NoError(t, cat.Register(sim))
	}
	return policylab.New(cat, session.NewManager(memory.NewStore()))
}

func TestLab_Catalog(t *testing.T) {
	lab := newLab(t, shopFixture())

	sim, ok := lab.Simulation("shop")
	require.True(t, ok)
	assert.Equal(t, "Corner Shop", sim.Title)

	_, ok = lab.Simulation("nope")
	assert.False(t, ok)
	assert.Len(t, lab.Simulations(), 1)
}

func TestLab_UnknownSimulation(t *testing.T) {
	lab := newLab(t, shopFixture())
	ctx := context.Background()

	_, err := lab.Start(ctx, "nope")
	assert.ErrorIs(t, err, policylab.ErrSimulationNotFound)
	_, err = lab.Choose(ctx, "nope", "expand")
	assert.ErrorIs(t, err, policylab.ErrSimulationNotFound)
	_, err = lab.Results(ctx, "nope")
	assert.ErrorIs(t, err, policylab.ErrSimulationNotFound)
}

func TestLab_NoSessionYet(t *testing.T) {
	lab := newLab(t, shopFixture())
	ctx := context.Background()

	_, err := lab.Session(ctx, "shop")
	assert.ErrorIs(t, err, policylab.ErrSessionNotFound)
	_, err = lab.Choose(ctx, "shop", "expand")
	assert.ErrorIs(t, err, policylab.ErrSessionNotFound)
	_, err = lab.Continue(ctx, "shop")
	assert.ErrorIs(t, err, policylab.ErrSessionNotFound)
}

func TestLab_Start(t *testing.T) {
	lab := newLab(t, shopFixture())
	ctx := context.Background()

	v, err := lab.Start(ctx, "shop")
	require.NoError(t, err)
	require.NotNil(t, v.Step)
	assert.Equal(t, "r1_open", v.Step.ID)
	assert.Equal(t, 5, v.TotalSteps)
	assert.Equal(t, 20.0, v.Progress)
	assert.False(t, v.Completed)
	assert.Nil(t, v.Shock)
	assert.Equal(t, domain.State{"profit": 100, "confidence": 95, "wage": 15}, v.Session.State)

	_, err = lab.Choose(ctx, "shop", "hold")
	require.NoError(t, err)

	t.Run("Resumes", func(t *testing.T) {
		again, err := lab.Start(ctx, "shop")
		require.NoError(t, err)
		assert.Equal(t, 1, again.Session.CurrentStep)
		assert.Equal(t, v.Session.StartedAt, again.Session.StartedAt)
	})
}

func TestLab_Choose(t *testing.T) {
	lab := newLab(t, shopFixture())
	ctx := context.Background()
	_, err := lab.Start(ctx, "shop")
	require.NoError(t, err)

	t.Run("Continue Needs A Decision", func(t *testing.T) {
		_, err := lab.Continue(ctx, "shop")
		assert.ErrorIs(t, err, policylab.ErrDecisionRequired)
	})

	t.Run("Unknown Decision", func(t *testing.T) {
		_, err := lab.Choose(ctx, "shop", "gamble")
		assert.ErrorIs(t, err, policylab.ErrDecisionNotFound)
	})

	v, err := lab.Choose(ctx, "shop", "expand")
	require.NoError(t, err)

	// profit 100 -> 150; confidence 95 + 20 clamps to 100.
	assert.Equal(t, 150.0, v.Session.State["profit"])
	assert.Equal(t, 100.0, v.Session.State["confidence"])
	assert.Equal(t, 15.0, v.Session.State["wage"])

	require.NotNil(t, v.Outcome)
	assert.Equal(t, "r1_open", v.Outcome.StepID)
	assert.Equal(t, "Busy day.", v.Outcome.Decision.Feedback)
	assert.Equal(t, domain.State{"profit": 50, "confidence": 5}, v.Outcome.Delta)

	require.Len(t, v.Session.DecisionHistory, 1)
	rec := v.Session.DecisionHistory[0]
	assert.Equal(t, "expand", rec.DecisionID)
	assert.Equal(t, "Expand", rec.DecisionText)
	assert.Equal(t, 100.0, rec.StateBefore["profit"])
	assert.Equal(t, 150.0, rec.StateAfter["profit"])

	require.NotNil(t, v.Step)
	assert.True(t, v.Step.IsSummary())

	t.Run("Summary Requires Continue", func(t *testing.T) {
		_, err := lab.Choose(ctx, "shop", "continue")
		assert.ErrorIs(t, err, policylab.ErrContinueRequired)
	})
}

func TestLab_Playthrough(t *testing.T) {
	lab := newLab(t, shopFixture())
	ctx := context.Background()

	_, err := lab.Start(ctx, "shop")
	require.NoError(t, err)
	_, err = lab.Choose(ctx, "shop", "expand")
	require.NoError(t, err)

	// Leaving the round 1 summary enters the minimum wage step: wage +3, once.
	v, err := lab.Continue(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, "r2_minimum_wage", v.Step.ID)
	assert.Equal(t, domain.State{"wage": 3}, v.Shock)
	assert.Equal(t, 18.0, v.Session.State["wage"])
	assert.Equal(t, []string{"r2_minimum_wage"}, v.Session.ExternalEffectsApplied)

	again, err := lab.Start(ctx, "shop")
	require.NoError(t, err)
	assert.Nil(t, again.Shock)
	assert.Equal(t, 18.0, again.Session.State["wage"])

	v, err = lab.Choose(ctx, "shop", "absorb")
	require.NoError(t, err)
	assert.Equal(t, "r2_briefing", v.Step.ID)
	assert.Equal(t, 70.0, v.Session.State["profit"])

	// Informational step: nothing to choose.
	v, err = lab.Continue(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, "r2_summary", v.Step.ID)

	t.Run("Round Summary", func(t *testing.T) {
		rs, err := lab.RoundSummary(ctx, "shop")
		require.NoError(t, err)
		assert.Equal(t, 2, rs.Round)
		assert.Equal(t, "r2_summary", rs.StepID)
		assert.Equal(t, domain.State{"profit": 150, "confidence": 100, "wage": 15}, rs.Start)

		significant := rs.Significant()
		require.Len(t, significant, 2)
		assert.Equal(t, "profit", significant[0].Metric.Key)
		assert.Equal(t, -80.0, significant[0].Change)
		assert.Equal(t, "wage", significant[1].Metric.Key)
		assert.Equal(t, 3.0, significant[1].Change)
	})

	_, err = lab.Results(ctx, "shop")
	assert.ErrorIs(t, err, policylab.ErrNotCompleted)

	v, err = lab.Continue(ctx, "shop")
	require.NoError(t, err)
	assert.True(t, v.Completed)
	assert.Nil(t, v.Step)
	assert.Equal(t, 100.0, v.Progress)
	assert.Equal(t, 5, v.Session.CurrentStep)

	t.Run("Completed Rejects Moves", func(t *testing.T) {
		_, err := lab.Continue(ctx, "shop")
		assert.ErrorIs(t, err, policylab.ErrCompleted)
		_, err = lab.Choose(ctx, "shop", "expand")
		assert.ErrorIs(t, err, policylab.ErrCompleted)
		_, err = lab.RoundSummary(ctx, "shop")
		assert.ErrorIs(t, err, policylab.ErrCompleted)
	})

	t.Run("Results", func(t *testing.T) {
		report, err := lab.Results(ctx, "shop")
		require.NoError(t, err)

		assert.Equal(t, "Corner Shop", report.Title)
		assert.Equal(t, domain.State{"profit": 70, "confidence": 100, "wage": 18}, report.FinalState)
		assert.Len(t, report.DecisionHistory, 2)
		assert.Equal(t, report.DecisionHistory[1].Timestamp, report.CompletedAt)
		assert.Equal(t,
			"Your decisions led to these outcomes: Profit went from $100.00 to $70.00. "+
				"Confidence went from 95/100 to 100/100. Wage went from $15.00 to $18.00.",
			report.Narrative)

		assert.Equal(t, []domain.SeriesPoint{
			{Label: "Start", Value: 100},
			{Label: "Step 1", Value: 150},
			{Label: "Step 2", Value: 70},
			{Label: "End", Value: 70},
		}, report.Series["profit"])

		require.Len(t, report.Concepts, 2)
		assert.Equal(t, catalog.DefaultConceptDescription, report.Concepts[1].Description)
	})

	t.Run("History Chains", func(t *testing.T) {
		view, err := lab.Session(ctx, "shop")
		require.NoError(t, err)
		h := view.Session.DecisionHistory
		for i := 0; i+1 < len(h); i++ {
			// The shock between the two decisions lands in the second record's StateBefore.
			assert.Equal(t, h[i].StateAfter["profit"], h[i+1].StateBefore["profit"])
		}
	})
}

func TestLab_Reset(t *testing.T) {
	lab := newLab(t, shopFixture())
	ctx := context.Background()

	_, err := lab.Start(ctx, "shop")
	require.NoError(t, err)
	_, err = lab.Choose(ctx, "shop", "expand")
	require.NoError(t, err)

	v, err := lab.Reset(ctx, "shop")
	require.NoError(t, err)
	assert.Equal(t, 0, v.Session.CurrentStep)
	assert.Empty(t, v.Session.DecisionHistory)
	assert.Empty(t, v.Session.ExternalEffectsApplied)
	assert.Equal(t, domain.State{"profit": 100, "confidence": 95, "wage": 15}, v.Session.State)

	sim, _ := lab.Simulation("shop")
	assert.Equal(t, 100.0, sim.InitialState["profit"], "initial state is never mutated")
}

func TestLab_ShockOnFirstStep(t *testing.T) {
	sim := &domain.Simulation{
		ID:           "shock",
		InitialState: domain.State{"x": 1},
		Steps: []domain.DecisionStep{
			{ID: "first", ExternalEffects: domain.Effects{"x": 4}, Decisions: []domain.Decision{{ID: "go"}}},
		},
	}
	lab := newLab(t, sim)
	ctx := context.Background()

	v, err := lab.Start(ctx, "shock")
	require.NoError(t, err)
	assert.Equal(t, domain.State{"x": 4}, v.Shock)
	assert.Equal(t, 5.0, v.Session.State["x"])

	v, err = lab.Reset(ctx, "shock")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v.Session.State["x"], "reset re-enters the first step")
}

func TestLab_ChooseEntersPendingShock(t *testing.T) {
	sim := &domain.Simulation{
		ID:           "pending",
		InitialState: domain.State{"x": 1},
		Steps: []domain.DecisionStep{
			{ID: "first", ExternalEffects: domain.Effects{"x": 4}, Decisions: []domain.Decision{{ID: "double", Effects: domain.Effects{"x": 1}}}},
		},
	}
	cat := catalog.New()
	require.NoError(t, cat.Register(sim))
	mgr := session.NewManager(memory.NewStore())
	lab := policylab.New(cat, mgr)
	ctx := context.Background()

	// A session created directly through the store has not entered its step yet.
	_, err := mgr.Create(ctx, "pending", sim.InitialState)
	require.NoError(t, err)

	v, err := lab.Choose(ctx, "pending", "double")
	require.NoError(t, err)
	assert.Equal(t, 6.0, v.Session.State["x"])
	assert.Equal(t, 5.0, v.Session.DecisionHistory[0].StateBefore["x"])
}

func TestLab_ContinueEntersPendingShock(t *testing.T) {
	sim := &domain.Simulation{
		ID:           "briefing",
		InitialState: domain.State{"wage": 10},
		Steps: []domain.DecisionStep{
			{ID: "notice", Event: "Minimum wage rises.", ExternalEffects: domain.Effects{"wage": 3}},
			{ID: "respond", Decisions: []domain.Decision{{ID: "absorb"}}},
		},
	}
	cat := catalog.New()
	require.NoError(t, cat.Register(sim))
	mgr := session.NewManager(memory.NewStore())
	lab := policylab.New(cat, mgr)
	ctx := context.Background()

	_, err := mgr.Create(ctx, "briefing", sim.InitialState)
	require.NoError(t, err)

	v, err := lab.Continue(ctx, "briefing")
	require.NoError(t, err)
	assert.Equal(t, 1, v.Session.CurrentStep)
	assert.Equal(t, 13.0, v.Session.State["wage"])
	assert.Equal(t, []string{"notice"}, v.Session.ExternalEffectsApplied)
}

// replayStore serves one saved snapshot of a key in place of the stored value, the way a
// concurrent caller sees a session that another request is about to move.
type replayStore struct {
	ports.KVStore

	mu       sync.Mutex
	key      string
	pending  []byte
	snapshot []byte
}

func (r *replayStore) capture(ctx context.Context, t *testing.T, key string) {
	t.Helper()
	data, err := r.KVStore.Get(ctx, key)
	require.NoError(t, err)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.key, r.pending = key, data
}

func (r *replayStore) replayOnce() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = r.pending
}

func (r *replayStore) Get(ctx context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	if key == r.key && r.snapshot != nil {
		data := r.snapshot
		r.snapshot = nil
		r.mu.Unlock()
		return data, nil
	}
	r.mu.Unlock()
	return r.KVStore.Get(ctx, key)
}

func TestLab_StaleReadsDoNotMoveTheSession(t *testing.T) {
	sim := &domain.Simulation{
		ID:           "cards",
		InitialState: domain.State{"users": 100},
		Steps: []domain.DecisionStep{
			{ID: "r3_card0", ExternalEffects: domain.Effects{"users": -10}, Decisions: []domain.Decision{{ID: "accept", Effects: domain.Effects{"users": 5}}}},
			{ID: "r3_card1", Decisions: []domain.Decision{{ID: "accept", Effects: domain.Effects{"users": 7}}}},
		},
	}
	ctx := context.Background()

	setup := func(t *testing.T, s *domain.Simulation) (*policylab.Lab, *replayStore) {
		t.Helper()
		cat := catalog.New()
		require.NoError(t, cat.Register(s))
		store := &replayStore{KVStore: memory.NewStore()}
		mgr := session.NewManager(store)
		_, err := mgr.Create(ctx, s.ID, s.InitialState)
		require.NoError(t, err)
		// Snapshot taken before the first step was entered.
		store.capture(ctx, t, session.DefaultPrefix+s.ID)
		return policylab.New(cat, mgr), store
	}

	t.Run("decision is not applied to the next step", func(t *testing.T) {
		lab, store := setup(t, sim)
		_, err := lab.Choose(ctx, "cards", "accept")
		require.NoError(t, err)

		store.replayOnce()
		_, err = lab.Choose(ctx, "cards", "accept")
		assert.ErrorIs(t, err, policylab.ErrStepOutOfOrder)

		v, err := lab.Session(ctx, "cards")
		require.NoError(t, err)
		assert.Equal(t, 1, v.Session.CurrentStep)
		assert.Len(t, v.Session.DecisionHistory, 1)
		assert.Equal(t, 95.0, v.Session.State["users"])
	})

	t.Run("completed session is reported, not indexed", func(t *testing.T) {
		single := &domain.Simulation{
			ID:           "single",
			InitialState: domain.State{"users": 100},
			Steps:        sim.Steps[:1],
		}
		lab, store := setup(t, single)
		v, err := lab.Choose(ctx, "single", "accept")
		require.NoError(t, err)
		require.True(t, v.Completed)

		store.replayOnce()
		assert.NotPanics(t, func() {
			_, err = lab.Choose(ctx, "single", "accept")
		})
		assert.ErrorIs(t, err, policylab.ErrCompleted)

		store.replayOnce()
		_, err = lab.Continue(ctx, "single")
		assert.ErrorIs(t, err, policylab.ErrCompleted)
	})
}

func TestLab_BuiltinCafe(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	lab := policylab.New(cat, session.NewManager(memory.NewStore()))
	ctx := context.Background()

	_, err = lab.Start(ctx, "microecon-cafe")
	require.NoError(t, err)

	v, err := lab.Choose(ctx, "microecon-cafe", "keep_prices")
	require.NoError(t, err)
	assert.Equal(t, "period2_minimum_wage", v.Step.ID)
	assert.Equal(t, 18.0, v.Session.State["wage"])

	v, err = lab.Choose(ctx, "microecon-cafe", "self_serve_kiosks")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v.Session.State["workers"])
	assert.Equal(t, 360.0, v.Session.State["dailyProfit"])
	assert.Equal(t, 18.0, v.Session.State["wage"], "shock is not applied twice")
}

func TestLab_GymHasNoDecisions(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)
	lab := policylab.New(cat, session.NewManager(memory.NewStore()))
	ctx := context.Background()

	_, err = lab.Start(ctx, "microecon-gym-elasticity")
	require.NoError(t, err)
	v, err := lab.Continue(ctx, "microecon-gym-elasticity")
	require.NoError(t, err)
	assert.True(t, v.Completed)

	report, err := lab.Results(ctx, "microecon-gym-elasticity")
	require.NoError(t, err)
	assert.Equal(t, "Your decisions created a balanced outcome, with moderate changes across key indicators.", report.Narrative)
	assert.Empty(t, report.Series)
	assert.Empty(t, report.Changes)
	assert.NotZero(t, report.CompletedAt)
}
