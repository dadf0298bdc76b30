package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/policylab"
	"github.com/aretw0/policylab/internal/presentation/tui"
	"github.com/aretw0/policylab/pkg/catalog"
	"github.com/aretw0/policylab/pkg/domain"
)

func bakery() *domain.Simulation {
	return &domain.Simulation{
		ID:           "bakery",
		Title:        "Bakery",
		Description:  "Run a bakery.",
		TimeEstimate: "5 min",
		Tags:         []string{"pricing"},
		InitialState: domain.State{"profit": 100, "mood": 80},
		Metrics: []domain.MetricDefinition{
			{Key: "profit", Label: "Profit", Format: domain.FormatCurrency},
			{Key: "mood", Label: "Mood", Format: domain.FormatIndex},
		},
		Steps: []domain.DecisionStep{
			{
				ID:            "r1_price",
				Event:         "Flour got expensive.",
				AIExplanation: "Costs pass through to prices.",
				Decisions: []domain.Decision{
					{ID: "raise", Text: "Raise prices", Effects: domain.Effects{"profit": 20, "mood": -10}, Feedback: "Customers grumble."},
					{ID: "hold", Text: "Hold prices"},
				},
			},
			{ID: "r1_summary"},
		},
	}
}

func TestCatalogMarkdown(t *testing.T) {
	md := tui.CatalogMarkdown([]*domain.Simulation{bakery()})
	assert.Contains(t, md, "## Bakery")
	assert.Contains(t, md, "`bakery` · 5 min · 2 steps")
	assert.Contains(t, md, "*pricing*")
}

func TestSimulationMarkdown(t *testing.T) {
	md := tui.SimulationMarkdown(bakery())
	assert.Contains(t, md, "| Profit | $100.00 |")
	assert.Contains(t, md, "| Mood | 80/100 (High) |")
}

func TestStepMarkdown(t *testing.T) {
	sim := bakery()
	s := domain.NewSession(sim.ID, sim.InitialState)

	t.Run("decision step", func(t *testing.T) {
		v := &policylab.View{Session: s, Step: &sim.Steps[0], TotalSteps: 2, Progress: 50}
		md := tui.StepMarkdown(sim, v)
		assert.Contains(t, md, "### Round 1 · Step 1 of 2 (50%)")
		assert.Contains(t, md, "Flour got expensive.")
		assert.Contains(t, md, "1. **Raise prices** `raise`")
		assert.Contains(t, md, "2. **Hold prices** `hold`")
	})

	t.Run("after a decision", func(t *testing.T) {
		next := s.Clone()
		next.CurrentStep = 1
		v := &policylab.View{
			Session:    next,
			Step:       &sim.Steps[1],
			TotalSteps: 2,
			Progress:   100,
			Outcome: &policylab.Outcome{
				StepID:   "r1_price",
				Decision: sim.Steps[0].Decisions[0],
				Delta:    domain.State{"profit": 20, "mood": -10},
			},
		}
		md := tui.StepMarkdown(sim, v)
		assert.Contains(t, md, "You chose **Raise prices**.")
		assert.Contains(t, md, "Profit +$20.00, Mood -10")
		assert.Contains(t, md, "> Customers grumble.")
		assert.Contains(t, md, "**Why:** Costs pass through to prices.")
		assert.Contains(t, md, "End of round")
	})

	t.Run("shock", func(t *testing.T) {
		v := &policylab.View{Session: s, Step: &sim.Steps[0], TotalSteps: 2, Shock: domain.State{"mood": -5}}
		assert.Contains(t, tui.StepMarkdown(sim, v), "**Market shock:** Mood -5")
	})

	t.Run("completed", func(t *testing.T) {
		v := &policylab.View{Session: s, TotalSteps: 2, Completed: true}
		assert.Contains(t, tui.StepMarkdown(sim, v), "Simulation complete")
	})
}

func TestDeltaLine_UndeclaredKeysLast(t *testing.T) {
	line := tui.DeltaLine(bakery(), domain.State{"zeta": 1, "mood": 2, "alpha": -3})
	assert.Equal(t, "Mood +2, alpha -3, zeta +1", line)
}

func TestRoundMarkdown(t *testing.T) {
	sim := bakery()
	r := &policylab.RoundReport{
		Round:   1,
		Changes: domain.CompareMetrics(sim.Metrics, domain.State{"profit": 100, "mood": 80}, domain.State{"profit": 120, "mood": 80}),
	}
	md := tui.RoundMarkdown(r)
	assert.Contains(t, md, "## Round 1 summary")
	assert.Contains(t, md, "| Profit | $100.00 | $120.00 | +$20.00 |")
	assert.NotContains(t, md, "| Mood |")

	quiet := &policylab.RoundReport{Round: 2}
	assert.Contains(t, tui.RoundMarkdown(quiet), "No significant changes")
}

func TestResultsMarkdown(t *testing.T) {
	sim := bakery()
	s := domain.NewSession(sim.ID, sim.InitialState)
	after := domain.ApplyDecision(sim.Steps[0].Decisions[0], s.State, sim.Metrics)
	s.DecisionHistory = append(s.DecisionHistory, domain.NewDecisionRecord("r1_price", sim.Steps[0].Decisions[0], s.State, after))
	s.State = after
	s.CurrentStep = 2

	result, err := domain.NewResult(sim, s)
	require.NoError(t, err)
	report := &policylab.Report{
		Result:              result,
		Title:               sim.Title,
		Narrative:           result.Narrative(sim),
		Changes:             result.Changes(sim),
		Concepts:            []catalog.Concept{{Name: "Elasticity", Description: "How demand responds."}},
		ReflectionQuestions: []string{"Would you raise prices again?"},
	}

	md := tui.ResultsMarkdown(report)
	assert.Contains(t, md, "# Results: Bakery")
	assert.Contains(t, md, "Profit went from $100.00 to $120.00.")
	assert.Contains(t, md, "1. `r1_price` Raise prices")
	assert.Contains(t, md, "- **Elasticity**: How demand responds.")
	assert.Contains(t, md, "- Would you raise prices again?")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "1.2.3")
	assert.True(t, strings.Contains(buf.String(), "v1.2.3"))
}

func TestPlain(t *testing.T) {
	out, err := tui.Plain("# hi")
	require.NoError(t, err)
	assert.Equal(t, "# hi", out)
}
