package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/policylab"
	"github.com/aretw0/policylab/pkg/adapters/memory"
	"github.com/aretw0/policylab/pkg/catalog"
	"github.com/aretw0/policylab/pkg/domain"
	"github.com/aretw0/policylab/pkg/session"
)

func shop() *domain.Simulation {
	return &domain.Simulation{
		ID:           "shop",
		Title:        "Corner Shop",
		InitialState: domain.State{"profit": 100, "wage": 15},
		Metrics: []domain.MetricDefinition{
			{Key: "profit", Label: "Profit", Format: domain.FormatCurrency},
			{Key: "wage", Label: "Wage", Format: domain.FormatCurrency},
		},
		Steps: []domain.DecisionStep{
			{
				ID:    "r1_open",
				Event: "Opening day.",
				Decisions: []domain.Decision{
					{ID: "expand", Text: "Expand", Effects: domain.Effects{"profit": 50}},
					{ID: "hold", Text: "Hold"},
				},
			},
			{ID: "r1_summary", Decisions: []domain.Decision{{ID: "continue", Text: "Continue"}}},
			{
				ID:              "r2_minimum_wage",
				Event:           "Minimum wage rises.",
				ExternalEffects: domain.Effects{"wage": 3},
				Decisions:       []domain.Decision{{ID: "absorb", Text: "Absorb", Effects: domain.Effects{"profit": -80}}},
			},
			{ID: "r2_briefing", Event: "Nothing to decide."},
			{ID: "r2_summary"},
		},
	}
}

func newTestLab(t *testing.T) *policylab.Lab {
	t.Helper()
	cat := catalog.New()
	require.NoError(t, cat.Register(shop()))
	return policylab.New(cat, session.NewManager(memory.NewStore()))
}

func play(t *testing.T, lab *policylab.Lab, input string, opts PlayOptions) string {
	t.Helper()
	var out bytes.Buffer
	opts.In = strings.NewReader(input)
	opts.Out = &out
	require.NoError(t, Play(context.Background(), lab, "shop", opts))
	return out.String()
}

func TestPlay_FullRun(t *testing.T) {
	lab := newTestLab(t)

	out := play(t, lab, "1\n\n1\n\n\n", PlayOptions{})

	assert.Contains(t, out, "# Corner Shop")
	assert.Contains(t, out, "You chose **Expand**.")
	assert.Contains(t, out, "## Round 1 summary")
	assert.Contains(t, out, "**Market shock:** Wage +$3.00")
	assert.Contains(t, out, "# Results: Corner Shop")
	assert.Contains(t, out, ">>> Finished shop.")

	v, err := lab.Session(context.Background(), "shop")
	require.NoError(t, err)
	assert.True(t, v.Completed)
	assert.Equal(t, domain.State{"profit": 70, "wage": 18}, v.Session.State)
}

func TestPlay_RejectsAndResumes(t *testing.T) {
	lab := newTestLab(t)

	out := play(t, lab, "9\nc\nHOLD\nq\n", PlayOptions{})
	assert.Contains(t, out, "Unknown decision. Type ? for help.")
	assert.Contains(t, out, "This step needs a decision. Type ? for help.")
	assert.Contains(t, out, ">>> Progress saved at 'r1_summary'.")

	out = play(t, lab, "?\ns\n", PlayOptions{})
	assert.Contains(t, out, ">>> Resuming shop at step 2 of 5.")
	assert.Contains(t, out, "Commands:")
	assert.Equal(t, 2, strings.Count(out, "## Round 1 summary"), "shown on entry and on request")
	assert.Contains(t, out, ">>> Progress saved at 'r1_summary'.", "end of input saves")

	t.Run("summary accepts its continue decision", func(t *testing.T) {
		play(t, lab, "1\nq\n", PlayOptions{Quiet: true})
		v, err := lab.Session(context.Background(), "shop")
		require.NoError(t, err)
		assert.Equal(t, "r2_minimum_wage", v.Step.ID)
	})

	t.Run("fresh", func(t *testing.T) {
		out := play(t, lab, "q\n", PlayOptions{Fresh: true})
		assert.Contains(t, out, "# Corner Shop")
		v, err := lab.Session(context.Background(), "shop")
		require.NoError(t, err)
		assert.Equal(t, 0, v.Session.CurrentStep)
	})
}

func TestPlay_MixedCaseDecisionIDs(t *testing.T) {
	sim := &domain.Simulation{
		ID:           "cafe",
		InitialState: domain.State{"price": 3},
		Steps: []domain.DecisionStep{
			{ID: "first", Decisions: []domain.Decision{{ID: "keepPrices", Text: "Keep"}, {ID: "raisePrices", Text: "Raise"}}},
			{ID: "second", Decisions: []domain.Decision{{ID: "keepPrices", Text: "Keep"}, {ID: "raisePrices", Text: "Raise"}}},
		},
	}
	cat := catalog.New()
	require.NoError(t, cat.Register(sim))
	lab := policylab.New(cat, session.NewManager(memory.NewStore()))

	var out bytes.Buffer
	err := Play(context.Background(), lab, "cafe", PlayOptions{
		In:    strings.NewReader("raisePrices\nKEEPPRICES\n"),
		Out:   &out,
		Quiet: true,
	})
	require.NoError(t, err)

	v, err := lab.Session(context.Background(), "cafe")
	require.NoError(t, err)
	require.True(t, v.Completed)
	require.Len(t, v.Session.DecisionHistory, 2)
	assert.Equal(t, "raisePrices", v.Session.DecisionHistory[0].DecisionID)
	assert.Equal(t, "keepPrices", v.Session.DecisionHistory[1].DecisionID)
}

func TestPlay_UnknownSimulation(t *testing.T) {
	err := Play(context.Background(), newTestLab(t), "nope", PlayOptions{In: strings.NewReader(""), Out: io.Discard})
	assert.ErrorIs(t, err, policylab.ErrSimulationNotFound)
}

func TestLineReader_Cancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newLineReader(r).ReadLine(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, isInterrupted(err))
}

func TestLineReader_EOF(t *testing.T) {
	lr := newLineReader(strings.NewReader("last line without newline"))
	line, err := lr.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "last line without newline", line)

	_, err = lr.ReadLine(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestSanitizeInput(t *testing.T) {
	clean, err := sanitizeInput("ho\x1b[31mld\x00")
	require.NoError(t, err)
	assert.Equal(t, "ho[31mld", clean)

	_, err = sanitizeInput(strings.Repeat("a", maxInputSize+1))
	assert.ErrorIs(t, err, ErrInputTooLarge)

	_, err = sanitizeInput("\xff")
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
