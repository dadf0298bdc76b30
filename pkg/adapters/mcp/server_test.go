package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/policylab"
	"github.com/aretw0/policylab/pkg/adapters/memory"
	"github.com/aretw0/policylab/pkg/catalog"
	"github.com/aretw0/policylab/pkg/domain"
	"github.com/aretw0/policylab/pkg/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cat := catalog.New()
	require.NoError(t, cat.Register(&domain.Simulation{
		ID:           "stall",
		Title:        "Market Stall",
		Concepts:     []string{"Supply"},
		InitialState: domain.State{"stock": 10},
		Metrics:      []domain.MetricDefinition{{Key: "stock", Label: "Stock", Format: domain.FormatInteger, Min: domain.Bound(0)}},
		Steps: []domain.DecisionStep{
			{ID: "r1_buy", Event: "A supplier calls.", Decisions: []domain.Decision{
				{ID: "buy", Text: "Buy", Effects: domain.Effects{"stock": 5}},
				{ID: "dump", Text: "Dump", Effects: domain.Effects{"stock": -50}},
			}},
			{ID: "r1_summary"},
		},
	}))
	return NewServer(policylab.New(cat, session.NewManager(memory.NewStore())))
}

func TestServer_Tools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	sim := simulationArgs{SimulationID: "stall"}

	list, err := s.handleList(ctx, req, nil)
	require.NoError(t, err)
	require.Len(t, list.Simulations, 1)
	assert.Equal(t, CatalogEntry{ID: "stall", Title: "Market Stall", Concepts: []string{"Supply"}, Steps: 2}, list.Simulations[0])

	started, err := s.handleStart(ctx, req, sim)
	require.NoError(t, err)
	assert.Equal(t, "r1_buy", started.View.Step.ID)
	assert.Contains(t, started.Markdown, "A supplier calls.")

	_, err = s.handleChoose(ctx, req, decisionArgs{SimulationID: "stall"})
	assert.ErrorContains(t, err, "decision_id is required")

	_, err = s.handleChoose(ctx, req, decisionArgs{SimulationID: "stall", DecisionID: "sell"})
	assert.ErrorIs(t, err, policylab.ErrDecisionNotFound)

	chosen, err := s.handleChoose(ctx, req, decisionArgs{SimulationID: "stall", DecisionID: "dump"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, chosen.View.Session.State["stock"], "clamped at min")
	assert.Equal(t, domain.State{"stock": -10}, chosen.View.Outcome.Delta)

	round, err := s.handleRoundSummary(ctx, req, sim)
	require.NoError(t, err)
	assert.Equal(t, 1, round.Round.Round)
	assert.Contains(t, round.Markdown, "Round 1 summary")

	_, err = s.handleResults(ctx, req, sim)
	assert.ErrorIs(t, err, policylab.ErrNotCompleted)

	done, err := s.handleContinue(ctx, req, sim)
	require.NoError(t, err)
	assert.True(t, done.View.Completed)

	results, err := s.handleResults(ctx, req, sim)
	require.NoError(t, err)
	assert.Equal(t, 0.0, results.Report.FinalState["stock"])
	assert.Contains(t, results.Markdown, "Stock went from 10 to 0.")

	reset, err := s.handleReset(ctx, req, sim)
	require.NoError(t, err)
	assert.Equal(t, 10.0, reset.View.Session.State["stock"])
}

func TestServer_UnknownSimulation(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleStart(context.Background(), mcp.CallToolRequest{}, simulationArgs{SimulationID: "nope"})
	assert.ErrorIs(t, err, policylab.ErrSimulationNotFound)
}

func TestServer_CatalogResource(t *testing.T) {
	s := newTestServer(t)
	require.NotNil(t, s.MCPServer())

	contents, err := s.readCatalog(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, CatalogURI, text.URI)

	var entries []CatalogEntry
	require.NoError(t, json.Unmarshal([]byte(text.Text), &entries))
	assert.Equal(t, "stall", entries[0].ID)
}
