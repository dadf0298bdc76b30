package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/policylab"
	"github.com/aretw0/policylab/internal/logging"
	"github.com/aretw0/policylab/internal/presentation/tui"
	"github.com/aretw0/policylab/pkg/domain"
)

// CatalogURI is the resource listing every simulation.
const CatalogURI = "policylab://catalog"

// Engine is the part of policylab.Lab exposed as MCP tools.
type Engine interface {
	Simulation(id string) (*domain.Simulation, bool)
	Simulations() []*domain.Simulation
	Start(ctx context.Context, simulationID string) (*policylab.View, error)
	Choose(ctx context.Context, simulationID, decisionID string) (*policylab.View, error)
	Continue(ctx context.Context, simulationID string) (*policylab.View, error)
	Reset(ctx context.Context, simulationID string) (*policylab.View, error)
	Results(ctx context.Context, simulationID string) (*policylab.Report, error)
	RoundSummary(ctx context.Context, simulationID string) (*policylab.RoundReport, error)
}

var _ Engine = (*policylab.Lab)(nil)

// CatalogEntry describes one simulation for agents choosing what to play.
type CatalogEntry struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Concepts    []string `json:"concepts,omitempty"`
	Steps       int      `json:"steps"`
}

// CatalogResponse is the output of list_simulations.
type CatalogResponse struct {
	Simulations []CatalogEntry `json:"simulations" jsonschema_description:"Every simulation that can be started"`
}

// StepResponse is the output of every tool that moves a session.
type StepResponse struct {
	View     *policylab.View `json:"view" jsonschema_description:"The session position after the move"`
	Markdown string          `json:"markdown" jsonschema_description:"The step as it would be shown to a player"`
}

// ResultsResponse is the output of get_results.
type ResultsResponse struct {
	Report   *policylab.Report `json:"report" jsonschema_description:"Final state, metric changes and chart series"`
	Markdown string            `json:"markdown" jsonschema_description:"The results page as it would be shown to a player"`
}

// RoundResponse is the output of get_round_summary.
type RoundResponse struct {
	Round    *policylab.RoundReport `json:"round"`
	Markdown string                 `json:"markdown"`
}

type simulationArgs struct {
	SimulationID string `json:"simulation_id"`
}

type decisionArgs struct {
	SimulationID string `json:"simulation_id"`
	DecisionID   string `json:"decision_id"`
}

// Server wraps a Lab and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger. It must not write to stdout when serving stdio.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("policylab-mcp", strings.TrimSpace(policylab.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	simulationID := mcp.WithString("simulation_id", mcp.Required(), mcp.Description("Simulation id, as returned by list_simulations"))

	s.mcpServer.AddTool(mcp.NewTool("list_simulations",
		mcp.WithDescription("List the economic decision simulations that can be played."),
		mcp.WithOutputSchema[CatalogResponse](),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("start_simulation",
		mcp.WithDescription("Start a simulation, or resume the saved session, and return the current step."),
		simulationID,
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("choose_decision",
		mcp.WithDescription("Take one of the decisions offered by the current step."),
		simulationID,
		mcp.WithString("decision_id", mcp.Required(), mcp.Description("Id of a decision offered by the current step")),
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleChoose))

	s.mcpServer.AddTool(mcp.NewTool("continue_step",
		mcp.WithDescription("Move past a round summary or a step that offers no decisions."),
		simulationID,
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleContinue))

	s.mcpServer.AddTool(mcp.NewTool("reset_simulation",
		mcp.WithDescription("Discard the session and start again from the initial state."),
		simulationID,
		mcp.WithOutputSchema[StepResponse](),
	), mcp.NewStructuredToolHandler(s.handleReset))

	s.mcpServer.AddTool(mcp.NewTool("get_round_summary",
		mcp.WithDescription("Compare the start of the current round with the current state."),
		simulationID,
		mcp.WithOutputSchema[RoundResponse](),
	), mcp.NewStructuredToolHandler(s.handleRoundSummary))

	s.mcpServer.AddTool(mcp.NewTool("get_results",
		mcp.WithDescription("Summarise a completed simulation: metric changes, narrative and reflection questions."),
		simulationID,
		mcp.WithOutputSchema[ResultsResponse](),
	), mcp.NewStructuredToolHandler(s.handleResults))
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest, _ map[string]any) (CatalogResponse, error) {
	return CatalogResponse{Simulations: s.catalog()}, nil
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args simulationArgs) (StepResponse, error) {
	v, err := s.engine.Start(ctx, args.SimulationID)
	return s.step(args.SimulationID, v, err)
}

func (s *Server) handleChoose(ctx context.Context, request mcp.CallToolRequest, args decisionArgs) (StepResponse, error) {
	if args.DecisionID == "" {
		return StepResponse{}, errors.New("decision_id is required")
	}
	v, err := s.engine.Choose(ctx, args.SimulationID, args.DecisionID)
	return s.step(args.SimulationID, v, err)
}

func (s *Server) handleContinue(ctx context.Context, request mcp.CallToolRequest, args simulationArgs) (StepResponse, error) {
	v, err := s.engine.Continue(ctx, args.SimulationID)
	return s.step(args.SimulationID, v, err)
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest, args simulationArgs) (StepResponse, error) {
	v, err := s.engine.Reset(ctx, args.SimulationID)
	return s.step(args.SimulationID, v, err)
}

func (s *Server) handleRoundSummary(ctx context.Context, request mcp.CallToolRequest, args simulationArgs) (RoundResponse, error) {
	r, err := s.engine.RoundSummary(ctx, args.SimulationID)
	if err != nil {
		return RoundResponse{}, err
	}
	return RoundResponse{Round: r, Markdown: tui.RoundMarkdown(r)}, nil
}

func (s *Server) handleResults(ctx context.Context, request mcp.CallToolRequest, args simulationArgs) (ResultsResponse, error) {
	report, err := s.engine.Results(ctx, args.SimulationID)
	if err != nil {
		return ResultsResponse{}, err
	}
	return ResultsResponse{Report: report, Markdown: tui.ResultsMarkdown(report)}, nil
}

func (s *Server) step(simulationID string, v *policylab.View, err error) (StepResponse, error) {
	if err != nil {
		s.logger.Debug("MCP tool rejected", "simulation_id", simulationID, "error", err)
		return StepResponse{}, err
	}
	sim, ok := s.engine.Simulation(v.SimulationID)
	if !ok {
		return StepResponse{}, fmt.Errorf("%s: %w", v.SimulationID, policylab.ErrSimulationNotFound)
	}
	return StepResponse{View: v, Markdown: tui.StepMarkdown(sim, v)}, nil
}

func (s *Server) catalog() []CatalogEntry {
	sims := s.engine.Simulations()
	out := make([]CatalogEntry, 0, len(sims))
	for _, sim := range sims {
		out = append(out, CatalogEntry{
			ID:          sim.ID,
			Title:       sim.Title,
			Description: sim.Description,
			Concepts:    sim.Concepts,
			Steps:       len(sim.Steps),
		})
	}
	return out
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(CatalogURI, "Simulation Catalog",
		mcp.WithResourceDescription("Every simulation that can be started, with its concepts and length."),
		mcp.WithMIMEType("application/json"),
	), s.readCatalog)
}

func (s *Server) readCatalog(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(s.catalog())
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CatalogURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
