package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/policylab"
	"github.com/aretw0/policylab/internal/logging"
	"github.com/aretw0/policylab/internal/presentation/graph"
	"github.com/aretw0/policylab/pkg/domain"
)

// Engine is the part of policylab.Lab served over HTTP.
type Engine interface {
	Simulation(id string) (*domain.Simulation, bool)
	Simulations() []*domain.Simulation
	Session(ctx context.Context, simulationID string) (*policylab.View, error)
	Start(ctx context.Context, simulationID string) (*policylab.View, error)
	Choose(ctx context.Context, simulationID, decisionID string) (*policylab.View, error)
	Continue(ctx context.Context, simulationID string) (*policylab.View, error)
	Reset(ctx context.Context, simulationID string) (*policylab.View, error)
	Results(ctx context.Context, simulationID string) (*policylab.Report, error)
	RoundSummary(ctx context.Context, simulationID string) (*policylab.RoundReport, error)
}

var _ Engine = (*policylab.Lab)(nil)

// Server exposes an Engine as a JSON API.
type Server struct {
	Engine  Engine
	Streams *StreamManager

	logger  *slog.Logger
	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// SimulationSummary is the catalog entry returned by GET /simulations.
type SimulationSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags,omitempty"`
	TimeEstimate string   `json:"timeEstimate,omitempty"`
	Steps        int      `json:"steps"`
}

// DecisionRequest is the body of POST /simulations/{id}/decisions.
type DecisionRequest struct {
	DecisionID string `json:"decisionId"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	s.Streams.logger = s.logger

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/simulations", func(r chi.Router) {
		r.Get("/", s.ListSimulations)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSimulation)
			r.Get("/session", s.GetSession)
			r.Post("/session", s.StartSession)
			r.Post("/decisions", s.Choose)
			r.Post("/continue", s.Continue)
			r.Post("/reset", s.Reset)
			r.Get("/round", s.GetRoundSummary)
			r.Get("/results", s.GetResults)
			r.Get("/graph", s.GetGraph)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":         "policylab-http",
		"version":     strings.TrimSpace(policylab.Version),
		"simulations": len(s.Engine.Simulations()),
	})
}

// ListSimulations handles GET /simulations.
func (s *Server) ListSimulations(w http.ResponseWriter, r *http.Request) {
	sims := s.Engine.Simulations()
	out := make([]SimulationSummary, 0, len(sims))
	for _, sim := range sims {
		out = append(out, SimulationSummary{
			ID:           sim.ID,
			Title:        sim.Title,
			Description:  sim.Description,
			Tags:         sim.Tags,
			TimeEstimate: sim.TimeEstimate,
			Steps:        len(sim.Steps),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GetSimulation handles GET /simulations/{id}.
func (s *Server) GetSimulation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sim, ok := s.Engine.Simulation(id)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%s: %w", id, policylab.ErrSimulationNotFound))
		return
	}
	s.writeJSON(w, http.StatusOK, sim)
}

// GetSession handles GET /simulations/{id}/session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	v, err := s.Engine.Session(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, v, err, false)
}

// StartSession handles POST /simulations/{id}/session.
func (s *Server) StartSession(w http.ResponseWriter, r *http.Request) {
	v, err := s.Engine.Start(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, v, err, true)
}

// Choose handles POST /simulations/{id}/decisions.
func (s *Server) Choose(w http.ResponseWriter, r *http.Request) {
	var body DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DecisionID == "" {
		s.logger.Warn("Choose: invalid request body", "error", err)
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: decisionId is required"})
		return
	}
	v, err := s.Engine.Choose(r.Context(), chi.URLParam(r, "id"), body.DecisionID)
	s.respond(w, r, v, err, true)
}

// Continue handles POST /simulations/{id}/continue.
func (s *Server) Continue(w http.ResponseWriter, r *http.Request) {
	v, err := s.Engine.Continue(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, v, err, true)
}

// Reset handles POST /simulations/{id}/reset.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	v, err := s.Engine.Reset(r.Context(), chi.URLParam(r, "id"))
	s.respond(w, r, v, err, true)
}

// GetRoundSummary handles GET /simulations/{id}/round.
func (s *Server) GetRoundSummary(w http.ResponseWriter, r *http.Request) {
	report, err := s.Engine.RoundSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// GetResults handles GET /simulations/{id}/results.
func (s *Server) GetResults(w http.ResponseWriter, r *http.Request) {
	report, err := s.Engine.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// GetGraph handles GET /simulations/{id}/graph, returning Mermaid source.
// The session position is overlaid when one exists.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sim, ok := s.Engine.Simulation(id)
	if !ok {
		s.writeError(w, r, fmt.Errorf("%s: %w", id, policylab.ErrSimulationNotFound))
		return
	}

	var overlay *graph.Overlay
	v, err := s.Engine.Session(r.Context(), id)
	switch {
	case err == nil:
		overlay = graph.OverlayFromSession(sim, v.Session)
	case !errors.Is(err, policylab.ErrSessionNotFound):
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(sim, overlay)))
}

// respond writes a view, broadcasting it to event subscribers when it came from a move.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, v *policylab.View, err error, broadcast bool) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if broadcast {
		if data, err := json.Marshal(v); err == nil {
			s.Streams.Broadcast(v.SimulationID, string(data))
		}
	}
	s.writeJSON(w, http.StatusOK, v)
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, policylab.ErrSimulationNotFound),
		errors.Is(err, policylab.ErrSessionNotFound),
		errors.Is(err, policylab.ErrDecisionNotFound):
		return http.StatusNotFound
	case errors.Is(err, policylab.ErrCompleted),
		errors.Is(err, policylab.ErrNotCompleted),
		errors.Is(err, policylab.ErrStepOutOfOrder),
		errors.Is(err, policylab.ErrDecisionRequired),
		errors.Is(err, policylab.ErrContinueRequired):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}
