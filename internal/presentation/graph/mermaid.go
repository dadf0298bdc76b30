package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/policylab/pkg/domain"
)

// endNodeID is the terminal node every flow leads to.
const endNodeID = "results"

// Overlay contains session state to visualize on the graph.
type Overlay struct {
	VisitedSteps []string
	CurrentStep  string
}

// OverlayFromSession marks every step before the session's position as visited and the
// step it is on as current. A completed session highlights the results node.
func OverlayFromSession(sim *domain.Simulation, s *domain.Session) *Overlay {
	o := &Overlay{}
	for i, step := range sim.Steps {
		if i >= s.CurrentStep {
			break
		}
		o.VisitedSteps = append(o.VisitedSteps, step.ID)
	}
	if step, ok := sim.Step(s.CurrentStep); ok {
		o.CurrentStep = step.ID
	} else {
		o.CurrentStep = endNodeID
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the simulation's step sequence.
// Shapes follow the step kind:
// - Round summary: ((Circle))
// - External shock: {{Hexagon}}
// - Decision: [/Parallelogram/]
// - Informational: [Rectangle]
// Edges carry the number of decisions offered by the source step.
func GenerateMermaid(sim *domain.Simulation, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	round := -1
	for i, step := range sim.Steps {
		if r := step.RoundNumber(); r != round && r > 0 {
			fmt.Fprintf(&sb, "    %%%% Round %d\n", r)
			round = r
		}

		safeID := sanitizeMermaidID(step.ID)
		opener, closer := "[", "]"
		switch {
		case step.IsSummary():
			opener, closer = "((", "))"
		case step.HasExternalEffects():
			opener, closer = "{{", "}}"
		case len(step.Decisions) > 0:
			opener, closer = "[/", "/]"
		}

		label := step.ID
		if step.HasExternalEffects() {
			label += " <br/> ⚡ " + shockLabel(step.ExternalEffects)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(label), closer)

		next := endNodeID
		if i+1 < len(sim.Steps) {
			next = sanitizeMermaidID(sim.Steps[i+1].ID)
		}
		switch n := len(step.Decisions); {
		case step.IsSummary() || n == 0:
			fmt.Fprintf(&sb, "    %s --> %s\n", safeID, next)
		case n == 1:
			fmt.Fprintf(&sb, "    %s -- \"1 choice\" --> %s\n", safeID, next)
		default:
			fmt.Fprintf(&sb, "    %s -- \"%d choices\" --> %s\n", safeID, n, next)
		}
	}
	fmt.Fprintf(&sb, "    %s([\"Results\"])\n", endNodeID)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps the overlay readable on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedSteps {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentStep != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentStep))
		}
	}

	return sb.String()
}

func shockLabel(effects domain.Effects) string {
	keys := domain.State(effects).Keys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %+g", k, effects[k]))
	}
	return strings.Join(parts, ", ")
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
