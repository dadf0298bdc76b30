package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/policylab"
	"github.com/aretw0/policylab/pkg/domain"
)

// CatalogMarkdown lists the simulations with their metadata.
func CatalogMarkdown(sims []*domain.Simulation) string {
	var sb strings.Builder
	sb.WriteString("# Simulations\n\n")
	for _, sim := range sims {
		fmt.Fprintf(&sb, "## %s\n\n", sim.Title)
		fmt.Fprintf(&sb, "`%s`", sim.ID)
		if sim.TimeEstimate != "" {
			fmt.Fprintf(&sb, " · %s", sim.TimeEstimate)
		}
		fmt.Fprintf(&sb, " · %d steps\n\n", len(sim.Steps))
		if sim.Description != "" {
			sb.WriteString(sim.Description + "\n\n")
		}
		if len(sim.Tags) > 0 {
			fmt.Fprintf(&sb, "*%s*\n\n", strings.Join(sim.Tags, ", "))
		}
	}
	return sb.String()
}

// SimulationMarkdown describes one simulation before it is played.
func SimulationMarkdown(sim *domain.Simulation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", sim.Title)
	if sim.Description != "" {
		sb.WriteString(sim.Description + "\n\n")
	}
	if sim.Context != "" {
		sb.WriteString("> " + strings.ReplaceAll(strings.TrimSpace(sim.Context), "\n", "\n> ") + "\n\n")
	}
	sb.WriteString("## Starting point\n\n")
	sb.WriteString(stateTable(sim, sim.InitialState))
	if len(sim.Concepts) > 0 {
		fmt.Fprintf(&sb, "\n**Concepts:** %s\n", strings.Join(sim.Concepts, ", "))
	}
	return sb.String()
}

// StepMarkdown renders the step a view is waiting on, including the shock that
// came with it and the outcome of the decision that led there.
func StepMarkdown(sim *domain.Simulation, v *policylab.View) string {
	var sb strings.Builder

	if v.Outcome != nil {
		sb.WriteString(OutcomeMarkdown(sim, v.Outcome))
		sb.WriteString("\n---\n\n")
	}
	if v.Step == nil {
		sb.WriteString("**Simulation complete.** Ask for the results to see how it went.\n")
		return sb.String()
	}

	step := v.Step
	header := fmt.Sprintf("Step %d of %d", v.Session.CurrentStep+1, v.TotalSteps)
	if r := step.RoundNumber(); r > 0 {
		header = fmt.Sprintf("Round %d · %s", r, header)
	}
	fmt.Fprintf(&sb, "### %s (%.0f%%)\n\n", header, v.Progress)
	sb.WriteString(strings.TrimSpace(step.Event) + "\n\n")

	if len(v.Shock) > 0 {
		sb.WriteString("**Market shock:** " + DeltaLine(sim, v.Shock) + "\n\n")
	}

	sb.WriteString(stateTable(sim, v.Session.State))
	sb.WriteString("\n")

	switch {
	case step.IsSummary():
		sb.WriteString("*End of round. Continue when ready.*\n")
	case len(step.Decisions) == 0:
		sb.WriteString("*Continue when ready.*\n")
	default:
		for i, d := range step.Decisions {
			fmt.Fprintf(&sb, "%d. **%s** `%s`\n", i+1, d.Text, d.ID)
		}
	}
	return sb.String()
}

// OutcomeMarkdown renders the effect of the decision just taken.
func OutcomeMarkdown(sim *domain.Simulation, o *policylab.Outcome) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You chose **%s**.\n\n", o.Decision.Text)
	if len(o.Delta) > 0 {
		sb.WriteString(DeltaLine(sim, o.Delta) + "\n\n")
	}
	if o.Decision.Feedback != "" {
		sb.WriteString("> " + strings.TrimSpace(o.Decision.Feedback) + "\n\n")
	}
	if step, _, ok := sim.StepByID(o.StepID); ok && step.AIExplanation != "" {
		sb.WriteString("**Why:** " + strings.TrimSpace(step.AIExplanation) + "\n")
	}
	return sb.String()
}

// RoundMarkdown renders a round summary.
func RoundMarkdown(r *policylab.RoundReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Round %d summary\n\n", r.Round)
	sig := r.Significant()
	if len(sig) == 0 {
		sb.WriteString("No significant changes this round.\n")
		return sb.String()
	}
	sb.WriteString(changesTable(sig))
	return sb.String()
}

// ResultsMarkdown renders the results page of a completed session.
func ResultsMarkdown(r *policylab.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Results: %s\n\n", r.Title)
	sb.WriteString(r.Narrative + "\n\n")
	sb.WriteString(changesTable(r.Changes))

	if len(r.DecisionHistory) > 0 {
		sb.WriteString("\n## Your decisions\n\n")
		for i, rec := range r.DecisionHistory {
			fmt.Fprintf(&sb, "%d. `%s` %s\n", i+1, rec.StepID, rec.DecisionText)
		}
	}
	if len(r.Concepts) > 0 {
		sb.WriteString("\n## Concepts\n\n")
		for _, c := range r.Concepts {
			fmt.Fprintf(&sb, "- **%s**: %s\n", c.Name, c.Description)
		}
	}
	if len(r.ReflectionQuestions) > 0 {
		sb.WriteString("\n## Reflect\n\n")
		for _, q := range r.ReflectionQuestions {
			fmt.Fprintf(&sb, "- %s\n", q)
		}
	}
	return sb.String()
}

// DeltaLine renders deltas in the metric declaration order, e.g. "Profit +$50.00, Demand -12".
// Keys the simulation does not declare follow in lexical order.
func DeltaLine(sim *domain.Simulation, delta domain.State) string {
	var parts []string
	seen := make(map[string]bool, len(delta))
	for _, m := range sim.Metrics {
		d, ok := delta[m.Key]
		if !ok {
			continue
		}
		seen[m.Key] = true
		parts = append(parts, m.Label+" "+domain.FormatDelta(d, m))
	}
	for _, k := range delta.Keys() {
		if seen[k] {
			continue
		}
		parts = append(parts, k+" "+domain.FormatDelta(delta[k], domain.MetricDefinition{Key: k}))
	}
	return strings.Join(parts, ", ")
}

func stateTable(sim *domain.Simulation, state domain.State) string {
	var sb strings.Builder
	sb.WriteString("| Metric | Value |\n|---|---|\n")
	for _, m := range sim.Metrics {
		value := domain.FormatMetricValue(state.Get(m.Key), m)
		if m.Format == domain.FormatIndex {
			value += " (" + domain.IndexLabel(state.Get(m.Key)) + ")"
		}
		fmt.Fprintf(&sb, "| %s | %s |\n", m.Label, value)
	}
	return sb.String()
}

func changesTable(changes []domain.MetricChange) string {
	var sb strings.Builder
	sb.WriteString("| Metric | Start | Now | Change |\n|---|---|---|---|\n")
	for _, c := range changes {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
			c.Metric.Label,
			domain.FormatMetricValue(c.Initial, c.Metric),
			domain.FormatMetricValue(c.Final, c.Metric),
			domain.FormatDelta(c.Change, c.Metric),
		)
	}
	return sb.String()
}
