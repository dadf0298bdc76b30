package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/policylab"
	"github.com/aretw0/policylab/internal/presentation/tui"
	"github.com/aretw0/policylab/pkg/domain"
)

const helpText = `Commands:
  <number> or <decision id>  take a decision
  <enter>, c, continue       move past a summary or briefing
  s, summary                 show how the current round is going
  reset                      start over from the initial state
  q, quit                    save and leave
`

// PlayOptions configures an interactive session.
type PlayOptions struct {
	In     io.Reader
	Out    io.Writer
	Render tui.Render

	// Fresh discards any saved session before starting.
	Fresh bool
	Quiet bool
}

// Play runs the simulation interactively until it completes, the user quits,
// the input ends or ctx is cancelled. Progress is saved after every move.
func Play(ctx context.Context, lab *policylab.Lab, simulationID string, opts PlayOptions) error {
	sim, ok := lab.Simulation(simulationID)
	if !ok {
		return fmt.Errorf("%s: %w", simulationID, policylab.ErrSimulationNotFound)
	}
	if opts.Render == nil {
		opts.Render = tui.Plain
	}
	p := &player{lab: lab, sim: sim, opts: opts, in: newLineReader(opts.In)}

	var (
		v   *policylab.View
		err error
	)
	if opts.Fresh {
		v, err = lab.Reset(ctx, sim.ID)
	} else {
		v, err = lab.Start(ctx, sim.ID)
	}
	if err != nil {
		return err
	}

	if v.Session.CurrentStep == 0 && len(v.Session.DecisionHistory) == 0 {
		p.show(tui.SimulationMarkdown(sim))
	} else if !opts.Quiet {
		printSystemMessage(opts.Out, "Resuming %s at step %d of %d.", sim.ID, v.Session.CurrentStep+1, v.TotalSteps)
	}

	for {
		if v.Completed {
			return p.finish(ctx)
		}
		p.show(tui.StepMarkdown(sim, v))
		if v.Step.IsSummary() {
			if err := p.roundSummary(ctx); err != nil {
				return err
			}
		}

		next, err := p.prompt(ctx, v)
		if err != nil {
			if isInterrupted(err) {
				if !opts.Quiet {
					fmt.Fprintln(opts.Out)
					printSystemMessage(opts.Out, "Progress saved at '%s'.", v.Step.ID)
				}
				return nil
			}
			return err
		}
		if next == nil {
			if !opts.Quiet {
				printSystemMessage(opts.Out, "Progress saved at '%s'.", v.Step.ID)
			}
			return nil
		}
		v = next
	}
}

type player struct {
	lab  *policylab.Lab
	sim  *domain.Simulation
	opts PlayOptions
	in   *lineReader
}

func (p *player) show(markdown string) {
	out, err := p.opts.Render(markdown)
	if err != nil {
		out = markdown
	}
	fmt.Fprintln(p.opts.Out, strings.TrimSpace(out))
	fmt.Fprintln(p.opts.Out)
}

// prompt reads commands until one produces a new view. A nil view means the user quit.
func (p *player) prompt(ctx context.Context, v *policylab.View) (*policylab.View, error) {
	for {
		fmt.Fprint(p.opts.Out, "> ")
		line, err := p.in.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, ErrInputTooLarge) || errors.Is(err, ErrInvalidUTF8) {
				fmt.Fprintf(p.opts.Out, "Error: %v. Please try again.\n", err)
				continue
			}
			return nil, err
		}

		next, err := p.dispatch(ctx, v, line)
		switch {
		case errors.Is(err, errQuit):
			return nil, nil
		case errors.Is(err, errHandled):
			continue
		case errors.Is(err, policylab.ErrDecisionNotFound),
			errors.Is(err, policylab.ErrDecisionRequired),
			errors.Is(err, policylab.ErrContinueRequired):
			fmt.Fprintf(p.opts.Out, "%s. Type ? for help.\n", hint(err))
			continue
		case err != nil:
			return nil, err
		}
		return next, nil
	}
}

var (
	errQuit    = errors.New("quit")
	errHandled = errors.New("handled")
)

func (p *player) dispatch(ctx context.Context, v *policylab.View, line string) (*policylab.View, error) {
	switch strings.ToLower(line) {
	case "q", "quit", "exit":
		return nil, errQuit
	case "?", "h", "help":
		fmt.Fprint(p.opts.Out, helpText)
		return nil, errHandled
	case "s", "summary":
		if err := p.roundSummary(ctx); err != nil {
			return nil, err
		}
		return nil, errHandled
	case "reset":
		return p.lab.Reset(ctx, p.sim.ID)
	case "", "c", "continue":
		return p.lab.Continue(ctx, p.sim.ID)
	}

	// Summary steps only offer a way forward, whatever it is labelled.
	if v.Step.IsSummary() {
		return p.lab.Continue(ctx, p.sim.ID)
	}

	return p.lab.Choose(ctx, p.sim.ID, decisionFor(v.Step, line))
}

// decisionFor resolves a 1-based number or a decision id. An exact id wins over a
// case-insensitive one.
func decisionFor(step *domain.DecisionStep, line string) string {
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(step.Decisions) {
		return step.Decisions[n-1].ID
	}
	if _, ok := step.Decision(line); ok {
		return line
	}
	for _, d := range step.Decisions {
		if strings.EqualFold(d.ID, line) {
			return d.ID
		}
	}
	return line
}

func (p *player) roundSummary(ctx context.Context) error {
	r, err := p.lab.RoundSummary(ctx, p.sim.ID)
	if err != nil {
		return err
	}
	p.show(tui.RoundMarkdown(r))
	return nil
}

func (p *player) finish(ctx context.Context) error {
	report, err := p.lab.Results(ctx, p.sim.ID)
	if err != nil {
		return err
	}
	p.show(tui.ResultsMarkdown(report))
	if !p.opts.Quiet {
		printSystemMessage(p.opts.Out, "Finished %s. Run with --fresh to play again.", p.sim.ID)
	}
	return nil
}

func hint(err error) string {
	switch {
	case errors.Is(err, policylab.ErrDecisionRequired):
		return "This step needs a decision"
	case errors.Is(err, policylab.ErrContinueRequired):
		return "End of round: press enter to continue"
	default:
		return "Unknown decision"
	}
}
