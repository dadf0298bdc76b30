package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/policylab"
	"github.com/aretw0/policylab/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph <simulation-id>",
	Short: "Export the step flow of a simulation",
	Long: `Outputs a Mermaid diagram (graph TD) of the simulation's steps. When a session
exists, visited steps and the current step are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		sim, ok := app.Lab.Simulation(args[0])
		if !ok {
			return fmt.Errorf("%s: %w", args[0], policylab.ErrSimulationNotFound)
		}

		var overlay *graph.Overlay
		if withSession, _ := cmd.Flags().GetBool("session"); withSession {
			v, err := app.Lab.Session(cmd.Context(), sim.ID)
			switch {
			case err == nil:
				overlay = graph.OverlayFromSession(sim, v.Session)
			case !errors.Is(err, policylab.ErrSessionNotFound):
				return err
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(sim, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("session", true, "Highlight the saved session's progress")
}
