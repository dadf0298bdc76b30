package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/policylab"
	"github.com/aretw0/policylab/internal/presentation/tui"
	"github.com/aretw0/policylab/pkg/catalog"
	"github.com/aretw0/policylab/pkg/domain"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the available simulations",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		printMarkdown(cmd, tui.CatalogMarkdown(app.Lab.Simulations()))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <simulation-id>",
	Short: "Describe a simulation and its starting point",
	Args:  cobra.ExactArgs(1),
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
		printMarkdown(cmd, tui.SimulationMarkdown(sim))
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check simulation YAML files for authoring mistakes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := false
		for _, path := range args {
			if err := validateFile(path); err != nil {
				failed = true
				fmt.Fprintf(cmd.OutOrStdout(), "%s: invalid\n", path)
				errs := domain.ValidationErrors(err)
				if errs == nil {
					errs = []error{err}
				}
				for _, e := range errs {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %v\n", e)
				}
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		}
		if failed {
			return errors.New("validation failed")
		}
		return nil
	},
}

func validateFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sim, err := catalog.Parse(data)
	if err != nil {
		return err
	}
	sim.Normalize()
	return sim.Validate()
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(validateCmd)
}
