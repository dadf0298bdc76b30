package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/policylab"
	"github.com/aretw0/policylab/internal/cli"
	"github.com/aretw0/policylab/internal/presentation/tui"
)

var playCmd = &cobra.Command{
	Use:   "play <simulation-id>",
	Short: "Play a simulation interactively",
	Long: `Plays a simulation in the terminal. Progress is saved after every move, so running
play again resumes where you left off. Use --fresh to start over.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, _, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		fresh, _ := cmd.Flags().GetBool("fresh")
		quiet, _ := cmd.Flags().GetBool("quiet")
		render := renderer(cmd)

		if !quiet && cli.IsTerminal(cmd.OutOrStdout()) {
			tui.PrintBanner(cmd.OutOrStdout(), policylab.Version)
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.Play(sigCtx, app.Lab, args[0], cli.PlayOptions{
			In:     cmd.InOrStdin(),
			Out:    cmd.OutOrStdout(),
			Render: render,
			Fresh:  fresh,
			Quiet:  quiet,
		})
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().Bool("fresh", false, "Discard the saved session and start over")
	playCmd.Flags().BoolP("quiet", "q", false, "Suppress the banner and system messages")
}
