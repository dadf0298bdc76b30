package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/policylab/internal/cli"
	"github.com/aretw0/policylab/internal/config"
	"github.com/aretw0/policylab/internal/presentation/tui"
)

var rootCmd = &cobra.Command{
	Use:   "policylab",
	Short: "PolicyLab is an economic decision simulation lab",
	Long: `PolicyLab lets you step through economic scenarios, make policy and business decisions,
and watch how metrics respond. Sessions are saved after every move.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML config file")
	flags.String("store", "", "Session store backend: memory, file, redis or sqlite")
	flags.String("dir", "", "Directory for file sessions")
	flags.String("catalog", "", "Directory with extra simulation YAML files")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.Bool("plain", false, "Print markdown without terminal styling")
}

// loadConfig reads the config file and environment, then applies the flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("store") {
		cfg.Store.Backend, _ = cmd.Flags().GetString("store")
	}
	if cmd.Flags().Changed("dir") {
		cfg.Store.Dir, _ = cmd.Flags().GetString("dir")
	}
	if cmd.Flags().Changed("catalog") {
		cfg.CatalogDir, _ = cmd.Flags().GetString("catalog")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	return cfg, cfg.Validate()
}

// newApp builds the Lab for a command. The caller must Close it.
func newApp(cmd *cobra.Command) (*cli.App, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger := cli.NewLogger(cfg.LogLevel, cfg.LogFormat)
	app, err := cli.NewApp(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return app, cfg, nil
}

// renderer picks glamour for terminals and plain markdown otherwise.
func renderer(cmd *cobra.Command) tui.Render {
	plain, _ := cmd.Flags().GetBool("plain")
	if plain || !cli.IsTerminal(cmd.OutOrStdout()) {
		return tui.Plain
	}
	return tui.NewRenderer()
}

func printMarkdown(cmd *cobra.Command, markdown string) {
	out, err := renderer(cmd)(markdown)
	if err != nil {
		out = markdown
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
}
