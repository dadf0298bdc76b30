package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/policylab"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of policylab",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "policylab version %s\n", strings.TrimSpace(policylab.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
