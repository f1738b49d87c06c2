// Package main provides the entry point for the retrospect CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/retrospect/cmd/retrospect/commands"
	"github.com/Sumatoshi-tech/retrospect/internal/version"
)

func main() {
	var noColor bool

	rootCmd := commands.NewRootCommand()
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		if noColor {
			color.NoColor = true //nolint:reassign // intentional override of library global
		}
	}

	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed).Sprint("Error:"), err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "retrospect %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
