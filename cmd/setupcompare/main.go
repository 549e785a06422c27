// Package main provides the entry point for the setupcompare CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tfunk1030/setupcompare/cmd/setupcompare/commands"
	"github.com/tfunk1030/setupcompare/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "setupcompare",
		Short: "Compare racing car setups and explain what changed",
		Long: `setupcompare diffs two car setup files, classifies every change by
severity, interprets it with a data-driven rule table and summarizes the
overall handling effect.

Commands:
  compare   Compare two setup files
  rules     Inspect and validate rule tables
  serve     Serve the comparison HTTP API
  mcp       Serve comparison tools over MCP stdio`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewCompareCommand())
	rootCmd.AddCommand(commands.NewRulesCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
