package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/tfunk1030/setupcompare/pkg/rules"
)

// NewRulesCommand creates the rules command group.
func NewRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate interpretation rule tables",
	}

	cmd.AddCommand(newRulesValidateCommand())
	cmd.AddCommand(newRulesListCommand())
	cmd.AddCommand(newRulesDefaultCommand())

	return cmd
}

func newRulesValidateCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a rule table against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read rule table: %w", err)
			}

			ok := color.New(color.FgGreen, color.Bold)
			bad := color.New(color.FgRed, color.Bold)

			if noColor {
				ok.DisableColor()
				bad.DisableColor()
			}

			table, err := rules.ParseTable(data)
			if err != nil {
				var verr *rules.ValidationError
				if errors.As(err, &verr) {
					for _, issue := range verr.Issues {
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", bad.Sprint("✗"), issue)
					}
				}

				return fmt.Errorf("%s: %w", args[0], err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d rules, %d profile groups\n",
				ok.Sprint("✓"), args[0], len(table.Rules), len(table.Profiles))

			return nil
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func newRulesListCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the active rule table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := activeTable(path)
			if err != nil {
				return err
			}

			tbl := table.NewWriter()
			tbl.SetOutputMirror(cmd.OutOrStdout())
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"ID", "Keys", "Threshold", "Short"})

			for _, r := range t.Rules {
				tbl.AppendRow(table.Row{r.ID, strings.Join(r.KeyIncludes, " + "), strconv.FormatFloat(r.Threshold, 'f', -1, 64), r.Short})
			}

			tbl.AppendFooter(table.Row{fmt.Sprintf("%d rules", len(t.Rules)), "", "", fmt.Sprintf("%d profile groups", len(t.Profiles))})
			tbl.Render()

			return nil
		},
	}

	cmd.Flags().StringVar(&path, "rules", "", "Rule table file (default: built-in table)")

	return cmd
}

func newRulesDefaultCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "default",
		Short: "Print the built-in rule table as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := cmd.OutOrStdout().Write(rules.DefaultTableYAML())
			if err != nil {
				return fmt.Errorf("write rule table: %w", err)
			}

			return nil
		},
	}
}

func activeTable(path string) (rules.Table, error) {
	if path == "" {
		return rules.DefaultTable()
	}

	return rules.LoadTable(path)
}
