package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/permrun/internal/application/ports"
)

var (
	planFlags  launchFlags
	planFormat string
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan [flags] [target...]",
	Short: "Show the command a launch would run, without running it",
	Long: `Normalize the requested capabilities and print the runner command line
with a risk assessment for each capability. Nothing is reviewed or started.

Examples:
  permrun plan --allow-env=HOME --allow-env=PATH main.ts
  permrun plan --profile permrun.yaml --format json`,
	RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
		c := ctx.Container
		reqs, err := planFlags.requests(c.ProfileLoader(), overridesFromViper(), c.RuntimeConfig(), c.BaselineEntries(), args)
		if err != nil {
			return err
		}

		formatter, err := c.FormatterFactory().Create(planFormat, cmd.OutOrStdout(), ports.FormatterOptions{
			Indent: true,
			Color:  isTerminal(os.Stdout),
		})
		if err != nil {
			return err
		}

		for _, req := range reqs {
			plan, _, err := c.LaunchService().Plan(req)
			if err != nil {
				return fmt.Errorf("failed to plan %s: %w", req.Target, err)
			}
			if err := formatter.Format(plan); err != nil {
				return fmt.Errorf("failed to format plan: %w", err)
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(planCmd)

	planFlags.register(planCmd)
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "table", "output format: table, json, yaml")
}
