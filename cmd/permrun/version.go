package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reglet-dev/permrun/internal/infrastructure/launcher"
	"github.com/reglet-dev/permrun/internal/version"
)

var probeRunner bool

// versionCmd implements the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of permrun",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "permrun version %s\n", version.Get().Full())
		if !probeRunner {
			return nil
		}
		return withContainer(printRunnerVersion)(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&probeRunner, "probe-runner", false, "also print the launch runner's version")
}

// printRunnerVersion probes the runner resolved from flags, environment and
// the config file.
func printRunnerVersion(ctx *CommandContext, cmd *cobra.Command, _ []string) error {
	runner := ctx.Container.RuntimeConfig().Runner
	v, err := launcher.ProbeVersion(ctx.Context, runner)
	if err != nil {
		return fmt.Errorf("failed to probe %s: %w", runner, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", runner, v)
	return nil
}
