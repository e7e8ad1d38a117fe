package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reglet-dev/permrun/internal/application/dto"
	"github.com/reglet-dev/permrun/internal/infrastructure/launcher"
	"github.com/reglet-dev/permrun/internal/infrastructure/output"
)

var runFlags launchFlags

// launchFailure carries the exit code permrun should end with after a launch
// did not succeed.
type launchFailure struct {
	code int
	err  error
}

func (e *launchFailure) Error() string {
	return e.err.Error()
}

func (e *launchFailure) Unwrap() error {
	return e.err
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [flags] [target...]",
	Short: "Launch one or more programs under a capability grant",
	Long: `Launch target programs through the launch runner with the requested
capabilities. Each --allow-<kind> flag may be repeated; without a value it
grants the whole kind.

Examples:
  permrun run --allow-net=api.example.com:443 --allow-env=HOME main.ts
  permrun run --allow-read=./data --allow-hrtime main.ts
  permrun run --profile permrun.yaml
  permrun run --allow-env a.ts b.ts --parallel 2

The exit code of a single launched program becomes permrun's exit code.`,
	RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
		c := ctx.Container
		reqs, err := runFlags.requests(c.ProfileLoader(), overridesFromViper(), c.RuntimeConfig(), c.BaselineEntries(), args)
		if err != nil {
			return err
		}

		if len(reqs) == 1 {
			result, err := c.LaunchService().Launch(ctx.Context, reqs[0])
			return launchOutcome(result, err)
		}

		results, err := c.LaunchService().LaunchAll(ctx.Context, reqs, c.RuntimeConfig().MaxConcurrentLaunches)
		if results != nil {
			summary := output.NewTableFormatter(cmd.ErrOrStderr())
			summary.EnableColor = isTerminal(os.Stderr)
			summary.FormatResults(results)
		}
		return launchOutcome(resultFor(results, err), err)
	}),
}

func init() {
	rootCmd.AddCommand(runCmd)

	runFlags.register(runCmd)
	runCmd.Flags().Duration("timeout", 0, "kill the program after this long (0 to disable)")
	runCmd.Flags().String("runner-version", "", "semver constraint the runner must satisfy, e.g. \">= 1.40\"")
	runCmd.Flags().Int("parallel", 1, "maximum number of programs running at once")

	_ = viper.BindPFlag("timeout", runCmd.Flags().Lookup("timeout"))
	_ = viper.BindPFlag("runner-version", runCmd.Flags().Lookup("runner-version"))
	_ = viper.BindPFlag("parallel", runCmd.Flags().Lookup("parallel"))
}

// launchOutcome converts a launch result into the command's error.
func launchOutcome(result *dto.LaunchResult, err error) error {
	if err == nil {
		return nil
	}
	if result == nil {
		return err
	}

	code := result.ExitCode
	var exitErr *launcher.ExitError
	if !errors.As(err, &exitErr) && code <= 0 {
		code = 1
	}
	return &launchFailure{code: code, err: fmt.Errorf("%s: %w", result.Target, err)}
}

// resultFor returns the result that produced err, if any.
func resultFor(results []*dto.LaunchResult, err error) *dto.LaunchResult {
	if err == nil {
		return nil
	}
	for _, r := range results {
		if r != nil && r.Err == err {
			return r
		}
	}
	return nil
}

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
