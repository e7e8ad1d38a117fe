package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reglet-dev/permrun/internal/infrastructure/launcher"
)

var (
	cfgFile    string
	grantsFile string
	verbose    bool
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "permrun",
	Short: "Launch programs under an explicit capability grant",
	Long: `permrun launches a target program through a sandboxing runner (deno by
default) with a minimal, normalized set of --allow-* permission flags.

Capabilities come from command-line flags, launch profiles and the baseline in
~/.permrun/config.yaml. Broad grants are reviewed according to the security
level before anything is started.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the launched program's exit
// code when it failed.
func Execute() {
	// Interrupts cancel the context, which kills a running child
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	code, isChildExit := exitCodeFor(err)
	if !isChildExit {
		slog.Error("command failed", "error", err)
	}
	os.Exit(code)
}

// exitCodeFor maps a command error to a process exit code. It reports true
// when the error is only the launched program's own non-zero exit.
func exitCodeFor(err error) (int, bool) {
	var launched *launchFailure
	if errors.As(err, &launched) {
		var exitErr *launcher.ExitError
		return launched.code, errors.As(launched.err, &exitErr)
	}
	return 1, false
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.permrun/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&grantsFile, "grants", "", "approved grants file (default is $HOME/.permrun/grants.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().String("security-level", "", "security level for broad capabilities: strict, standard, permissive")
	rootCmd.PersistentFlags().String("runner", "", "launch runner binary (default is deno)")

	_ = viper.BindPFlag("security-level", rootCmd.PersistentFlags().Lookup("security-level"))
	_ = viper.BindPFlag("runner", rootCmd.PersistentFlags().Lookup("runner"))
}

// initConfig binds PERMRUN_* environment variables. The config file itself is
// loaded by the container.
func initConfig() {
	viper.SetEnvPrefix("PERMRUN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// Using TextHandler for CLI friendliness
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
