package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reglet-dev/permrun/internal/infrastructure/container"
)

// CommandContext provides common command dependencies.
type CommandContext struct {
	Container *container.Container
	Logger    *slog.Logger
	Context   context.Context
}

// CommandHandler is a function that executes with initialized dependencies.
type CommandHandler func(*CommandContext, *cobra.Command, []string) error

// withContainer wraps a command handler with container initialization.
// Flag and PERMRUN_* environment values resolved by viper override the
// config file.
func withContainer(handler CommandHandler) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		logger := slog.Default()

		c, err := container.New(container.Options{
			SystemConfigPath: cfgFile,
			GrantsPath:       grantsFile,
			SecurityLevel:    viper.GetString("security-level"),
			Runner:           viper.GetString("runner"),
			RunnerVersion:    viper.GetString("runner-version"),
			Timeout:          viper.GetDuration("timeout"),
			Parallel:         viper.GetInt("parallel"),
			Logger:           logger,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		ctx := &CommandContext{
			Container: c,
			Logger:    logger,
			Context:   cmd.Context(),
		}

		return handler(ctx, cmd, args)
	}
}
