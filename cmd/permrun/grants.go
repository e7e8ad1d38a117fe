package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// grantsCmd groups the commands that manage persisted approvals.
var grantsCmd = &cobra.Command{
	Use:   "grants",
	Short: "Manage capabilities approved with \"Always allow\"",
}

func init() {
	rootCmd.AddCommand(grantsCmd)
	grantsCmd.AddCommand(newGrantsListCmd())
	grantsCmd.AddCommand(newGrantsRevokeCmd())
}

func newGrantsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List approved capabilities",
		Example: `  permrun grants list`,
		Args:    cobra.NoArgs,
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, _ []string) error {
			store := ctx.Container.GrantStore()
			approved, err := store.Load()
			if err != nil {
				return fmt.Errorf("failed to load grants: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(approved) == 0 {
				fmt.Fprintf(out, "No approved capabilities in %s.\n", store.ConfigPath())
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			if _, err := fmt.Fprintln(w, "FLAG\tRISK\tDESCRIPTION"); err != nil {
				return fmt.Errorf("failed to write header: %w", err)
			}
			for _, d := range approved {
				if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", d.Flag(), d.RiskLevel(), d.RiskDescription()); err != nil {
					return fmt.Errorf("failed to write grant: %w", err)
				}
			}
			return w.Flush()
		}),
	}
}

func newGrantsRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "revoke <flag>",
		Short:   "Remove an approved capability",
		Example: `  permrun grants revoke -- --allow-run=bash`,
		Args:    cobra.ExactArgs(1),
		RunE: withContainer(func(ctx *CommandContext, cmd *cobra.Command, args []string) error {
			revoked, err := ctx.Container.GrantStore().Revoke(args[0])
			if err != nil {
				return fmt.Errorf("failed to revoke grant: %w", err)
			}
			if !revoked {
				return fmt.Errorf("no approved capability matches %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Revoked %s\n", args[0])
			return nil
		}),
	}
}
