package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patentdesk/extraction-engine/pkg/client"
)

// newDeployCmd activates a new extraction rule.
func newDeployCmd(opts *RootOptions) *cobra.Command {
	var (
		pattern     string
		description string
		priority    int
		sources     []string
	)

	cmd := &cobra.Command{
		Use:   "deploy <field>",
		Short: "Deploy a pattern as a new active rule for a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd, opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			deployed, err := c.Deploy(ctx, client.DeployRequest{
				Field:               args[0],
				Pattern:             pattern,
				Description:         description,
				Priority:            priority,
				SourceCorrectionIDs: sources,
			})
			if err != nil {
				return err
			}

			if opts.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), deployed)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pattern %s deployed for field %s at priority %d\n",
				deployed.ID, deployed.Field, deployed.Priority)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "regular expression to deploy (required)")
	cmd.Flags().StringVar(&description, "description", "", "human-readable rule description")
	cmd.Flags().IntVar(&priority, "priority", 0, "match priority, lower tried first (default from server)")
	cmd.Flags().StringSliceVar(&sources, "source-corrections", nil, "correction IDs that justified this rule")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}

// newRollbackCmd reverts the field's most recent deploy.
func newRollbackCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <field>",
		Short: "Deactivate the field's most recent rule, reactivating the prior one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd, opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			result, err := c.Rollback(ctx, args[0])
			if err != nil {
				return err
			}

			if opts.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "deactivated %s\n", result.Deactivated.ID)
			if result.Reactivated != nil {
				fmt.Fprintf(out, "reactivated %s\n", result.Reactivated.ID)
			} else {
				fmt.Fprintln(out, "no prior rule to reactivate")
			}
			return nil
		},
	}
}

// newPatternsCmd prints the field's deploy history.
func newPatternsCmd(opts *RootOptions) *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "patterns <field>",
		Short: "Show the field's deploy history, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd, opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			history, err := c.History(ctx, args[0])
			if err != nil {
				return err
			}

			if activeOnly {
				filtered := history[:0]
				for _, row := range history {
					if row.IsActive {
						filtered = append(filtered, row)
					}
				}
				history = filtered
			}

			if opts.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), history)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ID\tPRIORITY\tACTIVE\tCREATED\tDEACTIVATED\tPATTERN")
			for _, row := range history {
				active := ""
				if row.IsActive {
					active = "yes"
				}
				deactivated := "-"
				if row.DeactivatedAt != nil {
					deactivated = formatTime(*row.DeactivatedAt)
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
					row.ID, row.Priority, active, formatTime(row.CreatedAt), deactivated, row.Pattern)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "show only active rules")
	return cmd
}
