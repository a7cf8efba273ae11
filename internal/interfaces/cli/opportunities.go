package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/patentdesk/extraction-engine/pkg/client"
)

// newOpportunitiesCmd lists the synthesis-readiness of every field.
func newOpportunitiesCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "opportunities",
		Short: "List correction counts and synthesis readiness per field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd, opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			opportunities, err := c.Opportunities(ctx)
			if err != nil {
				return err
			}

			if opts.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), opportunities)
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "FIELD\tCORRECTIONS\tREADY\tLAST DEPLOY")
			for _, opp := range opportunities {
				ready := ""
				if opp.Ready {
					ready = "yes"
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
					opp.Field, opp.CorrectionCount, ready, formatTime(opp.LastDeployAt))
			}
			return tw.Flush()
		},
	}
}

// newCorrectCmd records a human correction, mainly for scripted backfills;
// the intake frontend is the usual producer.
func newCorrectCmd(opts *RootOptions) *cobra.Command {
	var (
		documentID string
		value      string
		sourceFile string
	)

	cmd := &cobra.Command{
		Use:   "correct <field>",
		Short: "Record a human correction for a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sourceText string
			if sourceFile != "" {
				text, err := readTextArg(cmd, sourceFile)
				if err != nil {
					return err
				}
				sourceText = text
			}

			c, err := newClient(cmd, opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			rec, err := c.RecordCorrection(ctx, client.RecordCorrectionRequest{
				DocumentID:     documentID,
				Field:          args[0],
				CorrectedValue: value,
				SourceText:     sourceText,
			})
			if err != nil {
				return err
			}

			if opts.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), rec)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "correction %s recorded for field %s\n", rec.ID, rec.Field)
			return nil
		},
	}

	cmd.Flags().StringVar(&documentID, "document", "", "source document ID (required)")
	cmd.Flags().StringVar(&value, "value", "", "corrected value (required)")
	cmd.Flags().StringVar(&sourceFile, "source-text", "", "file with the document text, or - for stdin")
	_ = cmd.MarkFlagRequired("document")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}
