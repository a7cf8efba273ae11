package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/patentdesk/extraction-engine/pkg/client"
)

// newSynthesizeCmd runs pattern synthesis for one field and prints the
// validated candidates for review.
func newSynthesizeCmd(opts *RootOptions) *cobra.Command {
	var showEvidence bool

	cmd := &cobra.Command{
		Use:   "synthesize <field>",
		Short: "Synthesize and validate candidate patterns for a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd, opts)
			if err != nil {
				return err
			}

			// Synthesis calls a generative model; give it more room than
			// the default request timeout.
			timeout := opts.Timeout
			if timeout < 2*time.Minute {
				timeout = 2 * time.Minute
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			result, err := c.Synthesize(ctx, args[0])
			if err != nil {
				return err
			}

			if opts.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "field %s: %d candidate(s) validated against %d corrections\n\n",
				result.Field, len(result.Candidates), result.CorpusSize)

			tw := newTable(out)
			fmt.Fprintln(tw, "#\tPASS RATE\tCONFIDENCE\tRECOMMENDATION\tPATTERN")
			for i, cand := range result.Candidates {
				fmt.Fprintf(tw, "%d\t%.0f%%\t%s\t%s\t%s\n",
					i+1, cand.PassRate*100, cand.Confidence, cand.Recommendation, cand.Pattern)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if showEvidence {
				for i, cand := range result.Candidates {
					fmt.Fprintf(out, "\ncandidate %d evidence:\n", i+1)
					printEvidence(out, cand)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showEvidence, "evidence", false, "print per-correction test results")
	return cmd
}

func printEvidence(out io.Writer, cand client.PatternCandidate) {
	tw := newTable(out)
	fmt.Fprintln(tw, "  CORRECTION\tMATCHED\tEXTRACTED\tEXPECTED")
	for _, tr := range cand.TestResults {
		extracted := "-"
		if tr.ExtractedValue != nil {
			extracted = *tr.ExtractedValue
		}
		matched := "no"
		if tr.Matched {
			matched = "yes"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", tr.CorrectionID, matched, extracted, tr.CorrectedValue)
	}
	_ = tw.Flush()
}
