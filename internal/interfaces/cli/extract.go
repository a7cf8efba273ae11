package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	pkgerrors "github.com/patentdesk/extraction-engine/pkg/errors"
)

// newExtractCmd runs a field's rule chain against document text.
func newExtractCmd(opts *RootOptions) *cobra.Command {
	var inputFile string

	cmd := &cobra.Command{
		Use:   "extract <field>",
		Short: "Extract a field value from document text",
		Long: `Extract runs the field's deployed rules, then its baseline pattern,
against the given document text and prints the first match.

Exits with status 2 when nothing matched, so scripts can distinguish
"no match" from a transport or server failure.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTextArg(cmd, inputFile)
			if err != nil {
				return err
			}
			if text == "" {
				return pkgerrors.Validation("document text is empty")
			}

			c, err := newClient(cmd, opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
			defer cancel()

			match, err := c.Extract(ctx, args[0], text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if match == nil {
				if opts.OutputFormat == "json" {
					fmt.Fprintln(out, "null")
				} else {
					fmt.Fprintln(cmd.ErrOrStderr(), "no match")
				}
				return ErrNoMatch
			}

			if opts.OutputFormat == "json" {
				return printJSON(out, match)
			}
			fmt.Fprintln(out, match.Value)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "file", "f", "-", `document text file, or "-" for stdin`)
	return cmd
}

// ErrNoMatch signals a clean run where no rule matched.  main maps it to a
// distinct exit status so pipelines can tell "no match" from a failure.
var ErrNoMatch = errors.New("no match")

// readTextArg reads a text argument from a file path, or from the
// command's stdin when the path is "-" or empty.
func readTextArg(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
