// Package cli implements patternctl, the operator CLI of the pattern engine.
// Every command talks to a running apiserver through the pkg/client SDK; the
// CLI holds no direct database or broker access.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/patentdesk/extraction-engine/pkg/client"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds the global CLI flags.
type RootOptions struct {
	ServerAddr   string
	OutputFormat string
	Timeout      time.Duration
	Verbose      bool
}

// NewRootCommand creates the patternctl root command with all global flags
// and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "patternctl",
		Short:   "patternctl — operate the adaptive extraction-pattern engine",
		Long:    "patternctl manages the extraction-pattern lifecycle of the patent intake\npipeline: inspect correction opportunities, run pattern synthesis, deploy and\nroll back rules, and test extraction against raw document text.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ServerAddr, "server", "s", "http://localhost:8080", "apiserver base URL")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "table", "output format (table, json)")
	pf.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "request timeout")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "log requests to stderr")

	cmd.AddCommand(
		newOpportunitiesCmd(opts),
		newCorrectCmd(opts),
		newSynthesizeCmd(opts),
		newDeployCmd(opts),
		newRollbackCmd(opts),
		newPatternsCmd(opts),
		newExtractCmd(opts),
	)
	return cmd
}

// newClient builds the SDK client from the global flags.
func newClient(cmd *cobra.Command, opts *RootOptions) (*client.Client, error) {
	clientOpts := []client.Option{
		client.WithUserAgent("patternctl/" + Version),
	}
	if opts.Verbose {
		clientOpts = append(clientOpts, client.WithLogger(stderrLogger{w: cmd.ErrOrStderr()}))
	}
	return client.NewClient(opts.ServerAddr, clientOpts...)
}

// stderrLogger writes SDK debug output to the command's stderr.
type stderrLogger struct {
	w io.Writer
}

func (l stderrLogger) Debugf(format string, args ...interface{}) { l.logf(format, args...) }
func (l stderrLogger) Infof(format string, args ...interface{})  { l.logf(format, args...) }
func (l stderrLogger) Errorf(format string, args ...interface{}) { l.logf(format, args...) }

func (l stderrLogger) logf(format string, args ...interface{}) {
	fmt.Fprintf(l.w, format+"\n", args...)
}

// printJSON renders v as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTable returns a tabwriter for aligned table output; callers must Flush.
func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// formatTime renders a timestamp for table output, "-" when zero.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
