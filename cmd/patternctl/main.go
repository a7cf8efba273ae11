// patternctl is the operator CLI of the extraction-pattern engine.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/patentdesk/extraction-engine/internal/interfaces/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if errors.Is(err, cli.ErrNoMatch) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
