package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version is set by build flags.
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "rtexpr",
	Short: "Drive the rtexpr numeric expression engine from a batch descriptor",
	Long: `rtexpr loads a batch descriptor (a set of named variables, an ordered
list of expressions, and any expression-defined functions they call) and
runs it through the engine's Batch facade.

Examples:
  # Evaluate a batch once and print its results
  rtexpr run batch.yaml

  # Run 1000 evaluation passes after a warm-up call and report telemetry
  rtexpr bench batch.yaml --iterations 1000`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))
}
