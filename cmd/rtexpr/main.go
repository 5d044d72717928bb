// Command rtexpr loads a batch descriptor (YAML or JSON) and drives the
// numeric expression engine against it: evaluate once and print results, or
// run it for N iterations and report allocation telemetry.
package main

import (
	"fmt"
	"os"

	"github.com/rtexpr/rtexpr/cmd/rtexpr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
