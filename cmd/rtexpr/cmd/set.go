package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"
)

var setCmd = &cobra.Command{
	Use:   "set <json-file> <path> <value>",
	Short: "Set one field in a JSON batch descriptor in place",
	Long: `set edits a single field of a JSON batch descriptor without
decoding and re-encoding the whole document, using gjson-style path
syntax (e.g. "variables.0.initial" or "expressions.-1" to append). It
exists for hosts that keep descriptors under version control and want
a one-line diff for a single parameter change, rather than a full
rewrite that reorders or reformats the rest of the file.`,
	Args: cobra.ExactArgs(3),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
}

func runSet(_ *cobra.Command, args []string) error {
	path, field, value := args[0], args[1], args[2]

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	updated, err := sjson.SetBytes(raw, field, parseScalar(value))
	if err != nil {
		return fmt.Errorf("set %s: %w", field, err)
	}

	info, err := os.Stat(path)
	var mode os.FileMode = 0o644
	if err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(path, updated, mode); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// parseScalar converts a command-line value string to the JSON scalar type
// sjson should write: a number or bool when value parses cleanly as one,
// the literal string otherwise.
func parseScalar(value string) any {
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}
