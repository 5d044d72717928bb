package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtexpr/rtexpr/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run <batch-file>",
	Short: "Evaluate a batch descriptor once and print its results",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBatch(_ *cobra.Command, args []string) error {
	spec, err := loadSpec(args[0])
	if err != nil {
		return err
	}
	b, err := spec.Build(nil)
	if err != nil {
		return err
	}
	defer b.Free()

	ctx := config.NewContext()
	if err := b.Evaluate(ctx); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	for i, src := range spec.Expressions {
		v, err := b.GetResult(i)
		if err != nil {
			return err
		}
		fmt.Printf("[%d] %s = %v\n", i, src, v)
	}
	return nil
}
