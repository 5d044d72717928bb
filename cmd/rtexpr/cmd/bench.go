package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtexpr/rtexpr/internal/config"
	"github.com/rtexpr/rtexpr/internal/telemetry"
)

var benchIterations int

var benchCmd = &cobra.Command{
	Use:   "bench <batch-file>",
	Short: "Run a batch descriptor for N iterations and report telemetry deltas",
	Long: `bench builds a Batch from the given descriptor, runs one warm-up
Evaluate call to force lazy compilation of any expression-defined
functions, takes a telemetry snapshot, then runs --iterations further
calls and prints how much the recorder's counters moved. A zero
BytesAllocated delta demonstrates the engine's hot path holds to its
zero-steady-state-allocation guarantee.`,
	Args: cobra.ExactArgs(1),
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntVarP(&benchIterations, "iterations", "n", 1000, "number of evaluate passes after warm-up")
	rootCmd.AddCommand(benchCmd)
}

func runBench(_ *cobra.Command, args []string) error {
	spec, err := loadSpec(args[0])
	if err != nil {
		return err
	}

	rec := &telemetry.Recorder{}
	b, err := spec.Build(rec)
	if err != nil {
		return err
	}
	defer b.Free()

	ctx := config.NewContext()

	if err := b.Evaluate(ctx); err != nil {
		return fmt.Errorf("warm-up evaluate: %w", err)
	}

	before := rec.Snapshot()
	for i := 0; i < benchIterations; i++ {
		if err := b.Evaluate(ctx); err != nil {
			return fmt.Errorf("evaluate (iteration %d): %w", i, err)
		}
	}
	after := rec.Snapshot()
	delta := telemetry.Delta(before, after)

	fmt.Printf("iterations:      %d\n", benchIterations)
	fmt.Printf("bytes allocated: %d\n", delta.BytesAllocated)
	fmt.Printf("alloc count:     %d\n", delta.AllocCount)
	fmt.Printf("bytes freed:     %d\n", delta.BytesFreed)
	if delta.BytesAllocated == 0 {
		fmt.Println("steady-state: zero allocation confirmed")
	} else {
		fmt.Println("steady-state: allocation detected")
	}
	return nil
}
