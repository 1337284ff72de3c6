package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/segalloc/internal/trace"
)

var (
	stressSeed       int64
	stressOps        int
	stressMaxSize    string
	stressSave       string
	stressNoValidate bool
)

func init() {
	cmd := newStressCmd()
	cmd.Flags().Int64Var(&stressSeed, "seed", 1, "Random seed")
	cmd.Flags().IntVar(&stressOps, "ops", 10000, "Number of operations")
	cmd.Flags().StringVar(&stressMaxSize, "max-size", "4KiB", "Largest request size")
	cmd.Flags().StringVar(&stressSave, "save", "", "Write the generated trace to this file")
	cmd.Flags().BoolVar(&stressNoValidate, "no-validate", false, "Skip validation after each operation")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Replay a reproducible random workload",
		Long: `The stress command generates a random allocation trace from --seed and
replays it, validating the heap after every operation.

Example:
  segallocctl stress --ops 100000 --seed 7
  segallocctl stress --max-size 64KiB --size 16MiB --save failing.trace`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
	return cmd
}

func runStress() error {
	if stressOps <= 0 {
		return fmt.Errorf("invalid --ops %d: must be positive", stressOps)
	}
	maxSize, err := parseSize(stressMaxSize, "--max-size")
	if err != nil {
		return err
	}

	tr := trace.Random(stressSeed, stressOps, maxSize)
	printVerbose("Generated %d operations (seed %d)\n", len(tr.Ops), stressSeed)

	if stressSave != "" {
		if err := saveTrace(tr, stressSave); err != nil {
			return err
		}
		printVerbose("Saved trace to %s\n", stressSave)
	}

	return replayAndReport(tr, trace.ReplayOptions{ValidateEach: !stressNoValidate})
}

func saveTrace(tr *trace.Trace, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	if _, err := tr.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write trace: %w", err)
	}
	return f.Close()
}
