package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/segalloc/heap/alloc"
	"github.com/joshuapare/segalloc/internal/logger"
	"github.com/joshuapare/segalloc/internal/trace"
	"github.com/joshuapare/segalloc/pkg/segalloc"
)

var (
	runValidateEach bool
	runNoPatterns   bool
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().BoolVar(&runValidateEach, "validate-each", false, "Validate the heap after every operation")
	cmd.Flags().BoolVar(&runNoPatterns, "no-patterns", false, "Skip payload pattern checks")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <trace>",
		Short: "Replay an allocation trace",
		Long: `The run command replays an allocation trace against a fresh segment,
checking payload contents and reporting utilization.

Trace lines:
  a <id> <size>   malloc
  c <id> <size>   calloc
  r <id> <size>   realloc
  f <id>          free
  p <id> <size>   free the trailing <size> bytes of the block
  v               validate the heap

Example:
  segallocctl run workload.trace
  segallocctl run workload.trace --policy first-fit --size 4MiB --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args)
		},
	}
	return cmd
}

// Report is the outcome of a replay.
type Report struct {
	Trace        string        `json:"trace"`
	Policy       string        `json:"policy"`
	SizeClasses  string        `json:"size_classes"`
	Result       *trace.Result `json:"result"`
	Final        alloc.Usage   `json:"final_usage"`
	Stats        alloc.Stats   `json:"stats"`
	Valid        bool          `json:"valid"`
	Error        string        `json:"error,omitempty"`
	ElapsedMicro int64         `json:"elapsed_us"`
}

func runRun(args []string) error {
	tracePath := args[0]

	printVerbose("Reading trace: %s\n", tracePath)

	f, err := os.Open(tracePath)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	tr, err := trace.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse trace: %w", err)
	}
	tr.Name = tracePath

	return replayAndReport(tr, trace.ReplayOptions{
		ValidateEach: runValidateEach,
		SkipPatterns: runNoPatterns,
	})
}

// replayAndReport replays tr on a fresh heap and prints the report.
func replayAndReport(tr *trace.Trace, opts trace.ReplayOptions) error {
	h, err := openHeap()
	if err != nil {
		return err
	}
	defer h.Close()

	printVerbose("Replaying %d operations\n", len(tr.Ops))
	start := time.Now()
	res, replayErr := trace.Replay(h, tr, opts)
	report := buildReport(h, tr, res, replayErr, time.Since(start))

	if replayErr != nil {
		logger.Error("replay failed", "trace", tr.Name, "err", replayErr)
	} else {
		logger.Info("replay complete", "trace", tr.Name, "ops", res.Ops, "utilization", res.Utilization)
	}

	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		printReport(report)
	}

	if replayErr != nil {
		return fmt.Errorf("replay failed: %w", replayErr)
	}
	if !report.Valid {
		return errors.New("heap failed validation after replay")
	}
	return nil
}

func buildReport(h *segalloc.Heap, tr *trace.Trace, res *trace.Result, replayErr error, elapsed time.Duration) Report {
	r := Report{
		Trace:        tr.Name,
		Policy:       h.Policy().String(),
		SizeClasses:  h.SizeClasses(),
		Result:       res,
		Final:        h.Usage(),
		Stats:        h.Stats(),
		Valid:        h.ValidateSegment(),
		ElapsedMicro: elapsed.Microseconds(),
	}
	if replayErr != nil {
		r.Error = replayErr.Error()
	}
	return r
}

func printReport(r Report) {
	res := r.Result

	printInfo("\nReplay: %s\n", r.Trace)
	printInfo("  Policy:        %s (%s size classes)\n", r.Policy, r.SizeClasses)
	printInfo("  Segment:       %s\n", formatBytes(res.SegmentBytes))
	printInfo("  Operations:    %s\n", humanize.Comma(int64(res.Ops)))
	printInfo("  Elapsed:       %s\n", time.Duration(r.ElapsedMicro)*time.Microsecond)

	printInfo("\nOperations:\n")
	printInfo("  Allocations:   %d\n", res.Allocs)
	printInfo("  Reallocs:      %d\n", res.Reallocs)
	printInfo("  Frees:         %d\n", res.Frees)
	printInfo("  Partial frees: %d (%d refused)\n", res.PartialFrees, res.Refused)
	printInfo("  Validations:   %d\n", res.Validations)
	printInfo("  Out of memory: %d\n", res.Failures)

	printInfo("\nUtilization:\n")
	printInfo("  Peak payload:  %s\n", formatBytes(res.PeakPayload))
	printInfo("  Peak in use:   %s\n", formatBytes(res.PeakAllocated))
	printInfo("  Utilization:   %.1f%%\n", res.Utilization*100)

	printVerbose("\nEngine:\n")
	printVerbose("  Splits:        %d\n", r.Stats.SplitCount)
	printVerbose("  Coalesces:     %d forward, %d backward\n", r.Stats.CoalesceForward, r.Stats.CoalesceBackward)
	printVerbose("  Reallocs:      %d in place, %d moved\n", r.Stats.ReallocInPlace, r.Stats.ReallocMoved)
	printVerbose("  Final free:    %s in %d blocks (largest %s)\n",
		humanize.IBytes(uint64(r.Final.FreeBytes)), r.Final.FreeBlocks, humanize.IBytes(uint64(r.Final.LargestFree)))

	printInfo("\nValidation:\n")
	if r.Valid {
		printInfo("  ✓ Structure valid\n")
	} else {
		printInfo("  ✗ Structure invalid\n")
	}
	if r.Error != "" {
		printInfo("  ✗ %s\n", r.Error)
	}
}
