package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/segalloc/heap/alloc"
	"github.com/joshuapare/segalloc/internal/logger"
	"github.com/joshuapare/segalloc/pkg/segalloc"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	sizeFlag string
	policy   string
	classes  string
	logFile  string
	logLevel string

	closeLog = func() error { return nil }
)

// defaultSegmentSize matches the segment the allocator was designed around.
const defaultSegmentSize = "1MiB"

var rootCmd = &cobra.Command{
	Use:   "segallocctl",
	Short: "Exercise and inspect the segment allocator",
	Long: `segallocctl drives the segment allocator with allocation traces or
random workloads, validating the heap structure and reporting utilization.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return closeLog()
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVar(&sizeFlag, "size", defaultSegmentSize, "Segment size (e.g. 64KiB, 1MiB, 1048576)")
	rootCmd.PersistentFlags().
		StringVar(&policy, "policy", "best-fit", "Placement policy: best-fit or first-fit")
	rootCmd.PersistentFlags().
		StringVar(&classes, "classes", "balanced", "Size class preset: finegrained, balanced or coarse")
	rootCmd.PersistentFlags().
		StringVar(&logFile, "log-file", "", "Write JSON logs to this file or directory")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	closeFn, err := logger.Init(logger.Options{
		Enabled: logFile != "",
		Path:    logFile,
		Level:   level,
		JSON:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	closeLog = closeFn
	return nil
}

// segmentSize parses the --size flag.
func segmentSize() (int, error) {
	return parseSize(sizeFlag, "--size")
}

// parseSize parses a byte count such as "4096", "64KiB" or "1MB".
func parseSize(s, flag string) (int, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", flag, s, err)
	}
	if n == 0 || n > 1<<40 {
		return 0, fmt.Errorf("invalid %s %q: must be between 1 byte and 1 TiB", flag, s)
	}
	return int(n), nil
}

// allocOptions builds engine options from the global flags.
func allocOptions() (*alloc.Options, error) {
	p, err := alloc.ParsePolicy(policy)
	if err != nil {
		return nil, err
	}
	cfg, ok := alloc.Presets[strings.ToLower(classes)]
	if !ok {
		return nil, fmt.Errorf("unknown size class preset %q", classes)
	}
	return &alloc.Options{Policy: p, SizeClasses: &cfg, Logger: logger.L}, nil
}

// openHeap reserves a segment per the global flags.
func openHeap() (*segalloc.Heap, error) {
	size, err := segmentSize()
	if err != nil {
		return nil, err
	}
	opts, err := allocOptions()
	if err != nil {
		return nil, err
	}
	printVerbose("Reserving %s segment (%s, %s size classes)\n",
		humanize.IBytes(uint64(size)), opts.Policy, opts.SizeClasses.Name)
	return segalloc.Open(size, opts)
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
