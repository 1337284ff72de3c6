package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/segalloc/internal/format"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show block layout constants and size classes",
		Long: `The info command reports the block header layout, alignment, and the
size class boundaries selected by --classes, along with the usable range of a
segment of --size bytes.

Example:
  segallocctl info
  segallocctl info --classes coarse --size 64KiB --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo()
		},
	}
	return cmd
}

// LayoutInfo describes the allocator configuration.
type LayoutInfo struct {
	Alignment       int    `json:"alignment"`
	HeaderSize      int    `json:"header_size"`
	MinBlockSize    int    `json:"min_block_size"`
	MaxRequest      int    `json:"max_request"`
	SegmentBytes    int    `json:"segment_bytes"`
	LargestRequest  int    `json:"largest_request"`
	Policy          string `json:"policy"`
	SizeClasses     string `json:"size_classes"`
	ClassBoundaries []int  `json:"class_boundaries"`
}

func runInfo() error {
	size, err := segmentSize()
	if err != nil {
		return err
	}
	opts, err := allocOptions()
	if err != nil {
		return err
	}
	bounds, err := opts.SizeClasses.Boundaries()
	if err != nil {
		return err
	}

	info := LayoutInfo{
		Alignment:       format.Alignment,
		HeaderSize:      format.BlockHeaderSize,
		MinBlockSize:    format.MinBlockSize,
		MaxRequest:      format.MaxRequest,
		SegmentBytes:    format.AlignDown16(size),
		Policy:          opts.Policy.String(),
		SizeClasses:     opts.SizeClasses.Name,
		ClassBoundaries: bounds,
	}
	if info.SegmentBytes >= format.MinBlockSize {
		info.LargestRequest = info.SegmentBytes - format.BlockHeaderSize
	}

	// Output as JSON if requested
	if jsonOut {
		return printJSON(info)
	}

	printInfo("\nBlock Layout:\n")
	printInfo("  Alignment:      %d bytes\n", info.Alignment)
	printInfo("  Header:         %d bytes\n", info.HeaderSize)
	printInfo("  Minimum block:  %d bytes\n", info.MinBlockSize)
	printInfo("  Max request:    %s\n", humanize.IBytes(uint64(info.MaxRequest)))

	printInfo("\nSegment:\n")
	printInfo("  Size:           %s\n", humanize.IBytes(uint64(size)))
	printInfo("  Largest block:  %s\n", humanize.IBytes(uint64(info.LargestRequest)))
	printInfo("  Policy:         %s\n", info.Policy)

	printInfo("\nSize Classes (%s): %d classes + large\n", info.SizeClasses, len(bounds))
	for i, b := range bounds {
		lo := format.MinBlockSize
		if i > 0 {
			lo = bounds[i-1] + 1
		}
		printVerbose("  [%2d] %s - %s\n", i, humanize.IBytes(uint64(lo)), humanize.IBytes(uint64(b)))
	}
	if len(bounds) > 0 {
		printInfo("  large: > %s\n", humanize.IBytes(uint64(bounds[len(bounds)-1])))
	}
	return nil
}

// formatBytes renders n as "1.0 MiB (1048576 bytes)".
func formatBytes(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d bytes", n)
	}
	return fmt.Sprintf("%s (%s bytes)", humanize.IBytes(uint64(n)), humanize.Comma(int64(n)))
}
