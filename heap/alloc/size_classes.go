package alloc

import (
	"fmt"
	"math"
	"slices"

	"github.com/joshuapare/segalloc/internal/format"
)

// SizeClassConfig defines the segregated size classes of the best-fit index.
// Sizes are total block sizes (header included).
type SizeClassConfig struct {
	// Name for this configuration (for benchmarking)
	Name string

	// Small block settings (linear increments)
	SmallMin       int // Minimum block size (typically format.MinBlockSize)
	SmallMax       int // Max for linear increments
	SmallIncrement int // Increment between small classes, a multiple of format.Alignment

	// Medium/Large block settings (logarithmic growth)
	MediumMax    int     // Max before the large class
	GrowthFactor float64 // Exponential growth factor (1.25, 1.5, 2.0)
}

// Predefined configurations.
var (
	// FineGrained: one class per alignment unit up to 1 KiB, then slow growth.
	ConfigFineGrained = SizeClassConfig{
		Name:           "FineGrained",
		SmallMin:       format.MinBlockSize,
		SmallMax:       1024,
		SmallIncrement: format.Alignment,
		MediumMax:      1 << 20,
		GrowthFactor:   1.25,
	}

	// Balanced: good balance between class count and in-class scanning.
	ConfigBalanced = SizeClassConfig{
		Name:           "Balanced",
		SmallMin:       format.MinBlockSize,
		SmallMax:       512,
		SmallIncrement: 32,
		MediumMax:      256 << 10,
		GrowthFactor:   1.5,
	}

	// Coarse: few classes, longer scans inside the request's own class.
	ConfigCoarse = SizeClassConfig{
		Name:           "Coarse",
		SmallMin:       format.MinBlockSize,
		SmallMax:       512,
		SmallIncrement: 64,
		MediumMax:      64 << 10,
		GrowthFactor:   2.0,
	}

	// Default configuration (used if none specified).
	DefaultConfig = ConfigBalanced
)

// Presets maps preset names to configurations.
var Presets = map[string]SizeClassConfig{
	"finegrained": ConfigFineGrained,
	"balanced":    ConfigBalanced,
	"coarse":      ConfigCoarse,
}

func (c SizeClassConfig) validate() error {
	switch {
	case c.SmallMin <= 0:
		return fmt.Errorf("%w: size classes %q: SmallMin must be positive", ErrBadConfig, c.Name)
	case c.SmallIncrement <= 0 || c.SmallIncrement%format.Alignment != 0:
		return fmt.Errorf("%w: size classes %q: SmallIncrement %d must be a positive multiple of %d",
			ErrBadConfig, c.Name, c.SmallIncrement, format.Alignment)
	case c.SmallMax < c.SmallMin:
		return fmt.Errorf("%w: size classes %q: SmallMax < SmallMin", ErrBadConfig, c.Name)
	case c.MediumMax > c.SmallMax && c.GrowthFactor <= 1:
		return fmt.Errorf("%w: size classes %q: GrowthFactor must exceed 1", ErrBadConfig, c.Name)
	}
	return nil
}

// Boundaries returns the inclusive upper bound of every size class. Sizes
// above the last bound fall into the large class.
func (c SizeClassConfig) Boundaries() ([]int, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return slices.Clone(newSizeClassTable(c).boundaries), nil
}

// sizeClassTable holds the computed size class boundaries.
type sizeClassTable struct {
	config     SizeClassConfig
	boundaries []int // Upper bound (inclusive) for each size class
	numClasses int
}

// newSizeClassTable computes size class boundaries from config.
func newSizeClassTable(config SizeClassConfig) *sizeClassTable {
	table := &sizeClassTable{
		config:     config,
		boundaries: make([]int, 0, 64),
	}

	// Phase 1: Small blocks (linear increments)
	for size := config.SmallMin; size < config.SmallMax; size += config.SmallIncrement {
		table.boundaries = append(table.boundaries, size+config.SmallIncrement-1)
	}

	// Phase 2: Medium blocks (logarithmic growth)
	if config.SmallMax < config.MediumMax {
		size := config.SmallMax
		for size < config.MediumMax {
			nextSize := int(math.Ceil(float64(size) * config.GrowthFactor))
			if nextSize <= size {
				nextSize = size + 1 // Ensure progress
			}
			table.boundaries = append(table.boundaries, nextSize-1)
			size = nextSize
		}
	}

	table.numClasses = len(table.boundaries)
	return table
}

// getSizeClass returns the size class index for a given block size.
// Returns table.numClasses for sizes above every boundary (large class).
func (t *sizeClassTable) getSizeClass(size int) int {
	lo, hi := 0, t.numClasses-1

	for lo <= hi {
		mid := (lo + hi) / 2
		if size <= t.boundaries[mid] {
			if mid == 0 || size > t.boundaries[mid-1] {
				return mid
			}
			hi = mid - 1
		} else {
			lo = mid + 1
		}
	}

	return t.numClasses
}

// String returns a human-readable description of the size class table.
func (t *sizeClassTable) String() string {
	return t.config.Name
}

// NumClasses returns the number of size classes (excluding the large class).
func (t *sizeClassTable) NumClasses() int {
	return t.numClasses
}
