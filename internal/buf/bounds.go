// Package buf contains bounds- and overflow-checked helpers for slicing a
// segment at offsets that may come from untrusted or corrupted headers.
package buf

import (
	"fmt"
	"math"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// CheckRange validates that size bytes starting at offset fit inside
// [lo, hi). Returns the end offset if valid, or an error describing the
// specific failure (overflow or out of bounds).
//
//	end, err := buf.CheckRange(start, limit, off, size)
//	if err != nil {
//	    return fmt.Errorf("block: %w", err)
//	}
func CheckRange(lo, hi, offset, size int) (int, error) {
	if offset < lo {
		return 0, fmt.Errorf("bounds: offset=%d < start=%d", offset, lo)
	}
	if size < 0 {
		return 0, fmt.Errorf("negative size: %d", size)
	}
	end, ok := AddOverflowSafe(offset, size)
	if !ok {
		return 0, fmt.Errorf("overflow: offset=%d + size=%d", offset, size)
	}
	if end > hi {
		return 0, fmt.Errorf("bounds: end=%d > limit=%d", end, hi)
	}
	return end, nil
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end], true
}

// Window returns b[off:off+n] with its capacity clamped to off+c, so appends
// by the caller cannot spill into the bytes that follow. It reports false
// when the window does not fit or n > c.
func Window(b []byte, off, n, c int) ([]byte, bool) {
	if n > c {
		return nil, false
	}
	full, ok := Slice(b, off, c)
	if !ok {
		return nil, false
	}
	return full[:n:c], true
}

// Has reports whether b[off:off+n] is within bounds.
func Has(b []byte, off, n int) bool {
	_, ok := Slice(b, off, n)
	return ok
}
