package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a header.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrZeroSize indicates a header declared a zero block size.
	ErrZeroSize = errors.New("format: zero block size")
	// ErrMisaligned indicates a block offset or size is not a multiple of Alignment.
	ErrMisaligned = errors.New("format: misaligned block")
	// ErrBadTag indicates the header check tag does not match its offset and size.
	ErrBadTag = errors.New("format: bad block tag")
	// ErrOverrun indicates a block extends past the end of the usable range.
	ErrOverrun = errors.New("format: block overruns segment")
)
