package heap

import "errors"

var (
	// ErrInvalidSize indicates a non-positive or unmappable segment size.
	ErrInvalidSize = errors.New("heap: invalid segment size")

	// ErrReleased indicates an operation on a segment that was already released.
	ErrReleased = errors.New("heap: segment released")
)
