package trace

import (
	"errors"
	"fmt"
)

var (
	// ErrSyntax indicates a malformed trace line.
	ErrSyntax = errors.New("trace: syntax error")

	// ErrUnknownID indicates an operation on an ID that is not live.
	ErrUnknownID = errors.New("trace: unknown block id")

	// ErrDuplicateID indicates an allocation into an ID that is still live.
	ErrDuplicateID = errors.New("trace: block id already live")

	// ErrCorruptPayload indicates a payload lost bytes it was given.
	ErrCorruptPayload = errors.New("trace: payload corrupted")

	// ErrRejected indicates the allocator refused a valid free.
	ErrRejected = errors.New("trace: allocator rejected live pointer")

	// ErrValidation indicates the segment failed validation.
	ErrValidation = errors.New("trace: segment validation failed")
)

// ParseError reports the line a syntax error was found on.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// OpError reports the trace operation a replay failed on.
type OpError struct {
	Index int
	Op    Op
	Err   error
}

func (e *OpError) Error() string {
	if e.Op.Line > 0 {
		return fmt.Sprintf("op %d (line %d, %s %d): %v", e.Index, e.Op.Line, e.Op.Kind, e.Op.ID, e.Err)
	}
	return fmt.Sprintf("op %d (%s %d): %v", e.Index, e.Op.Kind, e.Op.ID, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
