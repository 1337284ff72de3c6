// Package trace parses and replays allocation traces against the allocator
// engine, checking payload integrity and collecting utilization figures.
//
// A trace is plain text, one operation per line:
//
//	a <id> <size>   malloc
//	c <id> <size>   calloc
//	r <id> <size>   realloc
//	f <id>          free
//	p <id> <size>   free the trailing size bytes of the block
//	v               validate the segment
//
// Blank lines and lines starting with # are ignored. Input may be UTF-8 or
// UTF-16 with a byte-order mark.
package trace

import (
	"bufio"
	"fmt"
	"io"
)

// OpKind identifies a trace operation.
type OpKind byte

const (
	OpAlloc    OpKind = 'a'
	OpCalloc   OpKind = 'c'
	OpRealloc  OpKind = 'r'
	OpFree     OpKind = 'f'
	OpPartial  OpKind = 'p'
	OpValidate OpKind = 'v'
)

func (k OpKind) String() string {
	switch k {
	case OpAlloc:
		return "alloc"
	case OpCalloc:
		return "calloc"
	case OpRealloc:
		return "realloc"
	case OpFree:
		return "free"
	case OpPartial:
		return "partial-free"
	case OpValidate:
		return "validate"
	default:
		return fmt.Sprintf("OpKind(%q)", byte(k))
	}
}

// hasSize reports whether the operation carries a size argument.
func (k OpKind) hasSize() bool {
	return k == OpAlloc || k == OpCalloc || k == OpRealloc || k == OpPartial
}

// Op is a single trace operation.
type Op struct {
	Kind OpKind
	ID   int // Client-chosen block identifier (unused for OpValidate)
	Size int // Request size in bytes (unused for OpFree, OpValidate)
	Line int // Source line, 0 for generated traces
}

// Trace is an ordered list of operations.
type Trace struct {
	Name string
	Ops  []Op
	IDs  int // One more than the largest ID used
}

// Append adds op and keeps IDs current.
func (t *Trace) Append(op Op) {
	t.Ops = append(t.Ops, op)
	if op.Kind != OpValidate && op.ID >= t.IDs {
		t.IDs = op.ID + 1
	}
}

// WriteTo writes the trace in its text form.
func (t *Trace) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var total int64
	if t.Name != "" {
		n, err := fmt.Fprintf(bw, "%s %s\n", CommentPrefix, t.Name)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	for _, op := range t.Ops {
		var n int
		var err error
		switch {
		case op.Kind == OpValidate:
			n, err = fmt.Fprintf(bw, "%c\n", op.Kind)
		case op.Kind.hasSize():
			n, err = fmt.Fprintf(bw, "%c %d %d\n", op.Kind, op.ID, op.Size)
		default:
			n, err = fmt.Fprintf(bw, "%c %d\n", op.Kind, op.ID)
		}
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}
