package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Parse reads a trace. Input is decoded as UTF-8 unless it starts with a
// UTF-16 (or UTF-8) byte-order mark.
func Parse(r io.Reader) (*Trace, error) {
	t := &Trace{Ops: make([]Op, 0, InitialOpCapacity)}

	// BOMOverride switches to UTF-16 when a BOM is present and strips it.
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	utf8Reader := transform.NewReader(r, decoder)

	scanner := bufio.NewScanner(utf8Reader)
	buf := make([]byte, 0, ScannerInitialBufferSize)
	scanner.Buffer(buf, ScannerMaxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, CommentPrefix) {
			continue
		}

		op, err := parseLine(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: line, Err: err}
		}
		op.Line = lineNo
		t.Append(op)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning trace: %w", err)
	}

	return t, nil
}

// ParseString parses a trace held in memory.
func ParseString(s string) (*Trace, error) {
	return Parse(strings.NewReader(s))
}

func parseLine(line string) (Op, error) {
	fields := strings.Fields(line)
	if len(fields[0]) != 1 {
		return Op{}, fmt.Errorf("%w: unknown operation %q", ErrSyntax, fields[0])
	}
	kind := OpKind(fields[0][0])

	var want int
	switch kind {
	case OpValidate:
		want = 1
	case OpFree:
		want = 2
	case OpAlloc, OpCalloc, OpRealloc, OpPartial:
		want = 3
	default:
		return Op{}, fmt.Errorf("%w: unknown operation %q", ErrSyntax, fields[0])
	}
	if len(fields) != want {
		return Op{}, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrSyntax, kind, want-1, len(fields)-1)
	}

	op := Op{Kind: kind}
	if want >= 2 {
		id, err := parseNonNegative(fields[1], "id")
		if err != nil {
			return Op{}, err
		}
		op.ID = id
	}
	if want == 3 {
		size, err := parseNonNegative(fields[2], "size")
		if err != nil {
			return Op{}, err
		}
		op.Size = size
	}
	return op, nil
}

func parseNonNegative(s, what string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s %q", ErrSyntax, what, s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative %s %d", ErrSyntax, what, v)
	}
	return v, nil
}
