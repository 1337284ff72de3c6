package trace

const (
	// CommentPrefix starts a comment line.
	CommentPrefix = "#"

	// ScannerInitialBufferSize is the initial buffer size for the trace scanner
	ScannerInitialBufferSize = 64 * 1024 // 64KB

	// ScannerMaxLineSize is the longest accepted trace line
	ScannerMaxLineSize = 1024 * 1024 // 1MB

	// InitialOpCapacity is the initial capacity for parsed operations
	InitialOpCapacity = 1024
)
