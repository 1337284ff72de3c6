package format

// Alignment utilities for block layout. Block sizes and payload offsets are
// always multiples of Alignment.

// Align16 returns n aligned up to the next 16-byte boundary.
//
// Example:
//
//	Align16(1)  = 16
//	Align16(16) = 16
//	Align16(17) = 32
func Align16(n int) int {
	return (n + AlignmentMask) & ^AlignmentMask
}

// AlignDown16 returns n aligned down to the previous 16-byte boundary.
//
// Example:
//
//	AlignDown16(15) = 0
//	AlignDown16(16) = 16
//	AlignDown16(47) = 32
func AlignDown16(n int) int {
	return n & ^AlignmentMask
}

// IsAligned16 reports whether n sits on a 16-byte boundary.
func IsAligned16(n int) bool {
	return n&AlignmentMask == 0
}

// AlignPad returns the number of bytes needed to move addr up to the next
// 16-byte boundary.
func AlignPad(addr uintptr) int {
	return int((Alignment - addr&AlignmentMask) & AlignmentMask)
}

// BlockSizeFor returns the total block size needed to hold a payload of n
// bytes. Requests of zero bytes are treated as one byte so every allocation
// gets a distinct payload.
func BlockSizeFor(n int) int {
	if n <= 0 {
		n = 1
	}
	return Align16(n) + BlockHeaderSize
}
