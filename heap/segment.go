package heap

import "fmt"

// Segment is a single reserved memory region, backed by an anonymous mapping
// where the platform supports it.
type Segment struct {
	data   []byte
	size   int
	mapped bool // true when data must be returned to the OS on Release
}

// Reserve obtains a new read/write region of size bytes from the operating
// system. The contents are zero-initialized.
func Reserve(size int) (*Segment, error) {
	if size <= 0 {
		return nil, fmt.Errorf("reserve %d bytes: %w", size, ErrInvalidSize)
	}
	data, mapped, err := mapRegion(size)
	if err != nil {
		return nil, fmt.Errorf("heap: reserve %d bytes: %w", size, err)
	}
	return &Segment{data: data, size: size, mapped: mapped}, nil
}

// FromBytes wraps caller-owned memory as a segment. Release drops the
// reference but never frees b.
func FromBytes(b []byte) *Segment {
	return &Segment{data: b, size: len(b)}
}

// Bytes returns the segment memory, or nil once released.
func (s *Segment) Bytes() []byte { return s.data }

// Size returns the number of bytes reserved.
func (s *Segment) Size() int { return s.size }

// Released reports whether Release has been called.
func (s *Segment) Released() bool { return s.data == nil }

// Release returns the region to the operating system. Calling Release on an
// already released segment is a no-op.
func (s *Segment) Release() error {
	if s == nil || s.data == nil {
		return nil
	}
	data := s.data
	s.data = nil
	if !s.mapped {
		return nil
	}
	if err := unmapRegion(data); err != nil {
		return fmt.Errorf("heap: release %d bytes: %w", s.size, err)
	}
	return nil
}
